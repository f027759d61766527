package classifier

import (
	"text2phenotype.com/anneval/logger"
	"text2phenotype.com/anneval/metrics"
	"text2phenotype.com/anneval/utils"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "classifier:"

// Params selects the model and limits of one classification.
type Params struct {
	Model          string
	MaxPromptChars int
	Timeout        time.Duration
}

// Classifier turns a document text into mentions. Replies that parse are
// cached by model and prompt, so the same document classified for several
// conditions costs one model call.
type Classifier struct {
	completer Completer
	cache     Cache
	locker    Locker
	metrics   metrics.Collector
	logger    zerolog.Logger
}

type Option func(*Classifier)

func WithCache(cache Cache) Option {
	return func(c *Classifier) {
		c.cache = cache
	}
}

func WithLocker(locker Locker) Option {
	return func(c *Classifier) {
		c.locker = locker
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(c *Classifier) {
		c.metrics = collector
	}
}

func New(completer Completer, opts ...Option) *Classifier {
	c := &Classifier{
		completer: completer,
		metrics:   metrics.NewNoopCollector(),
		logger:    logger.NewLogger("Classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never returns an error: transport problems, timeouts and
// malformed replies all come back as a ParseFailure.
func (c *Classifier) Classify(ctx context.Context, params Params, text string) ParseResult {
	prompt := BuildPrompt(text, params.MaxPromptChars)
	key := cacheKeyPrefix + utils.HashKey(params.Model, prompt)

	if raw, ok := c.cached(ctx, key); ok {
		return ParseResponse(raw)
	}

	if c.locker != nil {
		release, err := c.locker.Lock(ctx, key, params.Timeout+10*time.Second)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Proceeding without classifier lock")
		} else {
			defer func() {
				if err := release(); err != nil {
					c.logger.Warn().Err(err).Str("key", key).Msg("Failed to release classifier lock")
				}
			}()
			// another worker may have filled the entry while we waited
			if raw, ok := c.cached(ctx, key); ok {
				return ParseResponse(raw)
			}
		}
	}

	raw, elapsed, failure := c.complete(ctx, params, prompt)
	if failure != nil {
		return *failure
	}

	result := ParseResponse(raw)
	switch result := result.(type) {
	case ParseSuccess:
		c.metrics.ObserveClassifierCall(params.Model, metrics.OutcomeSuccess, elapsed)
		if c.cache != nil {
			if err := c.cache.Set(ctx, key, raw); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache classifier reply")
			}
		}
	case ParseFailure:
		c.metrics.ObserveClassifierCall(params.Model, result.Kind, elapsed)
		c.logger.Warn().Str("model", params.Model).Str("reason", result.Reason).Msg("Malformed classifier reply")
	}
	return result
}

func (c *Classifier) complete(ctx context.Context, params Params, prompt string) (string, time.Duration, *ParseFailure) {
	callCtx := ctx
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.completer.Complete(callCtx, params.Model, prompt)
	elapsed := time.Since(start)
	if err != nil {
		kind := metrics.OutcomeTransport
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			kind = metrics.OutcomeTimeout
		}
		c.metrics.ObserveClassifierCall(params.Model, kind, elapsed)
		c.logger.Warn().Err(err).Str("model", params.Model).Str("outcome", kind).Msg("Classifier call failed")
		return "", elapsed, &ParseFailure{Kind: kind, Reason: err.Error()}
	}

	c.logger.Debug().Str("model", params.Model).Dur("elapsed", elapsed).Msg("Classifier call done")
	return raw, elapsed, nil
}

func (c *Classifier) cached(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Classifier cache lookup failed")
		return "", false
	}
	c.metrics.ObserveCacheAccess(ok)
	return raw, ok
}
