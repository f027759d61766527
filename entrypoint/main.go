package main

import (
	"text2phenotype.com/anneval/classifier"
	"text2phenotype.com/anneval/logger"
	"text2phenotype.com/anneval/metrics"
	"text2phenotype.com/anneval/negation"
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/redis"
	"text2phenotype.com/anneval/types"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

type Config struct {
	RedisCache    bool   `envconfig:"ANNEVAL_REDIS_CACHE" default:"false"`
	RestAPIActive bool   `envconfig:"ANNEVAL_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"ANNEVAL_REST_API_PORT" default:"10000"`
}

// options are the flags shared by every command that evaluates.
type options struct {
	models        []string
	configDir     string
	negationRules string
	workers       int
}

var mainLogger = logger.NewLogger("Main")

func main() {
	logger.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		mainLogger.Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "anneval",
		Short: "Evaluate LLM clinical keyword annotation against gold spans",
		Long: `anneval asks a local model for clinical keywords of each note, resolves
them to spans, optionally drops negated spans and scores the rest against
MedTator gold annotations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringSliceVar(&opts.models, "models", []string{"qwen3:8b"}, "models to evaluate, each with the negation filter off and on")
	pf.StringVar(&opts.configDir, "config-dir", "", "directory of condition YAML files; replaces --models")
	pf.StringVar(&opts.negationRules, "negation-rules", "", "YAML file overriding the default negation rules")
	pf.IntVar(&opts.workers, "workers", pipeline.DefaultWorkers, "documents evaluated in parallel")

	cmd.AddCommand(
		evalCmd(opts),
		debugCmd(opts),
		serveCmd(opts),
		workerCmd(opts),
		submitCmd(opts),
		statusCmd(),
	)
	return cmd
}

func readConfig() (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return config, fmt.Errorf("failed to read environment: %w", err)
	}
	return config, nil
}

// conditions resolves the evaluation grid from the flags.
func conditions(opts *options) ([]types.Configuration, error) {
	var configs []types.Configuration
	if opts.configDir != "" {
		loaded, err := types.LoadConfigurations(opts.configDir)
		if err != nil {
			return nil, err
		}
		configs = loaded
	} else {
		configs = types.ConditionGrid(opts.models)
	}
	if len(configs) == 0 {
		return nil, errors.New("no evaluation conditions configured")
	}
	if opts.negationRules != "" {
		rules, err := negation.LoadRules(opts.negationRules)
		if err != nil {
			return nil, err
		}
		for i := range configs {
			configs[i].Negation = negation.MergeRules(rules, configs[i].Negation)
		}
	}
	mainLogger.Info().Msgf("Loaded %d conditions", len(configs))
	return configs, nil
}

// environment holds the shared clients of a command.
type environment struct {
	config     Config
	registry   *prometheus.Registry
	collector  metrics.Collector
	classifier *classifier.Classifier
	closers    []func() error
}

func (env *environment) Close() {
	for _, closer := range env.closers {
		if err := closer(); err != nil {
			mainLogger.Warn().Err(err).Msg("Failed to close client")
		}
	}
}

func newEnvironment() (*environment, error) {
	config, err := readConfig()
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewPrometheusCollector(registry)
	if err != nil {
		return nil, err
	}

	var ollamaConfig classifier.OllamaConfig
	if err := envconfig.Process("", &ollamaConfig); err != nil {
		return nil, fmt.Errorf("failed to read classifier environment: %w", err)
	}

	env := &environment{
		config:    config,
		registry:  registry,
		collector: collector,
	}
	clfOptions := []classifier.Option{classifier.WithMetrics(collector)}
	if config.RedisCache {
		cache, err := redis.NewClient(redis.CacheDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		env.closers = append(env.closers, cache.Close)
		clfOptions = append(clfOptions, classifier.WithCache(cache), classifier.WithLocker(cache))
		mainLogger.Info().Msg("Caching classifier replies in redis")
	} else {
		clfOptions = append(clfOptions, classifier.WithCache(classifier.NewMemoryCache()))
	}
	env.classifier = classifier.New(classifier.NewOllamaClient(ollamaConfig), clfOptions...)
	return env, nil
}

func (env *environment) runner(opts *options) (*pipeline.Runner, error) {
	configs, err := conditions(opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(
		env.classifier,
		configs,
		pipeline.WithWorkers(opts.workers),
		pipeline.WithCollector(env.collector),
	)
}
