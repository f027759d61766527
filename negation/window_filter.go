package negation

import (
	"text2phenotype.com/anneval/types"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ErrNoCues = errors.New("negation filter: no cues configured")

// Filter is a character-window negation detector. The pre window is cut
// after the last scope breaker inside it and the post window before the
// first one, so cues never cross a sentence or a contrasting clause.
type Filter struct {
	preWindow  int
	postWindow int
	preCues    *regexp.Regexp
	postCues   *regexp.Regexp
	breakers   *regexp.Regexp
}

func NewDefaultFilter() *Filter {
	filter, err := NewFilter(GetDefaultRules())
	if err != nil {
		panic(err)
	}
	return filter
}

// NewFilter compiles rules; zero-valued fields fall back to the defaults.
func NewFilter(rules types.NegationRules) (*Filter, error) {
	if rules.PreWindow < 0 || rules.PostWindow < 0 {
		return nil, fmt.Errorf("negation filter: negative window (%d, %d)", rules.PreWindow, rules.PostWindow)
	}
	rules = MergeRules(GetDefaultRules(), rules)
	preCues, err := compileAlternatives(rules.PreCues, nil)
	if err != nil {
		return nil, fmt.Errorf("negation filter: pre cues: %w", err)
	}
	postCues, err := compileAlternatives(rules.PostCues, nil)
	if err != nil {
		return nil, fmt.Errorf("negation filter: post cues: %w", err)
	}
	breakers, err := compileAlternatives(rules.ScopeConnectives, rules.ScopePunctuation)
	if err != nil {
		return nil, fmt.Errorf("negation filter: scope breakers: %w", err)
	}
	return &Filter{
		preWindow:  rules.PreWindow,
		postWindow: rules.PostWindow,
		preCues:    preCues,
		postCues:   postCues,
		breakers:   breakers,
	}, nil
}

func (filter *Filter) IsNegated(span types.Span, text types.Text) bool {
	polarity, _ := filter.Analyze(span, text)
	return polarity == types.PolarityNegative
}

func (filter *Filter) Analyze(span types.Span, text types.Text) (types.Polarity, types.Scope) {
	if filter.preCues.MatchString(filter.PreWindow(span, text)) {
		return types.PolarityNegative, types.ScopeLeft
	}
	if filter.postCues.MatchString(filter.PostWindow(span, text)) {
		return types.PolarityNegative, types.ScopeRight
	}
	return types.PolarityPositive, types.ScopeMiddle
}

// PreWindow is the text searched for pre-negation cues.
func (filter *Filter) PreWindow(span types.Span, text types.Text) string {
	start := span.Start - filter.preWindow
	if start < 0 {
		start = 0
	}
	window := text.Slice(start, span.Start)
	breakers := filter.breakers.FindAllStringIndex(window, -1)
	if len(breakers) > 0 {
		window = window[breakers[len(breakers)-1][1]:]
	}
	return window
}

// PostWindow is the text searched for post-negation cues.
func (filter *Filter) PostWindow(span types.Span, text types.Text) string {
	window := text.Slice(span.End, span.End+filter.postWindow)
	if loc := filter.breakers.FindStringIndex(window); loc != nil {
		window = window[:loc[0]]
	}
	return window
}

// Apply splits spans into the affirmed ones and the suppressed ones,
// preserving order in both.
func (filter *Filter) Apply(spans []types.Span, text types.Text) (kept []types.Span, suppressed []types.Span) {
	kept = make([]types.Span, 0, len(spans))
	for _, span := range spans {
		if filter.IsNegated(span, text) {
			suppressed = append(suppressed, span)
			continue
		}
		kept = append(kept, span)
	}
	return kept, suppressed
}

// compileAlternatives builds one case-insensitive pattern out of phrases
// (matched on word edges) and literals (matched anywhere). An empty list
// compiles to a pattern that never matches.
func compileAlternatives(phrases []string, literals []string) (*regexp.Regexp, error) {
	alternatives := make([]string, 0, len(phrases)+len(literals))
	for _, literal := range literals {
		if literal == "" {
			continue
		}
		alternatives = append(alternatives, regexp.QuoteMeta(literal))
	}
	for _, phrase := range phrases {
		if alternative, ok := phraseAlternative(phrase); ok {
			alternatives = append(alternatives, alternative)
		}
	}
	if len(alternatives) == 0 {
		return nil, ErrNoCues
	}
	return regexp.Compile("(?i)(?:" + strings.Join(alternatives, "|") + ")")
}

func phraseAlternative(phrase string) (string, bool) {
	trimmed := strings.TrimSpace(phrase)
	if trimmed == "" {
		return "", false
	}
	words := strings.Fields(trimmed)
	for i, word := range words {
		words[i] = regexp.QuoteMeta(word)
	}

	var b strings.Builder
	first, _ := utf8.DecodeRuneInString(trimmed)
	if isWordRune(first) {
		b.WriteString(`\b`)
	}
	b.WriteString(strings.Join(words, `\s+`))
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch {
	case strings.HasSuffix(phrase, " "):
		b.WriteString(`(?:\s|$)`)
	case isWordRune(last):
		b.WriteString(`\b`)
	}
	return b.String(), true
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
