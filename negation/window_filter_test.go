package negation

import (
	"text2phenotype.com/anneval/types"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func spanOf(t *testing.T, text string, phrase string, tag types.Tag) types.Span {
	t.Helper()
	idx := strings.Index(text, phrase)
	require.GreaterOrEqual(t, idx, 0, "%q not in %q", phrase, text)
	start := utf8.RuneCountInString(text[:idx])
	return types.Span{Tag: tag, Start: start, End: start + utf8.RuneCountInString(phrase)}
}

func TestDefaultFilter(t *testing.T) {
	filter := NewDefaultFilter()

	cases := []struct {
		name    string
		text    string
		phrase  string
		negated bool
	}{
		{"pre cue", "Patient denies chest pain. Reports nausea.", "chest pain", true},
		{"sentence break stops pre cue", "Patient denies chest pain. Reports nausea.", "nausea", false},
		{"affirmed mention", "Patient reports fever and denies cough. No chills noted.", "fever", false},
		{"cue in same clause", "Patient reports fever and denies cough. No chills noted.", "cough", true},
		{"cue right before span", "Patient reports fever and denies cough. No chills noted.", "chills", true},
		{"connective breaks scope", "Denies fever but reports cough today", "cough", false},
		{"however breaks scope", "No fever, however headache persists", "headache", false},
		{"without", "Presented without fever or chills", "chills", true},
		{"negative for", "Negative for dyspnea", "dyspnea", true},
		{"no evidence of", "There is no evidence of delirium", "delirium", true},
		{"doesn't have", "She doesn't have a cough", "cough", true},
		{"post none", "Fever: none. Cough present.", "Fever", true},
		{"post absent", "Rash absent today", "Rash", true},
		{"post not present", "Vomiting not present", "Vomiting", true},
		{"post cue behind breaker", "Cough. Fever: none", "Cough", false},
		{"no needs a word edge", "Knowledge of cough was limited", "cough", false},
		{"not needs a following space", "Patient notes cough", "cough", false},
		{"no without space is not a cue", "Sino-nasal congestion", "congestion", false},
		{"start of text", "fever since yesterday", "fever", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			text := types.NewText(c.text)
			span := spanOf(t, c.text, c.phrase, types.TagOther)
			require.Equal(t, c.negated, filter.IsNegated(span, text))
		})
	}
}

func TestWindowLimits(t *testing.T) {
	filter := NewDefaultFilter()

	raw := "Denies " + strings.Repeat("mild ", 14) + "cough"
	text := types.NewText(raw)
	span := spanOf(t, raw, "cough", types.TagCough)
	require.Len(t, filter.PreWindow(span, text), DefaultPreWindow)
	require.False(t, filter.IsNegated(span, text))

	raw = "Denies " + strings.Repeat("mild ", 10) + "cough"
	text = types.NewText(raw)
	span = spanOf(t, raw, "cough", types.TagCough)
	require.True(t, filter.IsNegated(span, text))

	raw = "Fever" + strings.Repeat(" ", 30) + "none"
	text = types.NewText(raw)
	span = spanOf(t, raw, "Fever", types.TagFever)
	require.False(t, filter.IsNegated(span, text))
}

func TestAnalyzeScope(t *testing.T) {
	filter := NewDefaultFilter()
	raw := "Denies fever. Cough: none. Headache."
	text := types.NewText(raw)

	polarity, scope := filter.Analyze(spanOf(t, raw, "fever", types.TagFever), text)
	require.Equal(t, types.PolarityNegative, polarity)
	require.Equal(t, types.ScopeLeft, scope)

	polarity, scope = filter.Analyze(spanOf(t, raw, "Cough", types.TagCough), text)
	require.Equal(t, types.PolarityNegative, polarity)
	require.Equal(t, types.ScopeRight, scope)

	polarity, scope = filter.Analyze(spanOf(t, raw, "Headache", types.TagHeadache), text)
	require.Equal(t, types.PolarityPositive, polarity)
	require.Equal(t, types.ScopeMiddle, scope)
}

func TestApply(t *testing.T) {
	filter := NewDefaultFilter()
	raw := "Patient reports fever and denies cough. No chills noted."
	text := types.NewText(raw)
	spans := []types.Span{
		spanOf(t, raw, "fever", types.TagFever),
		spanOf(t, raw, "cough", types.TagCough),
		spanOf(t, raw, "chills", types.TagChill),
	}
	kept, suppressed := filter.Apply(spans, text)
	require.Equal(t, spans[:1], kept)
	require.Equal(t, spans[1:], suppressed)
}

func TestCustomRules(t *testing.T) {
	filter, err := NewFilter(types.NegationRules{PreCues: []string{"free of"}})
	require.NoError(t, err)

	raw := "Patient denies fever and is free of cough"
	text := types.NewText(raw)
	require.True(t, filter.IsNegated(spanOf(t, raw, "cough", types.TagCough), text))
	require.False(t, filter.IsNegated(spanOf(t, raw, "fever", types.TagFever), text))

	filter, err = NewFilter(types.NegationRules{PreWindow: 5})
	require.NoError(t, err)
	raw = "Patient denies fever"
	require.False(t, filter.IsNegated(spanOf(t, raw, "fever", types.TagFever), types.NewText(raw)))

	_, err = NewFilter(types.NegationRules{PreCues: []string{"  "}})
	require.ErrorIs(t, err, ErrNoCues)

	_, err = NewFilter(types.NegationRules{PreWindow: -1})
	require.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	content := "pre_window: 80\npost_cues:\n  - \"ruled out\"\nscope_connectives:\n  - but\n"
	require.NoError(t, os.WriteFile(rulesPath, []byte(content), 0o600))

	rules, err := LoadRules(rulesPath)
	require.NoError(t, err)
	require.Equal(t, 80, rules.PreWindow)
	require.Equal(t, DefaultPostWindow, rules.PostWindow)
	require.Equal(t, []string{"ruled out"}, rules.PostCues)
	require.Equal(t, []string{"but"}, rules.ScopeConnectives)
	require.Equal(t, getPreNegationCues(), rules.PreCues)

	_, err = LoadRules(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
