package negation

import (
	"text2phenotype.com/anneval/types"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

const (
	DefaultPreWindow  = 60
	DefaultPostWindow = 30
)

// Cues ending in a space must be followed by whitespace or the window end.
func getPreNegationCues() []string {
	return []string{
		"deny",
		"denies",
		"no ",
		"not ",
		"doesn't have",
		"did not have",
		"without",
		"negative for",
		"no evidence of",
		"absent",
	}
}

func getPostNegationCues() []string {
	return []string{
		"absent",
		"not found",
		"not present",
		"none",
		": none",
		"negative",
	}
}

func getScopePunctuation() []string {
	return []string{".", "!", "?"}
}

func getScopeConnectives() []string {
	return []string{
		"but",
		"however",
		"although",
		"except",
		"yet",
		"while",
	}
}

func GetDefaultRules() types.NegationRules {
	return types.NegationRules{
		PreWindow:        DefaultPreWindow,
		PostWindow:       DefaultPostWindow,
		PreCues:          getPreNegationCues(),
		PostCues:         getPostNegationCues(),
		ScopePunctuation: getScopePunctuation(),
		ScopeConnectives: getScopeConnectives(),
	}
}

// MergeRules overrides base field by field with the non-zero fields of override.
func MergeRules(base types.NegationRules, override types.NegationRules) types.NegationRules {
	if override.PreWindow > 0 {
		base.PreWindow = override.PreWindow
	}
	if override.PostWindow > 0 {
		base.PostWindow = override.PostWindow
	}
	if len(override.PreCues) > 0 {
		base.PreCues = override.PreCues
	}
	if len(override.PostCues) > 0 {
		base.PostCues = override.PostCues
	}
	if len(override.ScopePunctuation) > 0 {
		base.ScopePunctuation = override.ScopePunctuation
	}
	if len(override.ScopeConnectives) > 0 {
		base.ScopeConnectives = override.ScopeConnectives
	}
	return base
}

// LoadRules reads a YAML rules file and merges it onto the defaults.
func LoadRules(filePath string) (types.NegationRules, error) {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return types.NegationRules{}, err
	}
	var rules types.NegationRules
	if err := yaml.Unmarshal(buf, &rules); err != nil {
		return types.NegationRules{}, fmt.Errorf("failed to parse negation rules %s: %w", filePath, err)
	}
	return MergeRules(GetDefaultRules(), rules), nil
}
