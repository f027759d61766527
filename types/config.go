package types

import (
	"text2phenotype.com/anneval/logger"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultMaxPromptChars = 2000
	DefaultTimeoutSeconds = 180
)

// NegationRules holds the windows and word lists of the negation filter.
// Zero-valued fields mean "use the default".
type NegationRules struct {
	PreWindow        int      `yaml:"pre_window" json:"pre_window,omitempty"`
	PostWindow       int      `yaml:"post_window" json:"post_window,omitempty"`
	PreCues          []string `yaml:"pre_cues" json:"pre_cues,omitempty"`
	PostCues         []string `yaml:"post_cues" json:"post_cues,omitempty"`
	ScopePunctuation []string `yaml:"scope_punctuation" json:"scope_punctuation,omitempty"`
	ScopeConnectives []string `yaml:"scope_connectives" json:"scope_connectives,omitempty"`
}

func (rules NegationRules) IsEmpty() bool {
	return rules.PreWindow == 0 && rules.PostWindow == 0 &&
		len(rules.PreCues) == 0 && len(rules.PostCues) == 0 &&
		len(rules.ScopePunctuation) == 0 && len(rules.ScopeConnectives) == 0
}

// Configuration is one evaluation condition: a model plus the filter setup.
type Configuration struct {
	Name           string        `yaml:"-" json:"name"`
	FilePath       string        `yaml:"-" json:"file_path,omitempty"`
	Model          string        `yaml:"model" json:"model"`
	NegationFilter bool          `yaml:"negation_filter" json:"negation_filter"`
	MaxPromptChars int           `yaml:"max_prompt_chars" json:"max_prompt_chars"`
	TimeoutSeconds int           `yaml:"timeout_seconds" json:"timeout_seconds"`
	Negation       NegationRules `yaml:"negation" json:"negation"`
}

func (cfg Configuration) WithDefaults() Configuration {
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Name == "" {
		cfg.Name = ConditionName(cfg.Model, cfg.NegationFilter)
	}
	return cfg
}

func (cfg Configuration) Validate() error {
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.New("model is required")
	}
	if cfg.Negation.PreWindow < 0 || cfg.Negation.PostWindow < 0 {
		return errors.New("negation windows must not be negative")
	}
	return nil
}

// ConditionName is the label used in reports, e.g. "qwen3:8b | negation=ON".
func ConditionName(model string, negationFilter bool) string {
	state := "OFF"
	if negationFilter {
		state = "ON"
	}
	return fmt.Sprintf("%s | negation=%s", model, state)
}

// ConditionGrid builds one configuration per model with the negation filter
// off and on, in that order.
func ConditionGrid(models []string) []Configuration {
	configs := make([]Configuration, 0, 2*len(models))
	for _, model := range models {
		for _, negationFilter := range []bool{false, true} {
			configs = append(configs, Configuration{
				Model:          model,
				NegationFilter: negationFilter,
			}.WithDefaults())
		}
	}
	return configs
}

// LoadConfigurations reads every *.yaml file of dirPath as a configuration
// named after the file. Broken files are logged and skipped. The result is
// sorted by name.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	cfgLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.DirEntry) {
			defer wg.Done()
			cfg, err := LoadConfiguration(path.Join(dirPath, file.Name()))
			if err != nil {
				cfgLogger.Err(err).Str("file", file.Name()).Msg("Skipping configuration")
				return
			}
			configChan <- cfg
		}(f)
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]Configuration, 0, len(files))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
	return configs, nil
}

func LoadConfiguration(filePath string) (Configuration, error) {
	cfg := Configuration{
		Name:     strings.TrimSuffix(path.Base(filePath), ".yaml"),
		FilePath: filePath,
	}
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration %s: %w", filePath, err)
	}
	return cfg.WithDefaults(), nil
}
