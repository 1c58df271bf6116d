package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// WorkspaceFileName is the per-project overlay looked up from the working
// directory upward.
const WorkspaceFileName = ".ctxbridge.yaml"

// Environment variables that override file settings.
const (
	EnvServiceURL    = "CTXBRIDGE_SERVICE_URL"
	EnvLevel         = "CTXBRIDGE_LEVEL"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvOpenAIModel   = "OPENAI_MODEL"
)

var validate = validator.New()

// LoadOptions says where to look for configuration.
type LoadOptions struct {
	HomeDir    string
	GlobalFile string
	// StartDir is where the workspace overlay search begins. When no
	// overlay is found, StartDir is the workspace root.
	StartDir string
}

// Loaded is a merged configuration and where it came from.
type Loaded struct {
	*Config
	WorkspaceRoot string
	Sources       []string
}

// Load merges defaults, the global file, the workspace overlay, the
// workspace .env file and environment overrides, then validates.
func Load(opts LoadOptions) (*Loaded, error) {
	cfg := Default(opts.HomeDir)
	var sources []string

	if opts.GlobalFile != "" {
		overlay, err := readFile(opts.GlobalFile)
		if err != nil {
			return nil, err
		}
		if overlay != nil {
			if err := Merge(cfg, overlay); err != nil {
				return nil, err
			}
			sources = append(sources, opts.GlobalFile)
		}
	}

	root := opts.StartDir
	if path := FindWorkspaceFile(opts.StartDir); path != "" {
		overlay, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := Merge(cfg, overlay); err != nil {
			return nil, err
		}
		sources = append(sources, path)
		root = filepath.Dir(path)
	}

	if root != "" {
		envFile := filepath.Join(root, ".env")
		if err := godotenv.Load(envFile); err == nil {
			sources = append(sources, envFile)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	ApplyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Loaded{Config: cfg, WorkspaceRoot: root, Sources: sources}, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Merge applies overlay on top of base. Non-zero overlay scalars win;
// lists are concatenated and deduplicated.
func Merge(base, overlay *Config) error {
	if overlay == nil {
		return nil
	}
	// mergo never overrides with a zero value, so an explicit false is
	// applied by hand.
	src := *overlay
	autoTrack := src.AutoTrack
	src.AutoTrack = nil

	if err := mergo.Merge(base, src, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	if autoTrack != nil {
		v := *autoTrack
		base.AutoTrack = &v
	}
	base.ExtensionDirs = lo.Uniq(base.ExtensionDirs)
	base.IgnorePatterns = lo.Uniq(base.IgnorePatterns)
	return nil
}

// FindWorkspaceFile walks from dir to the filesystem root and returns the
// first WorkspaceFileName found, or "".
func FindWorkspaceFile(dir string) string {
	if dir == "" {
		return ""
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, WorkspaceFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overrides settings from the environment.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvServiceURL)); v != "" {
		cfg.ServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLevel)); v != "" {
		cfg.EnhancementLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOpenAIKey)); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOpenAIBaseURL)); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOpenAIModel)); v != "" {
		cfg.OpenAI.Model = v
	}
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			})
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
