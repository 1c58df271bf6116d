// Package config loads ctxbridge settings from the global config file, a
// workspace overlay, a workspace .env file and the environment.
package config

import (
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/extensions"
)

// OpenAIConfig configures the chat model used by `ctxbridge ask`.
type OpenAIConfig struct {
	BaseURL string `yaml:"baseURL,omitempty" validate:"omitempty,url"`
	Model   string `yaml:"model,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// Config holds every ctxbridge setting.
type Config struct {
	ServiceURL string `yaml:"serviceURL,omitempty" validate:"required,url"`

	// EnhancementLevel is minimal, standard or maximum. Other values are
	// accepted and treated as maximum.
	EnhancementLevel string `yaml:"enhancementLevel,omitempty"`

	AutoTrack        *bool         `yaml:"autoTrack,omitempty"`
	TrackingInterval time.Duration `yaml:"trackingInterval,omitempty" validate:"gt=0"`

	RecentWindowMinutes   int `yaml:"recentWindowMinutes,omitempty" validate:"min=1"`
	ActivityWindowMinutes int `yaml:"activityWindowMinutes,omitempty" validate:"min=1"`

	ChangeCapacity    int `yaml:"changeCapacity,omitempty" validate:"min=1"`
	SaveCapacity      int `yaml:"saveCapacity,omitempty" validate:"min=1"`
	SelectionCapacity int `yaml:"selectionCapacity,omitempty" validate:"min=1"`

	HeuristicThreshold int `yaml:"heuristicThreshold,omitempty" validate:"min=1,max=4"`

	ActivationTimeout time.Duration `yaml:"activationTimeout,omitempty" validate:"gt=0"`
	RequestTimeout    time.Duration `yaml:"requestTimeout,omitempty" validate:"gt=0"`

	ExtensionDirs  []string `yaml:"extensionDirs,omitempty"`
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	BridgeAddr string `yaml:"bridgeAddr,omitempty" validate:"required,hostname_port"`
	LogLevel   string `yaml:"logLevel,omitempty" validate:"oneof=debug info warn error"`

	OpenAI OpenAIConfig `yaml:"openai,omitempty"`
}

// Default returns the built-in settings for a user whose home directory
// is home.
func Default(home string) *Config {
	autoTrack := true
	return &Config{
		ServiceURL:            "http://127.0.0.1:8787",
		EnhancementLevel:      "standard",
		AutoTrack:             &autoTrack,
		TrackingInterval:      5 * time.Second,
		RecentWindowMinutes:   10,
		ActivityWindowMinutes: 60,
		ChangeCapacity:        100,
		SaveCapacity:          50,
		SelectionCapacity:     20,
		HeuristicThreshold:    2,
		ActivationTimeout:     5 * time.Second,
		RequestTimeout:        10 * time.Second,
		ExtensionDirs:         extensions.DefaultDirs(home),
		IgnorePatterns:        []string{".git", "node_modules", "vendor", "dist", "build", ".idea", ".vscode"},
		BridgeAddr:            "127.0.0.1:7878",
		LogLevel:              "info",
	}
}

// Tracking reports whether the watch daemon should start tracking
// immediately.
func (c *Config) Tracking() bool {
	return c.AutoTrack == nil || *c.AutoTrack
}

// RecentWindow is RecentWindowMinutes as a duration.
func (c *Config) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowMinutes) * time.Minute
}

// ActivityWindow is ActivityWindowMinutes as a duration.
func (c *Config) ActivityWindow() time.Duration {
	return time.Duration(c.ActivityWindowMinutes) * time.Minute
}
