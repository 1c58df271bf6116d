// Package enhance splices knowledge-service context and live editing state
// into user prompts before they reach an AI provider.
package enhance

import "strings"

// Level selects how much context is added to a prompt.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelMaximum  Level = "maximum"
)

// Levels lists the recognized levels, least context first.
var Levels = []Level{LevelMinimal, LevelStandard, LevelMaximum}

// ParseLevel maps a configuration value to a Level. Anything unrecognized,
// including the empty string, selects LevelMaximum.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelMinimal:
		return LevelMinimal
	case LevelStandard:
		return LevelStandard
	default:
		return LevelMaximum
	}
}

func (l Level) String() string {
	return string(l)
}
