package provider

import (
	"sort"
	"strings"
)

// Detector classifies extension metadata into provider descriptors.
// The zero value uses DefaultThreshold.
type Detector struct {
	// Threshold is the minimum number of true indicators for an unknown
	// extension to be classified as a provider.
	Threshold int
}

// Detect runs a detection pass with the default threshold.
func Detect(exts []ExtensionMetadata) []ProviderDescriptor {
	return Detector{}.Detect(exts)
}

// IsProvider reports whether an unknown extension passes the heuristic.
func (d Detector) IsProvider(meta ExtensionMetadata) bool {
	return Score(meta).Count() >= d.threshold()
}

// Detect returns the providers among exts, de-duplicated by id (first
// occurrence wins) and sorted by display name, case-insensitively.
// It has no side effects.
func (d Detector) Detect(exts []ExtensionMetadata) []ProviderDescriptor {
	seen := make(map[string]struct{}, len(exts))
	out := make([]ProviderDescriptor, 0)

	for _, meta := range exts {
		id := strings.TrimSpace(meta.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if IsKnownProvider(id) {
			out = append(out, knownDescriptor(id))
			continue
		}

		if !d.IsProvider(meta) {
			continue
		}

		name := strings.TrimSpace(meta.DisplayName)
		if name == "" {
			name = id
		}
		out = append(out, ProviderDescriptor{
			ID:           id,
			DisplayName:  name,
			Capabilities: InferCapabilities(meta),
			IsKnown:      false,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return lessByDisplayName(out[i], out[j])
	})
	return out
}

func (d Detector) threshold() int {
	if d.Threshold <= 0 {
		return DefaultThreshold
	}
	return d.Threshold
}
