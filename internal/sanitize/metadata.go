package sanitize

import (
	"maps"
	"sort"
)

const (
	DefaultMetadataMaxEntries    = 32
	DefaultMetadataMaxKeyRunes   = 64
	DefaultMetadataMaxValueRunes = 512
	DefaultMetadataMaxTotalBytes = 8192
)

// MetadataLimits bounds batch metadata shipped with analytics events.
type MetadataLimits struct {
	MaxEntries    int
	MaxKeyRunes   int
	MaxValueRunes int
	MaxTotalBytes int
}

// DefaultMetadataLimits returns the limits applied to outgoing batches.
func DefaultMetadataLimits() MetadataLimits {
	return MetadataLimits{
		MaxEntries:    DefaultMetadataMaxEntries,
		MaxKeyRunes:   DefaultMetadataMaxKeyRunes,
		MaxValueRunes: DefaultMetadataMaxValueRunes,
		MaxTotalBytes: DefaultMetadataMaxTotalBytes,
	}
}

// MetadataAccumulator applies lossy metadata normalization:
// keys/values are trimmed and rune-limited, entries over limits are dropped.
type MetadataAccumulator struct {
	limits  MetadataLimits
	entries map[string]string
	total   int
}

func NewMetadataAccumulator(base map[string]string, limits MetadataLimits) *MetadataAccumulator {
	acc := &MetadataAccumulator{
		limits: limits,
	}
	acc.Merge(base)
	return acc
}

func (m *MetadataAccumulator) Merge(src map[string]string) {
	if len(src) == 0 {
		return
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		m.Add(key, src[key])
	}
}

func (m *MetadataAccumulator) Add(key, value string) {
	key = TrimToRunes(key, m.limits.MaxKeyRunes)
	if key == "" {
		return
	}
	value = TrimToRunes(value, m.limits.MaxValueRunes)

	if m.entries == nil {
		m.entries = make(map[string]string)
	}

	if m.limits.MaxEntries > 0 && len(m.entries) >= m.limits.MaxEntries {
		if _, exists := m.entries[key]; !exists {
			return
		}
	}

	addition := len(key) + len(value)
	if existing, ok := m.entries[key]; ok {
		m.total -= len(key) + len(existing)
	}

	if m.limits.MaxTotalBytes > 0 && m.total+addition > m.limits.MaxTotalBytes {
		if existing, ok := m.entries[key]; ok {
			m.total += len(key) + len(existing)
		}
		return
	}

	m.entries[key] = value
	m.total += addition
}

func (m *MetadataAccumulator) Result() map[string]string {
	if len(m.entries) == 0 {
		return nil
	}
	return maps.Clone(m.entries)
}
