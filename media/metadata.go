// SPDX-License-Identifier: EPL-2.0

package media

import "strings"

// Tag is a single metadata entry.
type Tag struct {
	Key   string
	Value string
}

// Metadata is an ordered list of container or stream tags. Keys keep the
// spelling the container used; lookups ignore case. Duplicate keys are
// allowed (Vorbis comments repeat ARTIST, for example).
type Metadata []Tag

// Get returns the first value stored under key.
func (m Metadata) Get(key string) (string, bool) {
	for _, t := range m {
		if strings.EqualFold(t.Key, key) {
			return t.Value, true
		}
	}
	return "", false
}

// All returns every value stored under key, in container order.
func (m Metadata) All(key string) []string {
	var out []string
	for _, t := range m {
		if strings.EqualFold(t.Key, key) {
			out = append(out, t.Value)
		}
	}
	return out
}

// Add appends a tag unless value is empty.
func (m *Metadata) Add(key, value string) {
	if value == "" {
		return
	}
	*m = append(*m, Tag{Key: key, Value: value})
}
