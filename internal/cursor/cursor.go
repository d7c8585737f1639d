package cursor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Map is an ordered mapping from target identifier to the last tweet id we
// reacted to. Order is preserved so the encoded artifact stays stable across
// runs that change nothing.
type Map struct {
	keys   []string
	values map[string]string
}

// NewMap returns an empty cursor map.
func NewMap() *Map {
	return &Map{values: map[string]string{}}
}

// Parse decodes the persisted `["key:value", ...]` encoding. Malformed
// payloads yield an empty map plus the decode error so callers can warn and
// carry on; losing cursor continuity is recoverable.
func Parse(encoded string) (*Map, error) {
	m := NewMap()
	if strings.TrimSpace(encoded) == "" {
		return m, nil
	}
	var tokens []string
	if err := json.Unmarshal([]byte(encoded), &tokens); err != nil {
		return NewMap(), fmt.Errorf("failed to parse cursor map: %w", err)
	}
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, ":")
		if !ok || key == "" || value == "" {
			continue
		}
		m.Set(key, value)
	}
	return m, nil
}

// Get returns the cursor for key, or "" when none is stored.
func (m *Map) Get(key string) string { return m.values[key] }

// Set stores or replaces the cursor for key, keeping first-insertion order.
func (m *Map) Set(key, value string) {
	if _, seen := m.values[key]; !seen {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Len returns the number of stored cursors.
func (m *Map) Len() int { return len(m.keys) }

// Encode serializes the map back into the artifact encoding.
func (m *Map) Encode() string {
	tokens := make([]string, 0, len(m.keys))
	for _, key := range m.keys {
		tokens = append(tokens, key+":"+m.values[key])
	}
	b, _ := json.Marshal(tokens)
	return string(b)
}
