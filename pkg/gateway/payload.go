package gateway

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Payload is one raw JSON object carried by a dispatch frame.
//
// Field reads follow gateway partial-update rules: a key that is present is
// applied even when its value is null, and an absent key means "unchanged".
type Payload []byte

// Get returns the value at path using gjson path syntax.
func (p Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p, path)
}

// Has reports whether key is present, including keys holding null.
func (p Payload) Has(key string) bool {
	return p.Get(key).Exists()
}

// IsNull reports whether key is present with an explicit null value.
func (p Payload) IsNull(key string) bool {
	result := p.Get(key)

	return result.Exists() && result.Type == gjson.Null
}

// String returns key as a string, or "" when absent or null.
func (p Payload) String(key string) string {
	result := p.Get(key)
	if result.Type == gjson.Null {
		return ""
	}

	return result.String()
}

// Int returns key as an integer, or 0 when absent or null.
func (p Payload) Int(key string) int64 {
	return p.Get(key).Int()
}

// Bool returns key as a boolean, or false when absent or null.
func (p Payload) Bool(key string) bool {
	return p.Get(key).Bool()
}

// Time parses key as an RFC 3339 timestamp.
func (p Payload) Time(key string) (time.Time, bool) {
	raw := p.String(key)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}

	return parsed.UTC(), true
}

// Object returns the nested object at key.
func (p Payload) Object(key string) (Payload, bool) {
	result := p.Get(key)
	if !result.IsObject() {
		return nil, false
	}

	return Payload(result.Raw), true
}

// Objects returns every object element of the array at key.
func (p Payload) Objects(key string) []Payload {
	result := p.Get(key)
	if !result.IsArray() {
		return nil
	}

	elements := result.Array()
	objects := make([]Payload, 0, len(elements))
	for _, element := range elements {
		if !element.IsObject() {
			continue
		}
		objects = append(objects, Payload(element.Raw))
	}

	return objects
}

// Strings returns every scalar element of the array at key as strings.
func (p Payload) Strings(key string) []string {
	result := p.Get(key)
	if !result.IsArray() {
		return nil
	}

	elements := result.Array()
	values := make([]string, 0, len(elements))
	for _, element := range elements {
		values = append(values, element.String())
	}

	return values
}

// Valid reports whether the payload is well-formed JSON.
func (p Payload) Valid() bool {
	return len(p) > 0 && gjson.ValidBytes(p)
}

// With returns a copy of the payload with key set to the raw JSON value.
func (p Payload) With(key string, value Payload) (Payload, error) {
	base := p.clone()
	if len(base) == 0 {
		base = Payload("{}")
	}
	merged, err := sjson.SetRawBytes(base, key, value)
	if err != nil {
		return nil, fmt.Errorf("payload set %s: %w", key, err)
	}

	return merged, nil
}

// WithString returns a copy of the payload with key set to a string value.
func (p Payload) WithString(key string, value string) (Payload, error) {
	base := p.clone()
	if len(base) == 0 {
		base = Payload("{}")
	}
	merged, err := sjson.SetBytes(base, key, value)
	if err != nil {
		return nil, fmt.Errorf("payload set %s: %w", key, err)
	}

	return merged, nil
}

func (p Payload) clone() Payload {
	if p == nil {
		return nil
	}

	return append(Payload(nil), p...)
}
