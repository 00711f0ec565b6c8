// Package settings decodes the JSON-valued key/value settings table into typed values.
// Every accessor falls back to the zero value when a key is absent or malformed.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
)

type Reader interface {
	GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
}

type Values map[string]json.RawMessage

func (v Values) String(key string) string {
	raw, ok := v[key]
	if !ok || len(raw) == 0 {
		return ""
	}
	// Numbers keep their literal digits so long numeric account ids survive.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		slog.Warn("ignoring malformed setting", "key", key, "error", err)
		return ""
	}
	switch t := decoded.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Bool accepts JSON booleans as well as the strings "true", "1", "yes" and "on".
func (v Values) Bool(key string) bool {
	raw, ok := v[key]
	if !ok || len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch strings.ToLower(v.String(key)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func (v Values) Int(key string, fallback int) int {
	s := v.String(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		slog.Warn("ignoring non-numeric setting", "key", key, "value", s)
		return fallback
	}
	return n
}
