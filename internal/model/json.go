package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// flexInt decodes from a JSON number, a numeric string, a string with a
// leading number ("12 minutes"), or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		*f = flexInt(int(math.Round(v)))
		return nil
	}
	if n, ok := leadingInt(s); ok {
		*f = flexInt(n)
		return nil
	}
	return fmt.Errorf("not an integer: %s", data)
}

func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// flexString decodes from a JSON string or the literal text of a number or
// boolean.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*f = ""
		return nil
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return fmt.Errorf("not a string: %s", data)
	}
	*f = flexString(s)
	return nil
}

// flexStrings decodes from a list of scalars or from a single
// comma-separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		out := flexStrings{}
		for _, part := range strings.Split(one, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
		return nil
	}
	var list []flexString
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	out := make(flexStrings, len(list))
	for i, v := range list {
		out[i] = string(v)
	}
	*f = out
	return nil
}

// fields decodes the members of one JSON object independently, so a value
// of the wrong shape only loses that member. Members that fail stay in raw
// and are listed in loose.
type fields struct {
	raw   map[string]json.RawMessage
	loose []string
}

func newFields(data []byte) (*fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	return &fields{raw: raw}, nil
}

func decodeField[T any](f *fields, key string, dst *T) {
	msg, ok := f.raw[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		f.loose = append(f.loose, key)
		return
	}
	*dst = v
	delete(f.raw, key)
}

// extra returns the members that were not decoded into a typed field.
func (f *fields) extra() map[string]json.RawMessage {
	if len(f.raw) == 0 {
		return nil
	}
	return f.raw
}

// mergeExtra encodes v and adds the extra members. An extra member replaces
// a typed member only while the typed value is empty, which is how a loose
// value read from disk is written back unchanged.
func mergeExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if cur, ok := merged[k]; ok && !emptyJSON(cur) {
			continue
		}
		if len(bytes.TrimSpace(val)) == 0 {
			continue
		}
		merged[k] = val
	}
	return json.Marshal(merged)
}

func emptyJSON(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "", "null", "0", `""`, "[]", "{}", "false":
		return true
	}
	return false
}
