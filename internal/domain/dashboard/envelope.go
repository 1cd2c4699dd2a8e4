package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The points backend has shipped two response shapes for the same list
// endpoints: a bare JSON array, and an object that wraps the array under a
// named key. Everything that sniffs those shapes lives in this file so it can
// go away once the backend settles on one.

type envelopeShape int

const (
	shapeUnknown envelopeShape = iota
	shapeEmpty
	shapeArray
	shapeEnvelope
)

func (s envelopeShape) String() string {
	switch s {
	case shapeEmpty:
		return "empty"
	case shapeArray:
		return "array"
	case shapeEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// unwrapList extracts the row list from raw. Arrays are checked before
// envelopes; keys are tried in order. The envelope object is returned so
// callers can read sibling fields such as totals.
func unwrapList(raw json.RawMessage, keys ...string) ([]json.RawMessage, map[string]json.RawMessage, envelopeShape) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, shapeEmpty
	}
	switch trimmed[0] {
	case '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, nil, shapeUnknown
		}
		return rows, nil, shapeArray
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, nil, shapeUnknown
		}
		for _, key := range keys {
			value, ok := obj[key]
			if !ok {
				continue
			}
			value = bytes.TrimSpace(value)
			if len(value) == 0 || value[0] != '[' {
				continue
			}
			var rows []json.RawMessage
			if err := json.Unmarshal(value, &rows); err != nil {
				continue
			}
			return rows, obj, shapeEnvelope
		}
		return nil, obj, shapeUnknown
	default:
		return nil, nil, shapeUnknown
	}
}

// flexInt accepts JSON numbers, numeric strings and null.
type flexInt struct {
	value int64
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.value, f.set = n, true
		return nil
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		f.value, f.set = int64(math.Round(fl)), true
		return nil
	}
	return fmt.Errorf("not a number: %q", s)
}

func (f flexInt) int() int {
	return int(f.value)
}

func firstSet(values ...flexInt) (flexInt, bool) {
	for _, v := range values {
		if v.set {
			return v, true
		}
	}
	return flexInt{}, false
}

// readInt reads a numeric sibling field from an envelope, trying keys in order.
func readInt(obj map[string]json.RawMessage, keys ...string) (int, bool) {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var v flexInt
		if err := json.Unmarshal(raw, &v); err != nil || !v.set {
			continue
		}
		return v.int(), true
	}
	return 0, false
}
