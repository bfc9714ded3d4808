package utils

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FieldErrors collects validation messages keyed by query parameter name.
type FieldErrors map[string][]string

func (fe *FieldErrors) Add(field, msg string) {
	if *fe == nil {
		*fe = make(FieldErrors)
	}
	(*fe)[field] = append((*fe)[field], msg)
}

// ParseFloatParam reads an optional float parameter. ok is false when the
// parameter is absent or invalid; invalid values are recorded in errs.
func ParseFloatParam(query url.Values, name string, errs *FieldErrors) (value float64, ok bool) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errs.Add(name, "must be a valid number")
		return 0, false
	}
	return f, true
}

// ParseIntParam reads an optional integer parameter within [min, max],
// returning def when absent.
func ParseIntParam(query url.Values, name string, def, min, max int, errs *FieldErrors) int {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(name, "must be a valid integer")
		return def
	}
	if n < min || n > max {
		errs.Add(name, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
		return def
	}
	return n
}

// ParseBoolParam reads an optional boolean parameter, returning def when absent.
func ParseBoolParam(query url.Values, name string, def bool, errs *FieldErrors) bool {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		errs.Add(name, "must be true or false")
		return def
	}
	return b
}

// ParseTimeParam accepts either Unix milliseconds or RFC3339.
func ParseTimeParam(query url.Values, name string, def time.Time, errs *FieldErrors) time.Time {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).In(def.Location())
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	errs.Add(name, "must be Unix milliseconds or an RFC3339 timestamp")
	return def
}

// ParseListParam splits a comma-separated parameter, dropping empty entries.
func ParseListParam(query url.Values, name string) []string {
	raw := query.Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
