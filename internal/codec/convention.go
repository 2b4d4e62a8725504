package codec

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/typeshape/internal/transform"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Textual conventions. Each kind writes exactly one; date-time also
// reads the date and time layouts.
const (
	DateTimeLayout = time.RFC3339Nano
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05.999999999"
)

// ParseString parses s into a value of kind k by the kind's convention.
// Transformed string kinds parse into the value their target kind holds.
// A string that does not follow the convention reports false.
func ParseString(k typegraph.Kind, s string) (any, bool) {
	switch transform.TargetKind(k) {
	case typegraph.KindString:
		return s, true
	case typegraph.KindDateTime:
		// date-time is what dates and times fold into, so it reads both.
		for _, layout := range []string{DateTimeLayout, DateLayout, TimeLayout} {
			if t, ok := parseTime(layout, s); ok {
				return t, true
			}
		}
		return nil, false
	case typegraph.KindDate:
		return parseTime(DateLayout, s)
	case typegraph.KindTime:
		return parseTime(TimeLayout, s)
	case typegraph.KindUUID:
		if len(s) != 36 {
			return nil, false
		}
		id, err := uuid.Parse(s)
		return id, err == nil
	case typegraph.KindURI:
		u, err := url.Parse(s)
		if err != nil || !u.IsAbs() {
			return nil, false
		}
		return u, true
	case typegraph.KindInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case typegraph.KindBool:
		switch s {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return nil, false
}

func parseTime(layout, s string) (any, bool) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Stringify formats v, a value of kind k, by the kind's convention.
func Stringify(k typegraph.Kind, v any) (string, bool) {
	switch transform.TargetKind(k) {
	case typegraph.KindString:
		s, ok := v.(string)
		return s, ok
	case typegraph.KindDateTime:
		return formatTime(DateTimeLayout, v)
	case typegraph.KindDate:
		return formatTime(DateLayout, v)
	case typegraph.KindTime:
		return formatTime(TimeLayout, v)
	case typegraph.KindUUID:
		id, ok := v.(uuid.UUID)
		if !ok {
			return "", false
		}
		return id.String(), true
	case typegraph.KindURI:
		u, ok := v.(*url.URL)
		if !ok || u == nil {
			return "", false
		}
		return u.String(), true
	case typegraph.KindInteger:
		n, ok := asInt(v)
		if !ok {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	case typegraph.KindBool:
		b, ok := v.(bool)
		if !ok {
			return "", false
		}
		return strconv.FormatBool(b), true
	}
	return "", false
}

func formatTime(layout string, v any) (string, bool) {
	t, ok := v.(time.Time)
	if !ok {
		return "", false
	}
	return t.Format(layout), true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
