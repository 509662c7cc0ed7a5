package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/relloyd/obspipe/constants"
)

// ToInt64 converts a decoded JSON value to int64.
func ToInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		return floatToInt64(x)
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("value %v is not a whole number", f)
	}
	return int64(f), nil
}

// ToFloat64 converts a decoded JSON value to float64.
func ToFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

// ToBool converts a decoded JSON value to bool.
// Strings accepted are those of strconv.ParseBool; numbers must be 0 or 1.
func ToBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case json.Number, float64, int64, int:
		i, err := ToInt64(x)
		if err != nil {
			return false, err
		}
		if i != 0 && i != 1 {
			return false, fmt.Errorf("cannot convert %v to boolean", i)
		}
		return i == 1, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

// timeLayouts are tried in order when parsing timestamps from the API.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	constants.ApiDateFormat,
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ToTime converts a decoded JSON value to time.Time.
// Timestamps without a zone are taken to be UTC.
func ToTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", x)
	case json.Number, float64, int64, int:
		secs, err := ToInt64(x)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(secs, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to timestamp", v)
	}
}

// Convert returns v as the Go type used to bind values of logical type t:
// int64, float64, bool, string or time.Time (UTC). nil stays nil.
func Convert(v interface{}, t LogicalType) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Integer:
		return ToInt64(v)
	case Float:
		return ToFloat64(v)
	case Boolean:
		return ToBool(v)
	case String:
		return ToString(v)
	case Timestamp:
		ts, err := ToTime(v)
		if err != nil {
			return nil, err
		}
		return ts.UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported logical type %v", t)
	}
}

// ToString converts a decoded JSON value to string. Nested objects and arrays are rendered as JSON.
func ToString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
