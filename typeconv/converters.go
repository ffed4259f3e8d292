package typeconv

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// StringToTime parses the timestamp layouts produced by SQLite and MySQL text
// columns.
func StringToTime(source interface{}) (interface{}, error) {
	s, ok := source.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", source)
	}

	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("cannot parse time string %q: %w", s, lastErr)
}

// Int64ToTime converts a Unix timestamp to time.Time.
func Int64ToTime(source interface{}) (interface{}, error) {
	i, ok := source.(int64)
	if !ok {
		return nil, fmt.Errorf("expected int64, got %T", source)
	}
	return time.Unix(i, 0).UTC(), nil
}

// BytesToString turns driver byte slices into strings.
func BytesToString(source interface{}) (interface{}, error) {
	b, ok := source.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected []byte, got %T", source)
	}
	return string(b), nil
}

// DefaultTimeConverter handles every source type seen for time.Time targets.
func DefaultTimeConverter(source interface{}) (interface{}, error) {
	switch v := source.(type) {
	case time.Time:
		return v, nil
	case string:
		return StringToTime(v)
	case []byte:
		return StringToTime(string(v))
	case int64:
		return Int64ToTime(v)
	default:
		return nil, fmt.Errorf("cannot convert %T to time.Time", source)
	}
}

// DefaultNullTimeConverter handles every source type seen for sql.NullTime targets.
func DefaultNullTimeConverter(source interface{}) (interface{}, error) {
	if source == nil {
		return sql.NullTime{}, nil
	}
	if nt, ok := source.(sql.NullTime); ok {
		return nt, nil
	}
	t, err := DefaultTimeConverter(source)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t.(time.Time), Valid: true}, nil
}

// ToInt64 converts the representations drivers use for integer aggregates.
func ToInt64(source interface{}) (int64, error) {
	switch v := source.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", source)
	}
}

// ToBool converts the representations drivers use for boolean results
// (SQLite and MySQL return 0/1 integers).
func ToBool(source interface{}) (bool, error) {
	switch v := source.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", source)
	}
}

// DefaultBoolConverter adapts ToBool to a ConverterFunc.
func DefaultBoolConverter(source interface{}) (interface{}, error) {
	return ToBool(source)
}

// DefaultInt64Converter adapts ToInt64 to a ConverterFunc.
func DefaultInt64Converter(source interface{}) (interface{}, error) {
	return ToInt64(source)
}

// DefaultFloat64Converter adapts ToFloat64 to a ConverterFunc.
func DefaultFloat64Converter(source interface{}) (interface{}, error) {
	return ToFloat64(source)
}

// ToFloat64 converts numeric driver values, including MySQL DECIMAL text.
func ToFloat64(source interface{}) (float64, error) {
	switch v := source.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", source)
	}
}
