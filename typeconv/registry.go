package typeconv

import (
	"database/sql"
	"fmt"
	"reflect"
)

// ConverterFunc converts a source value to a target type.
type ConverterFunc func(source interface{}) (interface{}, error)

// TypePair represents a pair of source and target types.
type TypePair struct {
	Source reflect.Type
	Target reflect.Type
}

// Registry manages conversions between driver values and Go types.
//
// Converters apply when decoding into a known target type. Normalizers apply
// to raw driver values before they are handed to callers as row maps, e.g. the
// MySQL driver returning []byte for text columns.
type Registry struct {
	converters  map[TypePair]ConverterFunc
	defaults    map[reflect.Type]ConverterFunc
	normalizers map[reflect.Type]ConverterFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		converters:  make(map[TypePair]ConverterFunc),
		defaults:    make(map[reflect.Type]ConverterFunc),
		normalizers: make(map[reflect.Type]ConverterFunc),
	}
}

// Register registers a converter for a source->target type pair.
func (r *Registry) Register(sourceType, targetType reflect.Type, converter ConverterFunc) {
	r.converters[TypePair{Source: sourceType, Target: targetType}] = converter
}

// RegisterDefault registers a converter used for targetType when no pair
// specific converter exists.
func (r *Registry) RegisterDefault(targetType reflect.Type, converter ConverterFunc) {
	r.defaults[targetType] = converter
}

// RegisterNormalizer registers a converter applied to every driver value of
// sourceType by Normalize.
func (r *Registry) RegisterNormalizer(sourceType reflect.Type, converter ConverterFunc) {
	r.normalizers[sourceType] = converter
}

// Normalize rewrites a raw driver value using the normalizer registered for
// its type. Values without a normalizer are returned unchanged.
func (r *Registry) Normalize(source interface{}) (interface{}, error) {
	if r == nil || source == nil {
		return source, nil
	}
	if fn, ok := r.normalizers[reflect.TypeOf(source)]; ok {
		return fn(source)
	}
	return source, nil
}

// Convert converts a source value to the target type using registered converters.
func (r *Registry) Convert(source interface{}, targetType reflect.Type) (interface{}, error) {
	if source == nil {
		if isNullableType(targetType) {
			return reflect.Zero(targetType).Interface(), nil
		}
		return nil, fmt.Errorf("cannot convert nil to non-nullable type %v", targetType)
	}

	sourceType := reflect.TypeOf(source)

	if converter, ok := r.converters[TypePair{Source: sourceType, Target: targetType}]; ok {
		return converter(source)
	}

	if sourceType.AssignableTo(targetType) {
		return source, nil
	}

	if converter, ok := r.defaults[targetType]; ok {
		return converter(source)
	}

	if sourceType.ConvertibleTo(targetType) && sameKindFamily(sourceType, targetType) {
		return reflect.ValueOf(source).Convert(targetType).Interface(), nil
	}

	return nil, fmt.Errorf("no converter registered for %v -> %v", sourceType, targetType)
}

// NeedsConversion reports whether a value of sourceType must go through the
// registry before it can be assigned to targetType.
func (r *Registry) NeedsConversion(sourceType, targetType reflect.Type) bool {
	if sourceType.AssignableTo(targetType) {
		return false
	}

	_, hasSpecific := r.converters[TypePair{Source: sourceType, Target: targetType}]
	_, hasDefault := r.defaults[targetType]

	return hasSpecific || hasDefault
}

// CreateScanner creates a sql.Scanner that converts into targetType.
func (r *Registry) CreateScanner(targetType reflect.Type) *ConvertingScanner {
	return &ConvertingScanner{
		registry:   r,
		targetType: targetType,
	}
}

// ConvertingScanner runs scanned values through a Registry.
type ConvertingScanner struct {
	registry   *Registry
	targetType reflect.Type
	result     interface{}
}

// Scan implements sql.Scanner.
func (s *ConvertingScanner) Scan(src interface{}) error {
	result, err := s.registry.Convert(src, s.targetType)
	if err != nil {
		return err
	}
	s.result = result
	return nil
}

// Result returns the converted value.
func (s *ConvertingScanner) Result() interface{} {
	return s.result
}

func isNullableType(t reflect.Type) bool {
	switch t {
	case reflect.TypeOf(sql.NullBool{}),
		reflect.TypeOf(sql.NullByte{}),
		reflect.TypeOf(sql.NullFloat64{}),
		reflect.TypeOf(sql.NullInt16{}),
		reflect.TypeOf(sql.NullInt32{}),
		reflect.TypeOf(sql.NullInt64{}),
		reflect.TypeOf(sql.NullString{}),
		reflect.TypeOf(sql.NullTime{}):
		return true
	}

	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}

	return false
}

// sameKindFamily limits reflect conversions to numeric<->numeric and
// string<->string so that e.g. int64 is never silently turned into a rune string.
func sameKindFamily(a, b reflect.Type) bool {
	return (isNumeric(a) && isNumeric(b)) || (a.Kind() == reflect.String && b.Kind() == reflect.String)
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
