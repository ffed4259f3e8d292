package builder

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/guadalsistema/querybuilder/typeconv"
)

// GetInto runs the SELECT and decodes every row into dest, which must be a
// pointer to a slice of structs or struct pointers. Values are converted
// through the dialect's type registry, so SQLite text timestamps land in
// time.Time fields.
func (b *QueryBuilder) GetInto(ctx context.Context, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return NewConfigError("getInto", fmt.Errorf("dest must be a non-nil pointer to a slice"))
	}
	sliceVal := rv.Elem()
	if sliceVal.Kind() != reflect.Slice {
		return NewConfigError("getInto", fmt.Errorf("dest must be a pointer to a slice"))
	}

	elemType := sliceVal.Type().Elem()
	structType := elemType
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return NewConfigError("getInto", fmt.Errorf("unsupported element type %s", elemType))
	}

	rows, err := b.Get(ctx)
	if err != nil {
		return err
	}

	registry := b.registry()
	out := reflect.MakeSlice(sliceVal.Type(), 0, len(rows))
	for _, row := range rows {
		elem := reflect.New(structType)
		if err := decodeRow(registry, row, elem.Elem()); err != nil {
			return NewExecError("getInto", "", err)
		}
		if elemType.Kind() == reflect.Ptr {
			out = reflect.Append(out, elem)
		} else {
			out = reflect.Append(out, elem.Elem())
		}
	}
	sliceVal.Set(out)
	return nil
}

func (b *QueryBuilder) registry() *typeconv.Registry {
	if b.conn != nil && b.conn.Dialect() != nil {
		if r := b.conn.Dialect().TypeRegistry(); r != nil {
			return r
		}
	}
	return typeconv.NewRegistry()
}

// decodeRow assigns row values to the matching fields of val. Columns without
// a field are ignored.
func decodeRow(registry *typeconv.Registry, row Row, val reflect.Value) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := decodeRow(registry, row, val.Field(i)); err != nil {
				return err
			}
			continue
		}
		column, ok := columnName(field)
		if !ok {
			continue
		}
		raw, present := row[column]
		if !present {
			continue
		}
		if err := assignField(registry, val.Field(i), raw); err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
	}
	return nil
}

func assignField(registry *typeconv.Registry, field reflect.Value, raw any) error {
	target := field.Type()
	if target.Kind() == reflect.Ptr {
		if raw == nil {
			field.Set(reflect.Zero(target))
			return nil
		}
		ptr := reflect.New(target.Elem())
		if err := assignValue(registry, ptr.Elem(), raw); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}
	return assignValue(registry, field, raw)
}

// assignValue prefers a converter registered for the target type, then the
// field's own sql.Scanner, then plain registry conversion.
func assignValue(registry *typeconv.Registry, field reflect.Value, raw any) error {
	target := field.Type()
	if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
		if raw == nil || !registry.NeedsConversion(reflect.TypeOf(raw), target) {
			return scanner.Scan(raw)
		}
	}

	conv := registry.CreateScanner(target)
	if err := conv.Scan(raw); err != nil {
		return err
	}
	if conv.Result() == nil {
		field.Set(reflect.Zero(target))
		return nil
	}
	field.Set(reflect.ValueOf(conv.Result()))
	return nil
}
