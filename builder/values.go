package builder

import (
	"fmt"
	"reflect"

	"github.com/kisielk/sqlstruct"
)

// Struct fields map to columns through the `db` tag, falling back to the
// snake_case field name.
func init() {
	sqlstruct.TagName = "db"
	sqlstruct.NameMapper = sqlstruct.ToSnakeCase
}

// ColumnValues converts a struct (or pointer to struct) into Data for Insert
// and Update. Unexported fields and fields tagged `db:"-"` are skipped;
// embedded structs are flattened.
func ColumnValues(model any) (Data, error) {
	val := reflect.ValueOf(model)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("column values: nil %T", model)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("column values: expected struct, got %s", val.Kind())
	}

	data := Data{}
	collectFields(val, data)
	if len(data) == 0 {
		return nil, NewConfigError("columnValues", ErrEmptyData)
	}
	return data, nil
}

func collectFields(val reflect.Value, data Data) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(val.Field(i), data)
			continue
		}
		column, ok := columnName(field)
		if !ok {
			continue
		}
		data[column] = val.Field(i).Interface()
	}
}

// columnName returns the column a struct field maps to.
func columnName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}
	tag := field.Tag.Get(sqlstruct.TagName)
	if tag == "-" {
		return "", false
	}
	if tag == "" {
		tag = sqlstruct.NameMapper(field.Name)
	}
	return tag, true
}
