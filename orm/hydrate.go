package orm

import (
	"fmt"
	"reflect"
	"time"

	"github.com/garrypolley/djorm/schema"
)

// hydrate scans one positional row into a fresh instance of T. Column
// order follows the entity's field order, with annotation columns
// appended after. Annotation values land in struct fields whose name
// matches the alias, when such a field exists, and are dropped
// otherwise.
func hydrate[T any](info *schema.ModelInfo, row []any, aliases []string) (*T, error) {
	inst := new(T)
	v := reflect.ValueOf(inst).Elem()

	fields := info.Entity.Fields
	if len(row) < len(fields) {
		return nil, &HydrationError{
			TypeName: info.Entity.Name,
			Cause:    fmt.Errorf("row has %d columns, entity has %d fields", len(row), len(fields)),
		}
	}
	for i, f := range fields {
		idx, ok := info.FieldIndex[f.Name]
		if !ok {
			continue
		}
		if err := setField(v.Field(idx), row[i]); err != nil {
			return nil, &HydrationError{TypeName: info.Entity.Name, Field: f.Name, Cause: err}
		}
	}

	for i, alias := range aliases {
		col := len(fields) + i
		if col >= len(row) {
			break
		}
		fv, ok := fieldByAlias(v, alias)
		if !ok {
			continue
		}
		if err := setField(fv, row[col]); err != nil {
			return nil, &HydrationError{TypeName: info.Entity.Name, Field: alias, Cause: err}
		}
	}
	return inst, nil
}

func fieldByAlias(v reflect.Value, alias string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if schema.SnakeCase(t.Field(i).Name) == alias {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setField assigns a database value to a struct field, coercing
// between the handful of representations drivers actually produce.
func setField(fv reflect.Value, val any) error {
	if val == nil {
		if fv.Kind() == reflect.Ptr {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}

	switch fv.Kind() {
	case reflect.String:
		switch x := val.(type) {
		case string:
			fv.SetString(x)
		case []byte:
			fv.SetString(string(x))
		default:
			return fmt.Errorf("cannot assign %T to string", val)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(val)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(val)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("cannot assign negative value %d to %s", n, fv.Kind())
		}
		fv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		switch x := val.(type) {
		case float64:
			fv.SetFloat(x)
		case float32:
			fv.SetFloat(float64(x))
		case int64:
			fv.SetFloat(float64(x))
		case int:
			fv.SetFloat(float64(x))
		default:
			return fmt.Errorf("cannot assign %T to float", val)
		}
	case reflect.Bool:
		switch x := val.(type) {
		case bool:
			fv.SetBool(x)
		case int64:
			fv.SetBool(x != 0)
		case int:
			fv.SetBool(x != 0)
		default:
			return fmt.Errorf("cannot assign %T to bool", val)
		}
	default:
		if fv.Type() == reflect.TypeOf(time.Time{}) {
			switch x := val.(type) {
			case time.Time:
				fv.Set(reflect.ValueOf(x))
			case string:
				t, err := parseTime(x)
				if err != nil {
					return err
				}
				fv.Set(reflect.ValueOf(t))
			case []byte:
				t, err := parseTime(string(x))
				if err != nil {
					return err
				}
				fv.Set(reflect.ValueOf(t))
			default:
				return fmt.Errorf("cannot assign %T to time.Time", val)
			}
			return nil
		}
		rv := reflect.ValueOf(val)
		if rv.Type().AssignableTo(fv.Type()) {
			fv.Set(rv)
			return nil
		}
		return fmt.Errorf("cannot assign %T to %s", val, fv.Type())
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", s)
}

func toInt64(val any) (int64, error) {
	switch x := val.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		var n int64
		if _, err := fmt.Sscanf(string(x), "%d", &n); err != nil {
			return 0, fmt.Errorf("cannot read integer from %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot read integer from %T", val)
	}
}

// fieldValue extracts a database-friendly value from a struct field,
// dereferencing pointers and mapping nil pointers to NULL.
func fieldValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}
