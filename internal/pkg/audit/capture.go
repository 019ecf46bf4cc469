package audit

import (
	"fmt"
	"reflect"
	"time"
)

// Entity is implemented by domain objects the audit trail can identify.
type Entity interface {
	EntityID() uint
}

// CaptureState converts a value into a form the audit trail can
// serialize later:
//   - nil stays nil
//   - a domain entity becomes a flat map of its simple fields plus a
//     synthetic _entityType key
//   - an argument slice is scanned for the first entity; when none is
//     found, scalar arguments are kept as arg0, arg1, ...
//   - anything else passes through unchanged, JSON encoding happens
//     downstream
//
// CaptureState never panics; a field that cannot be read is skipped.
func CaptureState(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if e, ok := v.(Entity); ok {
		return captureEntity(e)
	}
	if args, ok := v.([]interface{}); ok {
		return captureArgs(args)
	}
	return v
}

func captureArgs(args []interface{}) interface{} {
	for _, a := range args {
		if e, ok := a.(Entity); ok {
			if m := captureEntity(e); m != nil {
				return m
			}
		}
	}

	out := make(map[string]interface{})
	for i, a := range args {
		if a == nil {
			continue
		}
		rv := reflect.ValueOf(a)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				rv = reflect.Value{}
				break
			}
			rv = rv.Elem()
		}
		if rv.IsValid() && isScalarKind(rv.Kind()) {
			out[fmt.Sprintf("arg%d", i)] = rv.Interface()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func captureEntity(e Entity) map[string]interface{} {
	rv := reflect.ValueOf(e)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	out := map[string]interface{}{"_entityType": rv.Type().Name()}
	if rv.Kind() != reflect.Struct {
		return out
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		// Fields hidden from the API (password hashes, token hashes)
		// stay out of snapshots too.
		if field.Tag.Get("json") == "-" {
			continue
		}
		captureField(out, field.Name, rv.Field(i))
	}
	return out
}

// captureField records one field if it holds a simple value.
// Collections, maps and nested entities are dropped so snapshots stay
// flat and cycle-free. A panic while reading the field skips it.
func captureField(out map[string]interface{}, name string, fv reflect.Value) {
	defer func() {
		recover()
	}()

	for fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			out[name] = nil
			return
		}
		fv = fv.Elem()
	}

	if t, ok := fv.Interface().(time.Time); ok {
		out[name] = t
		return
	}
	if isScalarKind(fv.Kind()) {
		out[name] = fv.Interface()
	}
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}
