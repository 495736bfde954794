package util

import "reflect"

// IsZeroVal reports whether v holds zero value of its type.
// Unlike comparison through Interface() it works for non comparable kinds.
func IsZeroVal(v reflect.Value) bool {
	return v.IsZero()
}

// MergeNonZero overwrites fields of def with non zero fields of override.
// Nested structs are merged recursively. Both arguments must be pointers
// to structs of the same type.
func MergeNonZero(def, override interface{}) {
	mergeStruct(reflect.ValueOf(def).Elem(), reflect.ValueOf(override).Elem())
}

func mergeStruct(def, override reflect.Value) {
	for i, end := 0, def.NumField(); i < end; i++ {
		ov := override.Field(i)
		if ov.Kind() == reflect.Struct {
			mergeStruct(def.Field(i), ov)
			continue
		}
		if !IsZeroVal(ov) {
			def.Field(i).Set(ov)
		}
	}
}
