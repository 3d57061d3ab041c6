package store

import (
	"reflect"
	"strings"
	"sync"
)

// Query selects records from a Collection. The zero Query matches every
// record in insertion order.
type Query[T any] struct {
	// Where matches JSON field names by exact equality. Pointer fields
	// compare on their pointee; a nil value matches a nil pointer.
	Where map[string]any
	// Filter, when set, must also return true.
	Filter func(T) bool
	// Sort orders the matches stably. Nil keeps insertion order.
	Sort func(a, b T) int
	Skip int
	// Take limits the result; 0 means no limit.
	Take int
}

// Result is what FindMany returns. A dropped result carries no data at all,
// which is different from an empty match.
type Result[T any] struct {
	items   []T
	dropped bool
}

// Dropped reports whether the store lost this result.
func (r Result[T]) Dropped() bool { return r.dropped }

// Items is never nil, even for a dropped result.
func (r Result[T]) Items() []T {
	if r.items == nil {
		return []T{}
	}
	return r.items
}

func (r Result[T]) Len() int { return len(r.items) }

func (q Query[T]) matches(v T) bool {
	if len(q.Where) > 0 && !matchWhere(reflect.ValueOf(v), q.Where) {
		return false
	}
	return q.Filter == nil || q.Filter(v)
}

func matchWhere(rv reflect.Value, where map[string]any) bool {
	fields := jsonFields(rv.Type())
	for name, want := range where {
		idx, ok := fields[name]
		if !ok {
			return false
		}
		if !equalField(rv.FieldByIndex(idx), want) {
			return false
		}
	}
	return true
}

func equalField(fv reflect.Value, want any) bool {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return want == nil || isNilPointer(want)
		}
		fv = fv.Elem()
	}
	if want == nil {
		return false
	}

	wv := reflect.ValueOf(want)
	if wv.Kind() == reflect.Pointer {
		if wv.IsNil() {
			return false
		}
		wv = wv.Elem()
	}
	if wv.Type() != fv.Type() {
		if wv.Kind() != fv.Kind() || !wv.CanConvert(fv.Type()) {
			return false
		}
		wv = wv.Convert(fv.Type())
	}
	if !fv.Type().Comparable() {
		return false
	}
	return fv.Equal(wv)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

var fieldCache sync.Map // reflect.Type -> map[string][]int

// jsonFields maps the JSON names of t's exported fields to their index
// paths. Fields tagged "-" are left out.
func jsonFields(t reflect.Type) map[string][]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string][]int)
	}

	out := make(map[string][]int)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		if _, dup := out[name]; !dup {
			out[name] = f.Index
		}
	}

	fieldCache.Store(t, out)
	return out
}
