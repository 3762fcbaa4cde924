package predicate

import (
	"reflect"
	"strings"
	"time"
)

// Match evaluates p against a document.
//
// Dotted fields descend into nested maps; descending through a list collects
// the sub-field of every element, so "species.name" over a list of species
// yields the list of names. Numbers compare across integer and float kinds.
func Match(p Predicate, doc map[string]any) bool {
	switch p := p.(type) {
	case nil:
		return true
	case *Const:
		return p.Value
	case *And:
		for _, c := range p.Children {
			if !Match(c, doc) {
				return false
			}
		}
		return true
	case *Or:
		for _, c := range p.Children {
			if Match(c, doc) {
				return true
			}
		}
		return false
	case *Not:
		return !Match(p.Child, doc)

	case *Compare:
		v, ok := Lookup(doc, p.Field)
		if !ok {
			return false
		}
		if _, isList := asList(v); isList {
			return false
		}
		return compareValues(v, p.Op, p.Value)

	case *StringMatch:
		v, ok := Lookup(doc, p.Field)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		switch p.Kind {
		case MatchContains:
			return strings.Contains(s, p.Value)
		case MatchPrefix:
			return strings.HasPrefix(s, p.Value)
		case MatchSuffix:
			return strings.HasSuffix(s, p.Value)
		}
		return false

	case *Contains:
		items, ok := lookupList(doc, p.Field)
		if !ok {
			return false
		}
		for _, e := range items {
			if compareValues(e, p.Op, p.Value) {
				return true
			}
		}
		return false

	case *Only:
		items, ok := lookupList(doc, p.Field)
		if !ok || len(items) == 0 {
			return false
		}
		for _, e := range items {
			found := false
			for _, v := range p.Values {
				if compareValues(e, Eq, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true

	case *Exists:
		_, ok := Lookup(doc, p.Field)
		return ok == p.Exists

	case *Size:
		items, ok := lookupList(doc, p.Field)
		if !ok {
			return false
		}
		return compareValues(int64(len(items)), p.Op, p.N)
	}
	return false
}

// Lookup returns the value at a dotted field path and whether it is present.
// A path through a list returns the flattened list of the sub-field values,
// which is present when at least one element has the sub-field.
func Lookup(doc map[string]any, field string) (any, bool) {
	segs := strings.Split(field, ".")
	v, ok := doc[segs[0]]
	if !ok || v == nil {
		return nil, false
	}
	if len(segs) == 1 {
		return v, true
	}

	current := []any{v}
	throughList := false
	for _, seg := range segs[1:] {
		var next []any
		for _, c := range current {
			if items, isList := asList(c); isList {
				throughList = true
				for _, item := range items {
					if sub, ok := field1(item, seg); ok {
						next = append(next, sub)
					}
				}
				continue
			}
			if sub, ok := field1(c, seg); ok {
				next = append(next, sub)
			}
		}
		if len(next) == 0 {
			return nil, false
		}
		current = next
	}

	if !throughList {
		return current[0], true
	}
	var flat []any
	for _, c := range current {
		if items, isList := asList(c); isList {
			flat = append(flat, items...)
			continue
		}
		flat = append(flat, c)
	}
	return flat, true
}

func lookupList(doc map[string]any, field string) ([]any, bool) {
	v, ok := Lookup(doc, field)
	if !ok {
		return nil, false
	}
	return asList(v)
}

// field1 returns a non-nil sub-field of a map value.
func field1(v any, name string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		sub, ok := m[name]
		return sub, ok && sub != nil
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	sub := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
	if !sub.IsValid() || !sub.CanInterface() {
		return nil, false
	}
	out := sub.Interface()
	return out, out != nil
}

// asList converts slices and arrays (other than []byte) to []any.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []byte, string, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// compareValues evaluates a op b for numbers, strings, booleans and times.
// A string compared with a time.Time is parsed as a time first, so stored
// RFC 3339 strings compare by instant. Values of different kinds never
// compare true.
func compareValues(a any, op Op, b any) bool {
	_, aTime := a.(time.Time)
	_, bTime := b.(time.Time)
	if aTime || bTime {
		at, ok := ParseTime(a)
		if !ok {
			return false
		}
		bt, ok := ParseTime(b)
		if !ok {
			return false
		}
		return compareOrdered(int64(at.Compare(bt)), op, 0)
	}

	if ai, ok := toInt(a); ok {
		if bi, ok := toInt(b); ok {
			return compareOrdered(ai, op, bi)
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return compareOrdered(af, op, bf)
		}
		return false
	}

	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		if !ok {
			return false
		}
		return compareOrdered(av, op, bs)
	case bool:
		bb, ok := b.(bool)
		if !ok {
			return false
		}
		switch op {
		case Eq:
			return av == bb
		case Ne:
			return av != bb
		}
		return false
	}
	return false
}

// Order compares two values of the same kind and returns -1, 0 or +1.
// The second result is false when the values are not mutually ordered.
func Order(a, b any) (int, bool) {
	switch {
	case compareValues(a, Eq, b):
		return 0, true
	case compareValues(a, Lt, b):
		return -1, true
	case compareValues(a, Gt, b):
		return 1, true
	}
	return 0, false
}

func compareOrdered[T int64 | float64 | string](a T, op Op, b T) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}

func toInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// ParseTime returns v as a time. Strings are accepted in RFC 3339 form, or
// without a zone (taken as UTC) down to a plain date.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
