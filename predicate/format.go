package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format renders p as a readable expression over storage fields.
func Format(p Predicate) string {
	var sb strings.Builder
	writePredicate(&sb, p)
	return sb.String()
}

func writePredicate(sb *strings.Builder, p Predicate) {
	switch p := p.(type) {
	case nil:
		sb.WriteString("TRUE")
	case *Const:
		if p.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case *And:
		writeJoined(sb, p.Children, " AND ")
	case *Or:
		writeJoined(sb, p.Children, " OR ")
	case *Not:
		sb.WriteString("NOT (")
		writePredicate(sb, p.Child)
		sb.WriteByte(')')
	case *Compare:
		fmt.Fprintf(sb, "%s %s %s", p.Field, p.Op, formatLiteral(p.Value))
	case *StringMatch:
		fmt.Fprintf(sb, "%s(%s, %s)", p.Kind, p.Field, strconv.Quote(p.Value))
	case *Contains:
		fmt.Fprintf(sb, "%s HAS %s %s", p.Field, p.Op, formatLiteral(p.Value))
	case *Only:
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = formatLiteral(v)
		}
		fmt.Fprintf(sb, "%s HAS ONLY [%s]", p.Field, strings.Join(vals, ", "))
	case *Exists:
		if p.Exists {
			fmt.Fprintf(sb, "exists(%s)", p.Field)
		} else {
			fmt.Fprintf(sb, "missing(%s)", p.Field)
		}
	case *Size:
		fmt.Fprintf(sb, "len(%s) %s %d", p.Field, p.Op, p.N)
	default:
		fmt.Fprintf(sb, "%T", p)
	}
}

func writeJoined(sb *strings.Builder, children []Predicate, sep string) {
	sb.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		writePredicate(sb, c)
	}
	sb.WriteByte(')')
}

func formatLiteral(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case time.Time:
		return "TIMESTAMP " + strconv.Quote(v.UTC().Format(time.RFC3339Nano))
	}
	return fmt.Sprint(v)
}
