package filter

import (
	"strconv"
	"strings"
)

// Format renders n back to filter text.
// Logical children that are themselves Logical nodes are parenthesised, so
// parsing the output yields an equivalent tree. A nil node formats as "".
func Format(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
	case *Comparison:
		sb.WriteString(n.Property.String())
		sb.WriteByte(' ')
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		sb.WriteString(FormatValue(n.Value))
	case *SetPredicate:
		sb.WriteString(n.Property.String())
		sb.WriteByte(' ')
		sb.WriteString(string(n.Kind))
		if n.Kind == SetHas {
			sb.WriteByte(' ')
			writeItem(sb, n.Values[0])
			return
		}
		sb.WriteString(" [")
		for i, item := range n.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeItem(sb, item)
		}
		sb.WriteByte(']')
	case *ZipPredicate:
		for i, p := range n.Properties {
			if i > 0 {
				sb.WriteByte(':')
			}
			sb.WriteString(p.String())
		}
		sb.WriteByte(' ')
		sb.WriteString(string(n.Kind))
		sb.WriteByte(' ')
		for i, tuple := range n.Tuples {
			if i > 0 {
				sb.WriteString(", ")
			}
			for j, item := range tuple {
				if j > 0 {
					sb.WriteByte(':')
				}
				writeItem(sb, item)
			}
		}
	case *KnownPredicate:
		sb.WriteString(n.Property.String())
		if n.Known {
			sb.WriteString(" IS KNOWN")
		} else {
			sb.WriteString(" IS UNKNOWN")
		}
	case *Length:
		sb.WriteString(n.Property.String())
		sb.WriteString(" LENGTH ")
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		sb.WriteString(FormatValue(n.Value))
	case *Logical:
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteByte(' ')
				sb.WriteString(string(n.Op))
				sb.WriteByte(' ')
			}
			writeOperand(sb, c)
		}
	case *Not:
		sb.WriteString("NOT ")
		writeOperand(sb, n.Child)
	}
}

func writeOperand(sb *strings.Builder, n Node) {
	if _, ok := n.(*Logical); ok {
		sb.WriteByte('(')
		writeNode(sb, n)
		sb.WriteByte(')')
		return
	}
	writeNode(sb, n)
}

func writeItem(sb *strings.Builder, item SetItem) {
	if item.Op != "" && item.Op != OpEqual {
		sb.WriteString(string(item.Op))
		sb.WriteByte(' ')
	}
	sb.WriteString(FormatValue(item.Value))
}

// FormatValue renders a value as a filter literal.
func FormatValue(v Value) string {
	switch v.Kind {
	case ValueString:
		return quoteString(v.Str)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case ValueProperty:
		return v.Path.String()
	default:
		return ""
	}
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
