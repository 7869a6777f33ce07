package i18n

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FormatError reports a format string that does not fit its arguments.
type FormatError struct {
	Format   string
	Index    int
	ArgCount int
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("format %q: placeholder {%d}: %s (%d args)", e.Format, e.Index, e.Reason, e.ArgCount)
	}
	return fmt.Sprintf("format %q: %s", e.Format, e.Reason)
}

// Format substitutes positional placeholders in format with args.
//
// A placeholder is {index[,alignment][:verb]}. A positive alignment right
// aligns the value in that many columns, a negative one left aligns it. The
// verb is a fmt verb without the leading percent sign, so {0:.2f} formats a
// float with two decimals. {{ and }} produce literal braces.
//
// Example:
//
//	s, err := i18n.Format("{0} has {1,3} items", "cart", 7)
//	// s == "cart has   7 items"
func Format(format string, args ...any) (string, error) {
	var b strings.Builder
	b.Grow(len(format) + 16)

	for i := 0; i < len(format); {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '}':
			return "", &FormatError{Format: format, Index: -1, ArgCount: len(args), Reason: "unmatched '}'"}
		case c == '{':
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return "", &FormatError{Format: format, Index: -1, ArgCount: len(args), Reason: "unclosed '{'"}
			}
			s, err := formatItem(format, format[i+1:i+end], args)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

func formatItem(format, item string, args []any) (string, error) {
	spec, verb, hasVerb := strings.Cut(item, ":")
	indexText, alignText, hasAlign := strings.Cut(spec, ",")

	index, err := strconv.Atoi(strings.TrimSpace(indexText))
	if err != nil || index < 0 {
		return "", &FormatError{Format: format, Index: -1, ArgCount: len(args), Reason: fmt.Sprintf("malformed placeholder {%s}", item)}
	}
	if index >= len(args) {
		return "", &FormatError{Format: format, Index: index, ArgCount: len(args), Reason: "index out of range"}
	}

	width := 0
	if hasAlign {
		if width, err = strconv.Atoi(strings.TrimSpace(alignText)); err != nil {
			return "", &FormatError{Format: format, Index: index, ArgCount: len(args), Reason: "malformed alignment"}
		}
	}

	var s string
	if hasVerb && verb != "" {
		s = fmt.Sprintf("%"+verb, args[index])
		if strings.HasPrefix(s, "%!") {
			return "", &FormatError{Format: format, Index: index, ArgCount: len(args),
				Reason: fmt.Sprintf("verb %q does not apply to %T", verb, args[index])}
		}
	} else {
		s = fmt.Sprint(args[index])
	}
	return pad(s, width), nil
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	switch {
	case width > n:
		return strings.Repeat(" ", width-n) + s
	case -width > n:
		return s + strings.Repeat(" ", -width-n)
	default:
		return s
	}
}
