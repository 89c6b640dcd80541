package codegen

import (
	"strings"
	"unicode"
)

// className turns a network name into a Python class name.
func className(s string) string {
	words := splitWords(sanitizeName(s))
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(strings.ToUpper(w[:1]))
		sb.WriteString(w[1:])
	}
	if sb.Len() == 0 {
		return "GeneratedNet"
	}
	return sb.String()
}

// sanitizeName keeps letters, digits and underscores, turning spaces and
// dashes into underscores.
func sanitizeName(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || r == '_'):
			sb.WriteRune(r)
		case r < unicode.MaxASCII && unicode.IsDigit(r) && i > 0:
			sb.WriteRune(r)
		case r == ' ' || r == '-':
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
}
