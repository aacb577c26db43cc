package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// stringPrefix describes the letters in front of a string literal's quote.
type stringPrefix struct {
	raw       bool
	bytes     bool
	formatted bool
}

func parseStringPrefix(start string) stringPrefix {
	var p stringPrefix
	for _, r := range strings.ToLower(start) {
		switch r {
		case 'r':
			p.raw = true
		case 'b':
			p.bytes = true
		case 'f':
			p.formatted = true
		}
	}
	return p
}

// decodeStringContent turns the raw text between the quotes into its value.
func decodeStringContent(raw string, p stringPrefix) string {
	if p.formatted {
		raw = strings.ReplaceAll(raw, "{{", "{")
		raw = strings.ReplaceAll(raw, "}}", "}")
	}
	if p.raw || !strings.Contains(raw, `\`) {
		return raw
	}
	return unescape(raw, p.bytes)
}

func unescape(s string, bytesLiteral bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCodePoint(&b, rune(v), bytesLiteral)
			i = j - 1
		case 'x':
			if v, ok := hexAt(s, i+1, 2); ok {
				writeCodePoint(&b, rune(v), bytesLiteral)
				i += 2
			} else {
				b.WriteString(`\x`)
			}
		case 'u', 'U':
			width := 4
			if e == 'U' {
				width = 8
			}
			if v, ok := hexAt(s, i+1, width); ok && !bytesLiteral && utf8.ValidRune(rune(v)) {
				b.WriteRune(rune(v))
				i += width
			} else {
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		default:
			// Unknown escapes keep their backslash, as Python does. \N{NAME}
			// is kept verbatim too since decoding it needs the Unicode name
			// table.
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

func hexAt(s string, start, width int) (uint64, bool) {
	if start+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

func writeCodePoint(b *strings.Builder, r rune, bytesLiteral bool) {
	if bytesLiteral && r < 0x100 {
		b.WriteByte(byte(r))
		return
	}
	b.WriteRune(r)
}

// parseIntLiteral handles Python integer syntax: underscores, 0x/0o/0b prefixes.
func parseIntLiteral(text string) (int64, bool) {
	clean := strings.ReplaceAll(strings.ToLower(text), "_", "")
	base := 10
	switch {
	case strings.HasPrefix(clean, "0x"):
		base, clean = 16, clean[2:]
	case strings.HasPrefix(clean, "0o"):
		base, clean = 8, clean[2:]
	case strings.HasPrefix(clean, "0b"):
		base, clean = 2, clean[2:]
	}
	v, err := strconv.ParseInt(clean, base, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFloatLiteral(text string) (float64, bool) {
	clean := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(clean, "j") || strings.HasSuffix(clean, "J") {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
