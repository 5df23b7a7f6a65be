package pdf

import (
	"encoding/hex"
	"strings"
	"unicode"
)

// TextFromContentStream pulls the shown text out of a page content stream.
// It understands literal and hex strings and the text-showing operators
// Tj, TJ, ' and ". Positioning operators become line breaks or spaces.
func TextFromContentStream(data []byte) string {
	var out strings.Builder
	var pending []string
	inArray := false

	emit := func() {
		for _, s := range pending {
			out.WriteString(s)
		}
		pending = pending[:0]
	}
	newline := func() {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, next := readLiteral(data, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] != '<':
			end := i + 1
			for end < len(data) && data[end] != '>' {
				end++
			}
			pending = append(pending, decodeHex(data[i+1:end]))
			i = end + 1
		case c == '[':
			inArray = true
			pending = pending[:0]
			i++
		case c == ']':
			inArray = false
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case isDelimiter(c):
			i++
		default:
			start := i
			for i < len(data) && !isDelimiter(data[i]) && data[i] != '(' && data[i] != '[' && data[i] != '<' {
				i++
			}
			if i == start {
				i++
				continue
			}
			switch string(data[start:i]) {
			case "Tj", "TJ":
				emit()
			case "'", "\"":
				newline()
				emit()
			case "Td", "TD", "Tm":
				if !inArray && out.Len() > 0 {
					last := out.String()[out.Len()-1]
					if last != ' ' && last != '\n' {
						out.WriteByte(' ')
					}
				}
			case "T*", "ET":
				newline()
			default:
				// Operands that are not strings (numbers, names) drop pending
				// strings only when an unrelated operator consumed them.
				if !inArray && isOperator(data[start:i]) {
					pending = pending[:0]
				}
			}
		}
	}
	return cleanText(out.String())
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, ']', ')', '>', '{', '}', '/':
		return true
	}
	return false
}

// isOperator reports whether a bare token is an operator rather than a
// number operand.
func isOperator(tok []byte) bool {
	for _, b := range tok {
		if (b >= '0' && b <= '9') || b == '.' || b == '-' || b == '+' {
			continue
		}
		return true
	}
	return false
}

// readLiteral decodes a balanced PDF literal string starting at data[start]
// == '(' and returns it with the index after the closing parenthesis.
func readLiteral(data []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b', 'f':
			case '(', ')', '\\':
				sb.WriteByte(e)
			case '\r', '\n':
				// Line continuation.
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(e)
				}
			}
		case c == '(':
			if depth > 0 {
				sb.WriteByte(c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
		i++
	}
	return sb.String(), i
}

func decodeHex(raw []byte) string {
	clean := make([]byte, 0, len(raw))
	for _, b := range raw {
		if !unicode.IsSpace(rune(b)) {
			clean = append(clean, b)
		}
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	decoded, err := hex.DecodeString(string(clean))
	if err != nil {
		return ""
	}
	// Two-byte glyph ids from CID fonts are not text; keep printable ASCII only.
	var sb strings.Builder
	for _, b := range decoded {
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

// cleanText collapses spaces within lines and drops empty lines.
func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var sb strings.Builder
		for _, r := range line {
			if unicode.IsPrint(r) || r == '\t' {
				sb.WriteRune(r)
			}
		}
		if l := strings.Join(strings.Fields(sb.String()), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
