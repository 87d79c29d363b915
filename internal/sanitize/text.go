package sanitize

import "strings"

// Text truncates extracted text to maxLength, strips NUL bytes, and keeps
// only printable ASCII, the whitespace triad (\n \r \t), and the Unicode
// range U+00A0 to U+FFFF, matching the character set the
// original uploader's sanitization regex allows through.
func Text(raw string, maxLength int) string {
	if len(raw) > maxLength {
		raw = raw[:maxLength]
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == 0 {
			continue
		}
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r >= 0x20 && r <= 0x7E:
			b.WriteRune(r)
		case r >= 0x00A0 && r <= 0xFFFF:
			b.WriteRune(r)
		}
	}
	return b.String()
}
