package ai

import (
	"strings"
	"unicode"
)

// emojiRanges are the code point ranges removed from model output:
// pictographs, symbols, dingbats, arrows, variation selectors, joiners,
// keycaps and tag sequences.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1},
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1},
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
		{Lo: 0xe0020, Hi: 0xe007f, Stride: 1},
	},
}

// IsEmoji reports whether r falls in one of the stripped ranges.
func IsEmoji(r rune) bool {
	return unicode.Is(emojiRanges, r)
}

// StripEmoji removes every emoji code point from s.
func StripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if IsEmoji(r) {
			return -1
		}
		return r
	}, s)
}

// isDecoration matches the characters list markers are made of.
func isDecoration(r rune) bool {
	switch r {
	case '-', '•', '.', ' ', '\t':
		return true
	}
	return r >= '0' && r <= '9'
}

// CleanLine turns one line of model output into a bare message: trims it,
// drops emoji and then the leading run of list decoration ("- ", "3. ",
// "• "). Applying it twice gives the same result.
func CleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = StripEmoji(line)
	line = strings.TrimLeftFunc(line, isDecoration)
	return strings.TrimSpace(line)
}

// ParseSuggestions cleans every line of raw, drops empty and repeated ones
// and keeps at most count messages in reply order.
func ParseSuggestions(raw string, count int) []string {
	messages := make([]string, 0, count)
	if count <= 0 {
		return messages
	}

	seen := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		msg := CleanLine(line)
		if msg == "" {
			continue
		}
		if _, ok := seen[msg]; ok {
			continue
		}
		seen[msg] = struct{}{}
		messages = append(messages, msg)
		if len(messages) == count {
			break
		}
	}
	return messages
}
