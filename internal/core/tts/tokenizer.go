package tts

import (
	"regexp"
	"strings"
	"unicode"
)

// GoogleMaxChars is the longest text the Google endpoint accepts per request.
const GoogleMaxChars = 100

var (
	hyphenBreakRe  = regexp.MustCompile(`-\r?\n`)
	abbreviationRe = regexp.MustCompile(`(?i)\b(dr|jr|mr|mrs|ms|msgr|prof|sr|st)\.`)
	toneMarkRe     = regexp.MustCompile(`([?!？！])`)
)

const (
	toneMarks  = "?!？！"
	otherPunct = "¡¿()[]…‥،;—。，、：\n"
)

// Tokenize splits text into speakable chunks of at most max runes. Chunks
// break after sentence punctuation first, then at the last space that fits,
// then anywhere.
func Tokenize(text string, max int) []string {
	if max <= 0 {
		max = GoogleMaxChars
	}

	text = preprocess(text)

	var out []string
	for _, sentence := range splitSentences(text) {
		for _, chunk := range minimize(sentence, max) {
			if !isPunctOnly(chunk) {
				out = append(out, chunk)
			}
		}
	}
	return out
}

func preprocess(text string) string {
	text = hyphenBreakRe.ReplaceAllString(text, "")
	text = abbreviationRe.ReplaceAllString(text, "$1")
	text = toneMarkRe.ReplaceAllString(text, "$1 ")
	return text
}

func splitSentences(text string) []string {
	runes := []rune(text)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		tokens = append(tokens, cur.String())
		cur.Reset()
	}

	between := func(i int, pred func(rune) bool) bool {
		return i > 0 && i+1 < len(runes) && pred(runes[i-1]) && pred(runes[i+1])
	}

	for i, r := range runes {
		switch {
		case strings.ContainsRune(toneMarks, r):
			cur.WriteRune(r)
			flush()
		case r == '.':
			// "3.14", "e.g. that", "www.example"
			followedByText := i+1 < len(runes) && !unicode.IsSpace(runes[i+1])
			dottedAbbrev := i >= 2 && runes[i-2] == '.' && unicode.IsLetter(runes[i-1])
			if followedByText || dottedAbbrev {
				cur.WriteRune(r)
				continue
			}
			flush()
		case r == ',' || r == ':':
			// "1,000" and "12:30"
			if between(i, unicode.IsDigit) {
				cur.WriteRune(r)
				continue
			}
			flush()
		case strings.ContainsRune(otherPunct, r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func minimize(s string, max int) []string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return []string{s}
	}

	idx := -1
	for i := max - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			idx = i
			break
		}
	}
	if idx <= 0 {
		idx = max
	}

	head := strings.TrimSpace(string(runes[:idx]))
	return append([]string{head}, minimize(string(runes[idx:]), max)...)
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// Pack greedily joins consecutive chunks with a space while the result stays
// within max runes, so providers with large limits make fewer requests.
func Pack(chunks []string, max int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, c := range chunks {
		n := len([]rune(c))
		if curLen > 0 && curLen+1+n > max {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(c)
		curLen += n
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}
