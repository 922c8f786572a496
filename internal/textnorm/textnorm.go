// Package textnorm prepares contract text for pattern matching.
//
// Contract text arrives from PDF extraction with a mix of full-width and
// half-width numerals, ideographic spaces and stray carriage returns. The
// matchers in the checkpoint and contracttype packages run on the folded form
// produced here so that "６０日" and "60日" are treated the same.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var crlf = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Fold unifies line endings and folds full-width ASCII (digits, latin letters,
// punctuation) to half-width. Japanese characters are left as they are.
func Fold(text string) string {
	return width.Fold.String(crlf.Replace(text))
}

var sentenceBreak = regexp.MustCompile(`[。\n]+`)

// Sentences splits folded text on the Japanese full stop and on newlines.
// Empty fragments are dropped.
func Sentences(text string) []string {
	parts := sentenceBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var kanjiDigits = map[rune]int{
	'〇': 0, '零': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var kanjiUnits = map[rune]int{'十': 10, '百': 100, '千': 1000}

// MaxNumber is the largest value ParseNumber returns. Longer numerals
// saturate here so that an absurd term still reads as too long.
const MaxNumber = 1_000_000

// ParseNumber reads an ASCII or kanji numeral such as "90", "六十" or "百二十".
// It returns false when s is not a numeral.
func ParseNumber(s string) (int, bool) {
	s = strings.TrimSpace(width.Fold.String(s))
	if s == "" {
		return 0, false
	}
	if n, ok := parseASCII(s); ok {
		return n, true
	}
	return parseKanji(s)
}

func parseASCII(s string) (int, bool) {
	n := 0
	seen := false
	for _, r := range s {
		if r == ',' {
			continue
		}
		if r < '0' || r > '9' {
			return 0, false
		}
		seen = true
		n = min(n*10+int(r-'0'), MaxNumber)
	}
	return n, seen
}

func parseKanji(s string) (int, bool) {
	total, current := 0, 0
	seen := false
	for _, r := range s {
		if unit, ok := kanjiUnits[r]; ok {
			if current == 0 {
				current = 1
			}
			total = min(total+current*unit, MaxNumber)
			current = 0
		} else if d, ok := kanjiDigits[r]; ok {
			current = min(current*10+d, MaxNumber)
		} else {
			return 0, false
		}
		seen = true
	}
	if !seen {
		return 0, false
	}
	return min(total+current, MaxNumber), true
}

// Days converts a duration written as number + unit into days. Months count as
// 30 days and years as 365. Unknown units return false.
func Days(n int, unit string) (int, bool) {
	switch unit {
	case "日":
		return n, true
	case "週", "週間":
		return n * 7, true
	case "か月", "ヶ月", "カ月", "ヵ月", "箇月", "ケ月", "月":
		return n * 30, true
	case "年":
		return n * 365, true
	}
	return 0, false
}
