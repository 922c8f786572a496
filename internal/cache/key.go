package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ericksa/keiyakucheck/internal/laws"
	"github.com/ericksa/keiyakucheck/internal/textnorm"
)

var (
	horizontalSpace = regexp.MustCompile(`[\p{Zs}\t\f\v]+`)
	spaceAroundLF   = regexp.MustCompile(` ?\n ?`)
	blankLines      = regexp.MustCompile(`\n{2,}`)
)

// NormalizeText reduces text to the form that is hashed for the cache key.
// Line endings are unified, whitespace runs and blank lines collapse, the
// result is trimmed, width folded and case folded. Two texts that differ only
// in layout normalize to the same string.
func NormalizeText(text string) string {
	s := textnorm.Fold(text)
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundLF.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n")
	s = strings.TrimSpace(s)
	return cases.Fold().String(s)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// KeyFor derives the content address of an analysis. Only the fields that
// change which laws apply to the text (role, entity type, counterpart capital)
// take part; everything else in c is ignored.
func KeyFor(text string, c laws.UserContext) string {
	c = c.Normalize()
	relevant := string(c.UserRole) + "|" + string(c.UserEntityType) + "|" + string(c.CounterpartyCapital)
	return digest(NormalizeText(text)) + ":" + digest(relevant)[:16]
}
