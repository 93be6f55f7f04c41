package blocklist

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// normalizedText is checked text after NFKC, width folding and case folding, with a map
// from every normalized rune back to the original runes it came from.
type normalizedText struct {
	original []rune
	runes    []rune
	str      string
	// origStart[i], origEnd[i] is the original rune span of normalized rune i.
	origStart []int
	origEnd   []int
	// runeAtByte maps a byte offset in str to a rune index in runes.
	runeAtByte []int
}

// normalize folds text segment by segment so that each normalized rune can be traced to
// the original segment that produced it.
func normalize(text string) *normalizedText {
	n := &normalizedText{original: []rune(text)}

	origRuneAt := runeIndexByByte(text)
	folder := cases.Fold()

	var it norm.Iter
	it.InitString(norm.NFKC, text)
	for !it.Done() {
		start := it.Pos()
		seg := it.Next()
		end := it.Pos()

		folded := folder.String(width.Fold.String(string(seg)))
		rs, re := origRuneAt[start], origRuneAt[end]
		for _, r := range folded {
			n.runes = append(n.runes, r)
			n.origStart = append(n.origStart, rs)
			n.origEnd = append(n.origEnd, re)
		}
	}

	n.str = string(n.runes)
	n.runeAtByte = runeIndexByByte(n.str)

	return n
}

// runeIndexByByte returns, for every byte offset of s and len(s), the index of the rune
// that byte belongs to.
func runeIndexByByte(s string) []int {
	idx := make([]int, len(s)+1)
	ri := 0
	for bi := 0; bi < len(s); {
		_, size := utf8.DecodeRuneInString(s[bi:])
		for j := 0; j < size; j++ {
			idx[bi+j] = ri
		}
		bi += size
		ri++
	}
	idx[len(s)] = ri
	return idx
}

// span maps the normalized rune range [start, end) to the original rune range.
func (n *normalizedText) span(start, end int) (int, int) {
	return n.origStart[start], n.origEnd[end-1]
}

// Normalize returns the folded form used for matching.
func Normalize(s string) string {
	return normalize(s).str
}

// isWordRune reports whether r takes part in whole-word boundaries. Scripts written
// without spaces never do.
func isWordRune(r rune) bool {
	if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
		return false
	}
	return !unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Thai)
}

func allWordRunes(rs []rune) bool {
	if len(rs) == 0 {
		return false
	}
	for _, r := range rs {
		if !isWordRune(r) {
			return false
		}
	}
	return true
}

// atWordBoundary reports whether the normalized range [start, end) is delimited by
// non-word runes or the text edges.
func (n *normalizedText) atWordBoundary(start, end int) bool {
	if start > 0 && isWordRune(n.runes[start-1]) {
		return false
	}
	if end < len(n.runes) && isWordRune(n.runes[end]) {
		return false
	}
	return true
}
