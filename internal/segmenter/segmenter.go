// Package segmenter splits long text into chunks a speech provider accepts
// in a single call, preferring paragraph, sentence and clause boundaries.
package segmenter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
)

// Defaults used by the pipeline.
const (
	DefaultCeiling  = 3800
	DefaultMinChunk = 100
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Segmenter produces ordered chunks no longer than Ceiling runes.
type Segmenter struct {
	ceiling  int
	minChunk int
}

// New creates a segmenter. minChunk is the size below which adjacent pieces
// are merged when the combination still fits.
func New(ceiling, minChunk int) (*Segmenter, error) {
	if ceiling <= 0 {
		return nil, apperrors.Segmentation(apperrors.ReasonInvalidCeiling,
			fmt.Sprintf("ceiling must be positive, got %d", ceiling))
	}
	if minChunk < 0 || minChunk > ceiling {
		return nil, apperrors.Segmentation(apperrors.ReasonInvalidCeiling,
			fmt.Sprintf("minimum chunk size %d must be between 0 and ceiling %d", minChunk, ceiling))
	}
	return &Segmenter{ceiling: ceiling, minChunk: minChunk}, nil
}

// Ceiling returns the maximum chunk length in runes.
func (s *Segmenter) Ceiling() int {
	return s.ceiling
}

// Segment splits text into 1-indexed chunks in source order. Whitespace is
// collapsed to single spaces; paragraph breaks become one space when pieces
// are merged. Text with no visible characters yields an empty-text error.
func (s *Segmenter) Segment(text string) ([]models.TextChunk, error) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, apperrors.Segmentation(apperrors.ReasonEmptyText, "text is empty")
	}

	var pieces []string
	for _, p := range paragraphs {
		if runeLen(p) <= s.ceiling {
			pieces = append(pieces, p)
			continue
		}
		pieces = append(pieces, s.pack(s.units(p))...)
	}

	merged := s.mergeSmall(pieces)
	chunks := make([]models.TextChunk, 0, len(merged))
	for i, m := range merged {
		chunks = append(chunks, models.TextChunk{Index: i + 1, Text: m, Length: runeLen(m)})
	}
	return chunks, nil
}

// Segment is a convenience wrapper around New and Segmenter.Segment.
func Segment(text string, ceiling, minChunk int) ([]models.TextChunk, error) {
	s, err := New(ceiling, minChunk)
	if err != nil {
		return nil, err
	}
	return s.Segment(text)
}

// units breaks an oversized paragraph into pieces that each fit the ceiling:
// sentences, then clauses, then word runs.
func (s *Segmenter) units(paragraph string) []string {
	var out []string
	for _, sentence := range splitSentences(paragraph) {
		if runeLen(sentence) <= s.ceiling {
			out = append(out, sentence)
			continue
		}
		for _, clause := range splitClauses(sentence) {
			if runeLen(clause) <= s.ceiling {
				out = append(out, clause)
				continue
			}
			out = append(out, s.splitWords(clause)...)
		}
	}
	return out
}

// pack greedily joins consecutive units with a space while they fit.
func (s *Segmenter) pack(units []string) []string {
	var out []string
	var buf strings.Builder
	bufLen := 0
	for _, u := range units {
		n := runeLen(u)
		if bufLen > 0 && bufLen+1+n <= s.ceiling {
			buf.WriteByte(' ')
			buf.WriteString(u)
			bufLen += 1 + n
			continue
		}
		if bufLen > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteString(u)
		bufLen = n
	}
	if bufLen > 0 {
		out = append(out, buf.String())
	}
	return out
}

// mergeSmall folds pieces shorter than the minimum into their neighbour
// while the result fits. The final buffer is flushed whatever its size.
func (s *Segmenter) mergeSmall(pieces []string) []string {
	var out []string
	buf, bufLen := "", 0
	for _, p := range pieces {
		n := runeLen(p)
		switch {
		case bufLen == 0:
			buf, bufLen = p, n
		case (bufLen < s.minChunk || n < s.minChunk) && bufLen+1+n <= s.ceiling:
			buf += " " + p
			bufLen += 1 + n
		default:
			out = append(out, buf)
			buf, bufLen = p, n
		}
	}
	if bufLen > 0 {
		out = append(out, buf)
	}
	return out
}

// splitWords accumulates whole words up to the ceiling. A single word
// longer than the ceiling is cut at rune boundaries.
func (s *Segmenter) splitWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(text) {
		if runeLen(w) <= s.ceiling {
			words = append(words, w)
			continue
		}
		words = append(words, hardSplit(w, s.ceiling)...)
	}
	return s.pack(words)
}

func hardSplit(word string, size int) []string {
	runes := []rune(word)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// splitParagraphs splits on blank lines and collapses inner whitespace.
func splitParagraphs(text string) []string {
	var out []string
	for _, raw := range paragraphBreak.Split(text, -1) {
		if p := strings.Join(strings.Fields(raw), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences cuts after a run of terminal punctuation (and any closing
// quotes or brackets) that is followed by whitespace or end of text.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j == len(runes) || unicode.IsSpace(runes[j]) {
			if sentence := strings.TrimSpace(string(runes[start:j])); sentence != "" {
				out = append(out, sentence)
			}
			start = j
		}
		i = j - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// splitClauses cuts after commas, semicolons and colons, and before the
// conjunctions "and", "or" and "but".
func splitClauses(sentence string) []string {
	var out, cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for _, w := range strings.Fields(sentence) {
		if isConjunction(w) {
			flush()
		}
		cur = append(cur, w)
		if strings.HasSuffix(w, ",") || strings.HasSuffix(w, ";") || strings.HasSuffix(w, ":") {
			flush()
		}
	}
	flush()
	return out
}

func isConjunction(word string) bool {
	switch strings.ToLower(word) {
	case "and", "or", "but":
		return true
	}
	return false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
