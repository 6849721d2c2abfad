package segmenter

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
)

func joined(chunks []models.TextChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func assertChunkInvariants(t *testing.T, chunks []models.TextChunk, ceiling int) {
	t.Helper()
	for i, c := range chunks {
		assert.Equal(t, i+1, c.Index)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
		assert.Equal(t, utf8.RuneCountInString(c.Text), c.Length)
		assert.LessOrEqual(t, c.Length, ceiling, "chunk %d exceeds ceiling", c.Index)
	}
}

func sentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "Sentence %03d keeps the listener company on a quiet evening walk.", i)
	}
	return b.String()
}

func TestNineThousandCharactersYieldThreeChunks(t *testing.T) {
	text := sentences(1)
	n := 1
	for utf8.RuneCountInString(text) < 9000 {
		n++
		text = sentences(n)
	}

	chunks, err := Segment(text, DefaultCeiling, DefaultMinChunk)
	require.NoError(t, err)

	assert.Len(t, chunks, 3)
	assertChunkInvariants(t, chunks, DefaultCeiling)
	assert.Equal(t, normalize(text), joined(chunks))
}

func TestShortParagraphsStayWhole(t *testing.T) {
	p1 := strings.Repeat("alpha ", 30)
	p2 := strings.Repeat("beta ", 30)
	text := p1 + "\n\n" + p2

	chunks, err := Segment(text, 200, 10)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, normalize(p1), chunks[0].Text)
	assert.Equal(t, normalize(p2), chunks[1].Text)
}

func TestSmallPiecesAreMerged(t *testing.T) {
	text := "Title\n\nA short intro line.\n\n" + strings.Repeat("word ", 40)

	chunks, err := Segment(text, 500, 100)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "Title A short intro line. word"))
}

func TestFinalRemainderMayBeShort(t *testing.T) {
	long := sentences(10)
	text := long + "\n\nEnd."

	chunks, err := Segment(text, utf8.RuneCountInString(normalize(long)), 100)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "End.", chunks[1].Text)
}

func TestOversizedSentenceSplitsAtClauses(t *testing.T) {
	clause := strings.Repeat("x", 40)
	text := fmt.Sprintf("%s, %s; %s and %s but %s.", clause, clause, clause, clause, clause)

	chunks, err := Segment(text, 60, 0)
	require.NoError(t, err)

	assertChunkInvariants(t, chunks, 60)
	assert.Equal(t, []string{
		clause + ",",
		clause + ";",
		clause,
		"and " + clause,
		"but " + clause + ".",
	}, texts(chunks))
}

func TestOversizedClauseSplitsAtWords(t *testing.T) {
	text := strings.Repeat("lorem ipsum ", 50)

	chunks, err := Segment(text, 25, 0)
	require.NoError(t, err)

	assertChunkInvariants(t, chunks, 25)
	for _, c := range chunks {
		for _, w := range strings.Fields(c.Text) {
			assert.Contains(t, []string{"lorem", "ipsum"}, w, "words are never broken")
		}
	}
	assert.Equal(t, normalize(text), joined(chunks))
}

func TestOverlongWordIsHardSplit(t *testing.T) {
	word := strings.Repeat("é", 25)

	chunks, err := Segment(word, 10, 0)
	require.NoError(t, err)

	assertChunkInvariants(t, chunks, 10)
	assert.Equal(t, word, strings.ReplaceAll(joined(chunks), " ", ""))
}

func TestRoundTripPreservesContent(t *testing.T) {
	text := "First paragraph.  It has   two sentences!\n\n\n" +
		sentences(30) + "\n  \n" +
		"Does it end? \"Yes,\" she said. (Really.) Done"

	for _, ceiling := range []int{80, 300, 1000, 5000} {
		t.Run(fmt.Sprint(ceiling), func(t *testing.T) {
			chunks, err := Segment(text, ceiling, 20)
			require.NoError(t, err)
			assertChunkInvariants(t, chunks, ceiling)
			assert.Equal(t, normalize(text), joined(chunks))
		})
	}
}

func TestDeterministic(t *testing.T) {
	text := sentences(200)
	first, err := Segment(text, 1000, 100)
	require.NoError(t, err)
	second, err := Segment(text, 1000, 100)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		chunks, err := Segment(text, DefaultCeiling, DefaultMinChunk)
		assert.Nil(t, chunks)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrEmptyText))
	}
}

func TestInvalidCeiling(t *testing.T) {
	_, err := New(0, 0)
	assert.ErrorIs(t, err, apperrors.ErrSegmentation)
	assert.Equal(t, apperrors.ReasonInvalidCeiling, apperrors.ReasonOf(err))

	_, err = New(100, 200)
	assert.ErrorIs(t, err, apperrors.ErrSegmentation)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences(`He asked "why?" Then left. Version 1.5 shipped! OK`)
	assert.Equal(t, []string{`He asked "why?"`, "Then left.", "Version 1.5 shipped!", "OK"}, got)
}

func texts(chunks []models.TextChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
