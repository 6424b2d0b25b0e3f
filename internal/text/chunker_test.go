package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSplit(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Split("", 1000))
		assert.Equal(t, 0, count("", 1000))
	})

	t.Run("Shorter Than Window", func(t *testing.T) {
		chunks := Split("hello", 1000)
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("Exact Multiple", func(t *testing.T) {
		chunks := Split(strings.Repeat("a", 2000), 1000)
		assert.Len(t, chunks, 2)
		assert.Len(t, chunks[1], 1000)
	})

	t.Run("Remainder", func(t *testing.T) {
		chunks := Split(strings.Repeat("x", 2500), 1000)
		if assert.Len(t, chunks, 3) {
			assert.Len(t, chunks[0], 1000)
			assert.Len(t, chunks[1], 1000)
			assert.Len(t, chunks[2], 500)
		}
	})

	t.Run("Ignores Word Boundaries", func(t *testing.T) {
		chunks := Split("hello world", 4)
		assert.Equal(t, []string{"hell", "o wo", "rld"}, chunks)
	})

	t.Run("Counts Runes", func(t *testing.T) {
		chunks := Split("héllo wörld", 3)
		assert.Equal(t, []string{"hél", "lo ", "wör", "ld"}, chunks)
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c))
		}
	})

	t.Run("Non-Positive Size Falls Back", func(t *testing.T) {
		chunks := Split(strings.Repeat("b", 1500), 0)
		assert.Len(t, chunks, 2)
	})
}

func TestSplit_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.String().Draw(rt, "text")
		size := rapid.IntRange(1, 64).Draw(rt, "size")

		chunks := Split(input, size)

		if got := strings.Join(chunks, ""); got != input {
			rt.Fatalf("chunks do not reassemble the input: %q != %q", got, input)
		}

		total := 0
		for i, c := range chunks {
			n := utf8.RuneCountInString(c)
			total += n
			if i < len(chunks)-1 && n != size {
				rt.Fatalf("chunk %d has %d runes, want %d", i, n, size)
			}
			if n == 0 || n > size {
				rt.Fatalf("chunk %d has invalid length %d", i, n)
			}
		}

		runes := utf8.RuneCountInString(input)
		if total != runes {
			rt.Fatalf("sum of chunk lengths %d != %d", total, runes)
		}
		if want := (runes + size - 1) / size; len(chunks) != want {
			rt.Fatalf("got %d chunks, want %d", len(chunks), want)
		}
		if count(input, size) != len(chunks) {
			rt.Fatalf("Count disagrees with Split")
		}

		again := Split(input, size)
		if strings.Join(again, "\x00") != strings.Join(chunks, "\x00") || len(again) != len(chunks) {
			rt.Fatalf("split is not deterministic")
		}
	})
}
