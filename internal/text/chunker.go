package text

import "unicode/utf8"

// DefaultChunkSize is the window width, in characters, used for library content.
const DefaultChunkSize = 1000

// Split cuts text into consecutive, non-overlapping windows of size characters.
// Windows are positional and ignore word or sentence boundaries; the last window
// holds the remainder. Empty text yields no chunks. Characters are runes, so a
// multi-byte sequence is never split across two chunks.
func Split(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	n := utf8.RuneCountInString(text)
	chunks := make([]string, 0, (n+size-1)/size)

	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, text[start:])

	return chunks
}

// count reports how many chunks Split would produce without allocating them.
func count(text string, size int) int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	n := utf8.RuneCountInString(text)
	return (n + size - 1) / size
}
