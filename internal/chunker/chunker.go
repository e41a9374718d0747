// Package chunker splits text into word-aligned, offset-tagged substrings for
// parallel extraction. A chunk is always the exact original text from the
// first word's start to the last word's end in its group, so the invariant
// text[c.Offset : c.Offset+len(c.Text)] == c.Text holds for every chunk.
// The whole downstream offset model depends on that round trip.
package chunker

import (
	"fmt"
	"regexp"
)

var wordRe = regexp.MustCompile(`\S+`)

// DefaultChunkSize is the fallback word count per chunk when the caller
// passes a non-positive value.
const DefaultChunkSize = 600

// Chunk is a word-aligned contiguous substring of the source text together
// with its absolute character offset.
type Chunk struct {
	Text   string
	Offset int
}

// Split slices text into chunks of up to maxWords whitespace-delimited words.
// Words are never split across chunks; internal whitespace is preserved
// verbatim. Empty or whitespace-only input yields nil.
func Split(text string, maxWords int) []Chunk {
	if maxWords <= 0 {
		maxWords = DefaultChunkSize
	}
	spans := wordRe.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(spans)+maxWords-1)/maxWords)
	for i := 0; i < len(spans); i += maxWords {
		j := i + maxWords
		if j > len(spans) {
			j = len(spans)
		}
		start := spans[i][0]
		end := spans[j-1][1]
		chunks = append(chunks, Chunk{Text: text[start:end], Offset: start})
	}
	return chunks
}

// WordCount returns the number of whitespace-delimited words in text.
func WordCount(text string) int {
	return len(wordRe.FindAllStringIndex(text, -1))
}

// EstimateCount predicts how many chunks Split will produce.
func EstimateCount(text string, maxWords int) int {
	if maxWords <= 0 {
		return 0
	}
	words := WordCount(text)
	return (words + maxWords - 1) / maxWords
}

// Validate re-derives each chunk from (Text, Offset) and the original text
// and reports the first mismatch. A nil error means every chunk reproduces
// its covered region of the source exactly.
func Validate(chunks []Chunk, original string) error {
	for i, c := range chunks {
		if c.Offset < 0 || c.Offset >= len(original) {
			return fmt.Errorf("chunk %d: offset %d out of range [0,%d)", i, c.Offset, len(original))
		}
		end := c.Offset + len(c.Text)
		if end > len(original) {
			return fmt.Errorf("chunk %d: extends beyond text length: %d > %d", i, end, len(original))
		}
		if original[c.Offset:end] != c.Text {
			return fmt.Errorf("chunk %d: text mismatch at offset %d", i, c.Offset)
		}
	}
	return nil
}

// Stats summarizes a chunk list.
type Stats struct {
	TotalChunks      int     `json:"total_chunks"`
	TotalCharacters  int     `json:"total_characters"`
	TotalWords       int     `json:"total_words"`
	MinChunkSize     int     `json:"min_chunk_size"`
	MaxChunkSize     int     `json:"max_chunk_size"`
	AvgChunkSize     float64 `json:"average_chunk_size"`
	AvgWordsPerChunk float64 `json:"average_words_per_chunk"`
}

// Summarize computes size statistics for the given chunks.
func Summarize(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}
	s := Stats{TotalChunks: len(chunks), MinChunkSize: len(chunks[0].Text)}
	for _, c := range chunks {
		n := len(c.Text)
		s.TotalCharacters += n
		s.TotalWords += WordCount(c.Text)
		if n < s.MinChunkSize {
			s.MinChunkSize = n
		}
		if n > s.MaxChunkSize {
			s.MaxChunkSize = n
		}
	}
	s.AvgChunkSize = float64(s.TotalCharacters) / float64(len(chunks))
	s.AvgWordsPerChunk = float64(s.TotalWords) / float64(len(chunks))
	return s
}
