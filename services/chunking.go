package services

import (
	"fmt"
	"regexp"
	"strings"

	"edu-learning-platform/models"
	"edu-learning-platform/utils"
)

// ChunkingService splits document text into overlapping retrieval units.
// Pure sliding window: deterministic, no provider calls.
type ChunkingService struct {
	chunkSize    int
	overlap      int
	headingRegex *regexp.Regexp
}

// NewChunkingService creates a chunker. The overlap must be strictly smaller
// than the chunk size or the window would never advance.
func NewChunkingService(chunkSize, overlap int) (*ChunkingService, error) {
	if chunkSize <= 0 {
		return nil, utils.NewError(utils.ErrValidation, fmt.Sprintf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, utils.NewError(utils.ErrValidation, fmt.Sprintf("overlap %d must be in [0, %d)", overlap, chunkSize))
	}

	return &ChunkingService{
		chunkSize:    chunkSize,
		overlap:      overlap,
		headingRegex: regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`),
	}, nil
}

// ChunkText slides a window of chunkSize over the text, stepping by
// chunkSize-overlap, so consecutive chunks share the trailing overlap of
// their predecessor. Operates on runes so multi-byte characters are never
// split.
func (cs *ChunkingService) ChunkText(text string) []models.TextChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return []models.TextChunk{}
	}

	var chunks []models.TextChunk
	start := 0
	for {
		end := start + cs.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		slice := string(runes[start:end])
		chunks = append(chunks, models.TextChunk{
			Text:      slice,
			Heading:   cs.extractHeading(slice),
			IsCode:    isCodeChunk(slice),
			WordCount: len(strings.Fields(slice)),
		})

		if end == len(runes) {
			break
		}
		start = end - cs.overlap
	}

	return chunks
}

// extractHeading returns the first markdown heading inside the chunk, if any.
func (cs *ChunkingService) extractHeading(text string) string {
	match := cs.headingRegex.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[2])
}

// isCodeChunk treats a chunk as code when it holds at least one complete
// fenced block (two fence markers).
func isCodeChunk(text string) bool {
	return strings.Count(text, "```") >= 2
}
