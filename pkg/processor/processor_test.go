package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/pkg/processor"
)

func TestProcess_DeterministicIDs(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    10,
		ChunkOverlap: 2,
	})

	articles := []models.ScrapedArticle{
		{Link: "https://news/a", Paragraphs: []string{strings.Repeat("x", 25)}},
	}

	first := p.Process(articles)
	second := p.Process(articles)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}

	assert.Equal(t, "https://news/a::0", first[0].ID)
	assert.Equal(t, "https://news/a::1", first[1].ID)
}

func TestProcess_OverlappingWindows(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    10,
		ChunkOverlap: 4,
	})

	text := "abcdefghijklmnop" // 16 runes
	chunks := p.Process([]models.ScrapedArticle{
		{Link: "https://x", Paragraphs: []string{text}},
	})

	// Windows step by size-overlap=6: [0:10], [6:16]
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcdefghij", chunks[0].Text)
	assert.Equal(t, "ghijklmnop", chunks[1].Text)
}

func TestProcess_EmptyArticleYieldsNoChunks(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	chunks := p.Process([]models.ScrapedArticle{
		{Link: "https://failed", Paragraphs: nil},
		{Link: "https://blank", Paragraphs: []string{"", "  "}},
	})

	assert.Empty(t, chunks)
}

func TestProcess_JoinsParagraphs(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    1000,
		ChunkOverlap: 50,
	})

	chunks := p.Process([]models.ScrapedArticle{
		{Link: "https://x", Paragraphs: []string{"first", "second"}},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "first\nsecond", chunks[0].Text)
	assert.Equal(t, "https://x", chunks[0].SourceLink)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "https://a::3", processor.ChunkID("https://a", 3))
}
