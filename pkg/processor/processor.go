package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/xhad/stocknews/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Now          func() time.Time
}

// Processor splits scraped articles into overlapping chunks with
// deterministic ids, so re-chunking the same input regenerates the
// same ids and an upsert overwrites instead of duplicating.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 512
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 4
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return Processor{config: config}
}

// Process turns each article's paragraphs into chunks. Articles with no
// text contribute zero chunks; that is not an error.
func (p *Processor) Process(articles []models.ScrapedArticle) []models.Chunk {
	var chunks []models.Chunk

	for _, article := range articles {
		text := strings.TrimSpace(strings.Join(article.Paragraphs, "\n"))
		if text == "" {
			continue
		}

		createdAt := p.config.Now().UTC()
		for i, window := range p.splitIntoWindows(text) {
			chunks = append(chunks, models.Chunk{
				ID:         ChunkID(article.Link, i),
				Text:       window,
				SourceLink: article.Link,
				CreatedAt:  createdAt,
			})
		}
	}

	return chunks
}

// splitIntoWindows cuts text into fixed-size rune windows, each
// starting ChunkSize-ChunkOverlap runes after the previous one.
func (p *Processor) splitIntoWindows(text string) []string {
	runes := []rune(text)
	size := p.config.ChunkSize
	step := size - p.config.ChunkOverlap

	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return windows
}

// ChunkID is the deterministic idempotency key for one chunk.
func ChunkID(link string, index int) string {
	return fmt.Sprintf("%s::%d", link, index)
}
