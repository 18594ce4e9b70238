// Package chunker splits document text into overlapping pieces for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/raphaelgruber/detective-go/internal/models"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 64
)

// defaultSeparators prefer paragraph breaks, then lines, then sentence and
// clause boundaries, before falling back to hard cuts.
var defaultSeparators = []string{"\n\n", "\n", ". ", ", ", " ", ""}

// Piece is one chunk of a document before persistence.
type Piece struct {
	Index int
	Text  string
}

// Chunker splits text recursively along natural boundaries.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// New creates a chunker with the given size and overlap. Zero values fall
// back to the defaults.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(defaultSeparators),
		),
	}
}

// Split breaks raw text into pieces with contiguous indices starting at 0.
func (c *Chunker) Split(text string) ([]Piece, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Piece{}, nil
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	pieces := make([]Piece, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pieces = append(pieces, Piece{Index: len(pieces), Text: part})
	}
	return pieces, nil
}

// SplitDocument chunks a document's body. A subject line, when present, is
// prepended to the body so it lands in the first chunk and stays searchable.
func (c *Chunker) SplitDocument(doc *models.Document) ([]Piece, error) {
	body := doc.Body
	if doc.Subject != nil && strings.TrimSpace(*doc.Subject) != "" {
		body = fmt.Sprintf("Subject: %s\n\n%s", strings.TrimSpace(*doc.Subject), body)
	}
	return c.Split(body)
}
