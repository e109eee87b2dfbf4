package normalize

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// Sentinel errors for the normalizer. Both are non-retryable: the coordinator
// quarantines immediately without consuming AI quota.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrCorruptFile       = errors.New("corrupt document")
)

// TruncationMarker is appended to normalized text cut to the input budget.
const TruncationMarker = "\n[truncated: document exceeds analysis input budget]"

// Normalizer converts heterogeneous intake documents into the canonical
// representation consumed by the AI adapter. It has no side effects beyond
// reading the input.
type Normalizer struct {
	maxChars int
	logger   arbor.ILogger
}

// New creates a Normalizer bounded by the adapter's input budget.
func New(cfg *common.AIConfig, logger arbor.ILogger) *Normalizer {
	return &Normalizer{
		maxChars: cfg.MaxInputChars,
		logger:   logger,
	}
}

// Normalize produces a NormalizedInput or fails with ErrUnsupportedFormat /
// ErrCorruptFile. Truncation is deterministic: the head of the document is
// preserved and the result is flagged so downstream stages can lower
// confidence.
func (n *Normalizer) Normalize(doc *models.RawDocument) (*models.NormalizedInput, error) {
	var (
		text string
		out  *models.NormalizedInput
		err  error
	)

	switch doc.MimeKind {
	case models.MimeCSV:
		text, err = renderCSV(doc.Data)
	case models.MimeExcel:
		text, err = renderExcel(doc.Data)
	case models.MimeText:
		text, err = renderText(doc.Data)
	case models.MimePDF:
		out, err = n.preparePDF(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.MimeKind)
	}
	if err != nil {
		return nil, err
	}

	if out == nil {
		out = &models.NormalizedInput{
			SourceID: doc.SourceID,
			Kind:     doc.MimeKind,
			Text:     text,
		}
	}

	if len(out.Text) > n.maxChars {
		out.Text = truncate(out.Text, n.maxChars)
		out.Truncated = true
		n.logger.Warn().
			Str("source_id", doc.SourceID).
			Int("budget_chars", n.maxChars).
			Msg("Document truncated to analysis input budget")
	}

	return out, nil
}

// truncate cuts s to at most max bytes on a rune boundary and appends the
// truncation marker.
func truncate(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}

// renderText validates a plain-text document.
func renderText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text document is not valid UTF-8", ErrCorruptFile)
	}
	return strings.TrimSpace(string(data)), nil
}
