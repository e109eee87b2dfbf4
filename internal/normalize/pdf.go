package normalize

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/prismintel/propertyflow/internal/models"
)

// preparePDF validates a PDF and passes its bytes through for native reading
// by the analysis model. A file that fails even relaxed validation is
// corrupt and must not consume AI quota.
func (n *Normalizer) preparePDF(doc *models.RawDocument) (*models.NormalizedInput, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(doc.Data), cfg); err != nil {
		return nil, fmt.Errorf("%w: PDF validation failed: %v", ErrCorruptFile, err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(doc.Data), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF page count: %v", ErrCorruptFile, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrCorruptFile)
	}

	return &models.NormalizedInput{
		SourceID:      doc.SourceID,
		Kind:          models.MimePDF,
		DocumentBytes: doc.Data,
		DocumentMIME:  "application/pdf",
		PageCount:     pageCount,
	}, nil
}
