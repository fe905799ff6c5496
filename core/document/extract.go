package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

// Extractor turns an accepted upload into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, f File) (string, error)
}

type extractor struct {
	llm    core.LLMService
	logger core.Logger
}

var _ Extractor = (*extractor)(nil)

func NewExtractor(llm core.LLMService, logger core.Logger) Extractor {
	return &extractor{llm: llm, logger: logger}
}

// ExtractText reads the PDF text layer, transcribes images with the vision model, and passes text through.
// An empty result is not an error: scanned PDFs without a text layer yield "".
func (ex *extractor) ExtractText(ctx context.Context, f File) (string, error) {
	switch {
	case f.IsPDF():
		text, err := PDFText(f.Content)
		if err != nil {
			ex.logger.Warn("pdf text extraction failed", err, map[string]interface{}{"filename": f.Filename})
			return "", nil
		}
		return text, nil
	case f.IsImage():
		text, err := ex.llm.Transcribe(ctx, f.Content, f.MimeType)
		if err != nil {
			ex.logger.Warn("image transcription failed", err, map[string]interface{}{"filename": f.Filename})
			return "", nil
		}
		return text, nil
	case f.IsText():
		return strings.TrimSpace(string(f.Content)), nil
	}
	return "", errors.Errorf("unsupported document type %q", f.MimeType)
}

// PDFText returns the plain text layer of a PDF document.
func PDFText(content []byte) (text string, err error) {
	// the parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading pdf: %v", r)
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", errors.Wrap(err, "opening pdf")
	}
	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	buf := new(bytes.Buffer)
	if _, err = io.Copy(buf, plain); err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	return strings.TrimSpace(buf.String()), nil
}

// NoTextNote stands in for the document text when nothing could be extracted.
const NoTextNote = "[No text could be extracted from the uploaded document. " +
	"Base the analysis on the file name and provide general guidance.]"

// TextOrNote returns text, or a note naming the file when text is empty.
func TextOrNote(text, filename string) string {
	if strings.TrimSpace(text) == "" {
		return NoTextNote + "\nFile name: " + filename
	}
	return text
}
