package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	pdf "github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for uploads that are neither PDF nor
// plain text.
var ErrUnsupportedFormat = errors.New("unsupported report file format")

// Extractor turns an uploaded report file into plain text for the
// extraction pipeline.
type Extractor interface {
	ExtractText(r io.Reader, filename string) (string, error)
}

// New returns the default extractor backed by unipdf for PDF files.
func New(log *zap.Logger) Extractor {
	return &fileExtractor{log: log.Named("textextract")}
}

type fileExtractor struct {
	log *zap.Logger
}

func (e *fileExtractor) ExtractText(r io.Reader, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return e.extractPDF(r, filename)
	case ".txt", ".text":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filename, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func (e *fileExtractor) extractPDF(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}

	reader, err := pdf.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", filename, err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("paging %s: %w", filename, err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("page %d of %s: %w", i, filename, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("extractor for page %d of %s: %w", i, filename, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			e.log.Warn("skipping unreadable page",
				zap.String("file", filename),
				zap.Int("page", i),
				zap.Error(err))
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("no extractable text in %s", filename)
	}
	return out, nil
}
