package processor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Magic bytes for format detection
var (
	pdfMagic  = []byte("%PDF-")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// ErrNoText is returned for inputs without a text layer.
var ErrNoText = errors.New("document has no extractable text")

// DocumentText returns the text of a PDF (its text layer) or of a plain UTF-8
// upload. Images are rejected: OCR is out of scope.
func DocumentText(data []byte) (string, error) {
	switch {
	case len(data) == 0:
		return "", ErrNoText
	case bytes.HasPrefix(data, pdfMagic):
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("read pdf: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrNoText
		}
		return text, nil
	case isImageData(data):
		return "", fmt.Errorf("%w: image uploads are not supported, send a PDF or text", ErrNoText)
	case !utf8.Valid(data):
		return "", fmt.Errorf("%w: not a PDF or UTF-8 text", ErrNoText)
	default:
		return string(data), nil
	}
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// isImageData checks for JPEG or PNG magic bytes at the start of the data.
func isImageData(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, pngMagic)
}
