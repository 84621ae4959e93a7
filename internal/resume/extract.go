package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrEmptyFile       = errors.New("resume file is empty")
	ErrUnsupportedType = errors.New("unsupported resume file type, upload a PDF or plain text file")
	ErrNoText          = errors.New("no text could be extracted from the resume")
)

type kind int

const (
	kindUnknown kind = iota
	kindPDF
	kindText
)

func detect(name, contentType string) kind {
	ext := strings.ToLower(filepath.Ext(name))
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ext == ".pdf" || strings.HasPrefix(contentType, "application/pdf"):
		return kindPDF
	case ext == ".txt" || ext == ".md" || strings.HasPrefix(contentType, "text/"):
		return kindText
	default:
		return kindUnknown
	}
}

// Extension returns the lowercase extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// ExtractText returns the plain text of a PDF or text resume.
func ExtractText(name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	var text string
	switch detect(name, contentType) {
	case kindPDF:
		extracted, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("parse pdf: %w", err)
		}
		text = extracted
	case kindText:
		text = string(data)
	default:
		return "", ErrUnsupportedType
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
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
