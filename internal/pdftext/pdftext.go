// Package pdftext converts PDF documents to plain text with the pdftotext CLI tool.
package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// Converter turns raw PDF bytes into text.
type Converter interface {
	Text(ctx context.Context, pdf []byte) (string, error)
}

// PdfToText runs the pdftotext binary.
type PdfToText struct {
	binPath string
}

// New creates a PdfToText converter. If binPath is empty, "pdftotext" is used.
func New(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Text writes pdf to a temporary file and runs pdftotext -layout on it.
func (p *PdfToText) Text(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", eris.New("pdftext: empty document")
	}
	f, err := os.CreateTemp("", "housing-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "pdftext: create temp file")
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(pdf); err != nil {
		_ = f.Close()
		return "", eris.Wrap(err, "pdftext: write temp file")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "pdftext: close temp file")
	}
	return p.ExtractText(ctx, f.Name())
}

// ExtractText runs pdftotext -layout on the given PDF path and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftext: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}
	return stdout.String(), nil
}
