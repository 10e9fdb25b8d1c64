// Package upload validates user-submitted files before anything touches
// the network. Rejections happen here so a bad file never reaches the
// analysis backend.
package upload

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfMagic is the required file signature. The version digits after the
// dash vary, so only the prefix is checked.
var pdfMagic = []byte("%PDF-")

// ValidationError reports why a specific file was rejected.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// Validator checks uploaded files against size and format constraints.
type Validator struct {
	maxSize int64
}

// NewValidator creates a validator. maxSize <= 0 disables the size check.
func NewValidator(maxSize int64) *Validator {
	return &Validator{maxSize: maxSize}
}

// Validate rejects anything that is not a plausible PDF: empty content,
// wrong extension, missing %PDF- signature, or oversized files.
func (v *Validator) Validate(name string, data []byte) error {
	if len(data) == 0 {
		return &ValidationError{FileName: name, Reason: "file is empty"}
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != ".pdf" {
		return &ValidationError{FileName: name, Reason: "only PDF files are accepted"}
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return &ValidationError{FileName: name, Reason: "not a valid PDF file"}
	}
	if v.maxSize > 0 && int64(len(data)) > v.maxSize {
		return &ValidationError{
			FileName: name,
			Reason:   fmt.Sprintf("file exceeds the %d byte limit", v.maxSize),
		}
	}
	return nil
}

// PageCount parses the PDF structure and returns the number of pages.
// Parsing is best-effort: scanned or malformed-but-signed PDFs still get
// forwarded to the backend, so failures return 0 rather than an error.
func PageCount(data []byte) int {
	defer func() {
		// The pdf package panics on some malformed inputs.
		recover()
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
