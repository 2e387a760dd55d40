package parser

import (
	"errors"
	"fmt"
)

// UnsupportedFormatError means the detector found no parser for a file. Fatal
// for that file only.
type UnsupportedFormatError struct {
	Name string
}

func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Name)
}

func IsUnsupportedFormat(err error) bool {
	var ue UnsupportedFormatError
	return errors.As(err, &ue)
}

// BundleNotFoundError means a clinical archive contained no parseable bundle.
type BundleNotFoundError struct {
	Name string
}

func (e BundleNotFoundError) Error() string {
	return fmt.Sprintf("no clinical bundle found in archive: %s", e.Name)
}

// ExtractionError wraps a failure of an underlying extraction capability
// (archive unpack, document text extraction). The original cause is attached.
type ExtractionError struct {
	Name  string
	Cause error
}

func (e ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Name, e.Cause)
}

func (e ExtractionError) Unwrap() error {
	return e.Cause
}
