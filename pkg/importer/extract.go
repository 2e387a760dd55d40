package importer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/vitalvault/importer/pkg/parser"
)

// ArchiveExtractor yields the named entries of an uploaded archive.
type ArchiveExtractor interface {
	Extract(name string, data []byte) ([]parser.ArchiveEntry, error)
}

// DocumentTextExtractor yields page-ordered text from a binary document.
// PDF extraction is supplied by the host; tests use a fake.
type DocumentTextExtractor interface {
	ExtractText(name string, data []byte) ([]string, error)
}

// ZipExtractor unpacks standard zip archives in memory.
type ZipExtractor struct {
	// MaxEntries bounds how many entries are read; 0 means no bound.
	MaxEntries int
}

func (z ZipExtractor) Extract(name string, data []byte) ([]parser.ArchiveEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", name, err)
	}

	var entries []parser.ArchiveEntry
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if z.MaxEntries > 0 && len(entries) >= z.MaxEntries {
			break
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening archive entry %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %s: %w", file.Name, err)
		}
		entries = append(entries, parser.ArchiveEntry{Name: file.Name, Data: content})
	}
	return entries, nil
}
