// Package parser defines the contract shared by the per-source parsers and
// the format detection policy that routes uploaded files to them.
package parser

import (
	"context"

	"github.com/vitalvault/importer/pkg/common/models"
)

// Format is a detected input format. It selects which parser handles a file.
type Format string

const (
	FormatSamsungExport   Format = "samsung-export"
	FormatClinicalBundle  Format = "clinical-bundle"
	FormatClinicalArchive Format = "clinical-bundle-archive"
	FormatGenericCSV      Format = "generic-csv"
	FormatLabDocument     Format = "lab-document"
)

// ArchiveEntry is one named file yielded by the archive extraction
// capability.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// Input is everything a parser may receive. Exactly one of Data, Entries, or
// Pages is populated, depending on the format: raw file bytes, unpacked
// archive entries, or page-ordered document text.
type Input struct {
	Name    string
	Data    []byte
	Entries []ArchiveEntry
	Pages   []string

	// TypeHint carries the generic-CSV header classification (medications,
	// vitals, activity). Empty for every other format.
	TypeHint string
}

// Parser turns one prepared input into the uniform output contract.
// Implementations hold no per-call state and are safe for reuse.
type Parser interface {
	Parse(ctx context.Context, input Input) (*models.ParserOutput, error)
}

// Registry maps detected formats to parsers. It is built explicitly at wiring
// time and injected into the orchestrator; nothing discovers parsers through
// ambient globals.
type Registry struct {
	parsers map[Format]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[Format]Parser)}
}

func (r *Registry) Register(format Format, p Parser) {
	r.parsers[format] = p
}

func (r *Registry) Get(format Format) (Parser, bool) {
	p, ok := r.parsers[format]
	return p, ok
}
