// Package importer orchestrates an import run: detect each uploaded file's
// format, prepare the parser input (unpacking archives and extracting document
// text), route through the parser registry, and persist the resulting records
// grouped by category. Files are independent: one failure never aborts the
// rest of the batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/normalize"
	"github.com/vitalvault/importer/pkg/parser"
	"github.com/vitalvault/importer/pkg/parser/fhir"
	"github.com/vitalvault/importer/pkg/store"
)

// UploadedFile is one file submitted for import, by upload or CLI path.
type UploadedFile struct {
	Name string
	Data []byte
}

// EventPublisher emits lifecycle events for downstream consumers. Satisfied by
// kafka.Producer; nil disables publishing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Options collects the orchestrator's collaborators. Registry and Store are
// required; the rest degrade gracefully when absent.
type Options struct {
	Registry *parser.Registry
	Store    store.RecordStore
	Archives ArchiveExtractor
	DocText  DocumentTextExtractor
	Events   EventPublisher
	Cache    *StatusCache
}

type Orchestrator struct {
	registry *parser.Registry
	store    store.RecordStore
	archives ArchiveExtractor
	docText  DocumentTextExtractor
	events   EventPublisher
	cache    *StatusCache
	session  *Session
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		registry: opts.Registry,
		store:    opts.Store,
		archives: opts.Archives,
		docText:  opts.DocText,
		events:   opts.Events,
		cache:    opts.Cache,
		session:  NewSession(),
	}
}

// Session exposes the per-run file tracker for the HTTP status endpoints.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// ProcessFiles runs the import for a batch of files and returns the summary.
// Each file is processed in upload order; per-file errors are recorded on the
// file's status and do not stop the batch.
func (o *Orchestrator) ProcessFiles(ctx context.Context, files []UploadedFile) (*models.ImportSummary, error) {
	summary := &models.ImportSummary{
		RecordsByTarget: make(map[models.Category]int),
	}

	for _, file := range files {
		id := o.session.Begin(file.Name)
		o.mirror(ctx, id)

		count, byTarget, err := o.importFile(ctx, id, file)
		if err != nil {
			o.session.Fail(id, err.Error())
			summary.FilesFailed++
			logger.WithFields(logrus.Fields{
				"file":  file.Name,
				"error": err.Error(),
			}).Error("file import failed")
		} else if count == 0 {
			o.session.Warn(id)
			summary.FilesImported++
		} else {
			o.session.Complete(id, count)
			summary.FilesImported++
			summary.TotalRecords += count
			for category, n := range byTarget {
				summary.RecordsByTarget[category] += n
			}
		}
		o.mirror(ctx, id)
	}

	summary.Files = o.session.Files()
	return summary, nil
}

// importFile takes one file through detection, parsing, and persistence. It
// returns the stored record count and the per-category breakdown.
func (o *Orchestrator) importFile(ctx context.Context, id string, file UploadedFile) (int, map[models.Category]int, error) {
	det, err := parser.Detect(file.Name, file.Data)
	if err != nil {
		return 0, nil, err
	}

	input, format, err := o.prepareInput(file, det)
	if err != nil {
		return 0, nil, err
	}
	o.session.SetFormat(id, string(format))

	p, ok := o.registry.Get(format)
	if !ok {
		return 0, nil, fmt.Errorf("no parser registered for format %q", format)
	}

	output, err := p.Parse(ctx, input)
	if err != nil {
		return 0, nil, err
	}

	records := prepareRecords(output.Records)
	byTarget, err := o.persist(ctx, records)
	if err != nil {
		return 0, nil, err
	}

	count := len(records)
	if count > 0 {
		batch := models.ImportBatch{
			Timestamp:       time.Now().UTC(),
			SourceFormat:    string(format),
			FileName:        file.Name,
			RecordsImported: count,
		}
		if err := o.store.RecordImport(ctx, batch); err != nil {
			return 0, nil, err
		}
		o.publishCompleted(ctx, file.Name, format, count, byTarget)
	}

	return count, byTarget, nil
}

// prepareInput turns raw upload bytes into the parser input shape the detected
// format expects. Clinical archives are unpacked and rerouted to the bundle
// parser with the located bundle document.
func (o *Orchestrator) prepareInput(file UploadedFile, det parser.Detection) (parser.Input, parser.Format, error) {
	input := parser.Input{Name: file.Name}

	switch det.Format {
	case parser.FormatSamsungExport:
		entries, err := o.extractArchive(file)
		if err != nil {
			return input, det.Format, err
		}
		input.Entries = entries

	case parser.FormatClinicalArchive:
		entries, err := o.extractArchive(file)
		if err != nil {
			return input, det.Format, err
		}
		bundle, ok := fhir.FindBundle(entries)
		if !ok {
			return input, det.Format, parser.BundleNotFoundError{Name: file.Name}
		}
		input.Data = bundle
		return input, parser.FormatClinicalBundle, nil

	case parser.FormatLabDocument:
		if o.docText == nil {
			return input, det.Format, parser.ExtractionError{
				Name:  file.Name,
				Cause: errors.New("no document text extractor configured"),
			}
		}
		pages, err := o.docText.ExtractText(file.Name, file.Data)
		if err != nil {
			return input, det.Format, parser.ExtractionError{Name: file.Name, Cause: err}
		}
		input.Pages = pages

	case parser.FormatGenericCSV:
		input.Data = file.Data
		input.TypeHint = det.CSVHint

	default:
		input.Data = file.Data
	}

	return input, det.Format, nil
}

func (o *Orchestrator) extractArchive(file UploadedFile) ([]parser.ArchiveEntry, error) {
	if o.archives == nil {
		return nil, parser.ExtractionError{
			Name:  file.Name,
			Cause: errors.New("no archive extractor configured"),
		}
	}
	entries, err := o.archives.Extract(file.Name, file.Data)
	if err != nil {
		return nil, parser.ExtractionError{Name: file.Name, Cause: err}
	}
	return entries, nil
}

// prepareRecords stamps the import date and backfills record dates that the
// parsers left empty or malformed.
func prepareRecords(records []models.Record) []models.Record {
	today := time.Now().UTC().Format("2006-01-02")
	prepared := make([]models.Record, 0, len(records))
	for _, rec := range records {
		rec.ImportDate = today
		if date, ok := normalize.DateOnly(rec.Date); ok {
			rec.Date = date
		} else {
			rec.Date = today
		}
		prepared = append(prepared, rec)
	}
	return prepared
}

// persist groups records by their own category and stores each group.
func (o *Orchestrator) persist(ctx context.Context, records []models.Record) (map[models.Category]int, error) {
	grouped := make(map[models.Category][]models.Record)
	for _, rec := range records {
		grouped[rec.Kind] = append(grouped[rec.Kind], rec)
	}

	byTarget := make(map[models.Category]int)
	for category, group := range grouped {
		if err := o.store.AddRecords(ctx, category, group); err != nil {
			return nil, fmt.Errorf("storing %s records: %w", category, err)
		}
		byTarget[category] = len(group)
	}
	return byTarget, nil
}

func (o *Orchestrator) publishCompleted(ctx context.Context, name string, format parser.Format, count int, byTarget map[models.Category]int) {
	if o.events == nil {
		return
	}
	targets := make(map[string]interface{}, len(byTarget))
	for category, n := range byTarget {
		targets[string(category)] = n
	}
	err := o.events.PublishEvent(ctx, "import.completed", "import-service", map[string]interface{}{
		"fileName":    name,
		"format":      string(format),
		"recordCount": count,
		"byTarget":    targets,
	})
	if err != nil {
		logger.WithField("file", name).Warn("failed to publish import event")
	}
}

func (o *Orchestrator) mirror(ctx context.Context, id string) {
	if o.cache == nil {
		return
	}
	if pf, ok := o.session.Get(id); ok {
		o.cache.Publish(ctx, pf)
	}
}
