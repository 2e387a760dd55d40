// Package store holds the record store the import pipeline writes through
// to: a category-indexed batch-insert interface with range queries, plus the
// append-only import ledger.
package store

import (
	"context"

	"github.com/vitalvault/importer/pkg/common/models"
)

// RecordStore is the storage collaborator contract. Batch writes are not
// transactional across categories; a mid-batch failure may leave partial
// writes but must surface as an error.
type RecordStore interface {
	AddRecords(ctx context.Context, category models.Category, records []models.Record) error
	RecordImport(ctx context.Context, batch models.ImportBatch) error
	QueryRange(ctx context.Context, category models.Category, from, to string) ([]models.Record, error)
	Count(ctx context.Context, category models.Category) (int64, error)
	ListImports(ctx context.Context) ([]models.ImportBatch, error)
}
