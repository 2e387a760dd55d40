package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitalvault/importer/pkg/common/config"
	"github.com/vitalvault/importer/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// RecordModel is one stored canonical record. The full record rides in the
// JSON payload; category, type, and date are lifted into columns for range
// queries.
type RecordModel struct {
	ID         string            `gorm:"primaryKey;column:id"`
	Category   string            `gorm:"column:category;index:idx_records_category_date"`
	RecordType string            `gorm:"column:record_type"`
	Date       string            `gorm:"column:date;index:idx_records_category_date"`
	Source     string            `gorm:"column:source"`
	Payload    datatypes.JSONMap `gorm:"column:payload"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (RecordModel) TableName() string {
	return "health_records"
}

// ImportBatchModel is one row of the append-only import ledger.
type ImportBatchModel struct {
	ID              string    `gorm:"primaryKey;column:id"`
	Timestamp       time.Time `gorm:"column:timestamp"`
	SourceFormat    string    `gorm:"column:source_format"`
	FileName        string    `gorm:"column:file_name"`
	RecordsImported int       `gorm:"column:records_imported"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (ImportBatchModel) TableName() string {
	return "import_batches"
}

// PostgresStore implements RecordStore on gorm/Postgres.
type PostgresStore struct {
	db *gorm.DB
}

func OpenPostgres(cfg *config.Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresPort,
		cfg.PostgresSSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return NewPostgresStore(db)
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&RecordModel{}, &ImportBatchModel{}); err != nil {
		return nil, fmt.Errorf("migrating record store: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddRecords(ctx context.Context, category models.Category, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]RecordModel, 0, len(records))
	for _, rec := range records {
		payload, err := recordPayload(rec)
		if err != nil {
			return err
		}
		rows = append(rows, RecordModel{
			ID:         uuid.New().String(),
			Category:   string(category),
			RecordType: recordType(rec),
			Date:       rec.Date,
			Source:     string(rec.Source),
			Payload:    payload,
			CreatedAt:  time.Now().UTC(),
		})
	}

	if err := s.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("inserting %d %s records: %w", len(rows), category, err)
	}
	return nil
}

func (s *PostgresStore) RecordImport(ctx context.Context, batch models.ImportBatch) error {
	row := ImportBatchModel{
		ID:              batch.ID,
		Timestamp:       batch.Timestamp,
		SourceFormat:    batch.SourceFormat,
		FileName:        batch.FileName,
		RecordsImported: batch.RecordsImported,
		CreatedAt:       time.Now().UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("appending import ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryRange(ctx context.Context, category models.Category, from, to string) ([]models.Record, error) {
	var rows []RecordModel
	q := s.db.WithContext(ctx).Where("category = ?", string(category))
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}
	if err := q.Order("date asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := payloadRecord(row.Payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) Count(ctx context.Context, category models.Category) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&RecordModel{}).
		Where("category = ?", string(category)).
		Count(&count).Error
	return count, err
}

func (s *PostgresStore) ListImports(ctx context.Context) ([]models.ImportBatch, error) {
	var rows []ImportBatchModel
	if err := s.db.WithContext(ctx).Order("timestamp desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	batches := make([]models.ImportBatch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, models.ImportBatch{
			ID:              row.ID,
			Timestamp:       row.Timestamp,
			SourceFormat:    row.SourceFormat,
			FileName:        row.FileName,
			RecordsImported: row.RecordsImported,
		})
	}
	return batches, nil
}

func recordPayload(rec models.Record) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record payload: %w", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding record payload: %w", err)
	}
	return datatypes.JSONMap(payload), nil
}

func payloadRecord(payload datatypes.JSONMap) (models.Record, error) {
	raw, err := json.Marshal(map[string]interface{}(payload))
	if err != nil {
		return models.Record{}, err
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// recordType lifts the per-kind discriminator used for range queries.
func recordType(rec models.Record) string {
	switch rec.Kind {
	case models.CategoryVital:
		return rec.Vital.Type
	case models.CategoryActivity:
		return rec.Activity.Type
	case models.CategoryLab:
		return rec.Lab.TestType
	case models.CategoryMedication:
		return rec.Medication.Name
	case models.CategorySleep, models.CategoryProvider:
		return ""
	case models.CategoryEncounter:
		return rec.Encounter.Type
	default:
		return ""
	}
}
