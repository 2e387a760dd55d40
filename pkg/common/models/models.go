package models

import (
	"fmt"
	"time"
)

// Category is the closed set of record categories every parser emits into.
type Category string

const (
	CategoryVital      Category = "vital"
	CategorySleep      Category = "sleep-session"
	CategoryActivity   Category = "activity-entry"
	CategoryMedication Category = "medication"
	CategoryLab        Category = "lab-result"
	CategoryProvider   Category = "provider"
	CategoryEncounter  Category = "encounter"
)

// Categories lists every record category in storage order.
func Categories() []Category {
	return []Category{
		CategoryVital,
		CategorySleep,
		CategoryActivity,
		CategoryMedication,
		CategoryLab,
		CategoryProvider,
		CategoryEncounter,
	}
}

// Source identifies which ingestion path produced a record.
type Source string

const (
	SourceVendorExport    Source = "vendor-export"
	SourceClinicalBundle  Source = "clinical-bundle"
	SourceDocumentExtract Source = "document-extract"
)

// Known vital/lab type discriminators. Parsers must not invent values
// outside this vocabulary for typed records; unmapped source codes are
// routed to TypeObservation instead.
const (
	TypeWeight      = "weight"
	TypeHeartRate   = "heart-rate"
	TypeSystolicBP  = "systolic-bp"
	TypeDiastolicBP = "diastolic-bp"
	TypeStress      = "stress"
	TypeGlucose     = "glucose"
	TypeA1C         = "a1c"
	TypeObservation = "observation"
)

// Record is the canonical health record: a tagged variant discriminated by
// Kind. Exactly one payload pointer is set, matching Kind. Date is always a
// calendar date in YYYY-MM-DD form; producers drop rows they cannot date
// rather than emit an empty Date.
type Record struct {
	Kind       Category `json:"kind"`
	Date       string   `json:"date"`
	Source     Source   `json:"source"`
	ImportDate string   `json:"importDate,omitempty"`

	Vital      *Vital      `json:"vital,omitempty"`
	Sleep      *Sleep      `json:"sleep,omitempty"`
	Activity   *Activity   `json:"activity,omitempty"`
	Medication *Medication `json:"medication,omitempty"`
	Lab        *Lab        `json:"lab,omitempty"`
	Provider   *Provider   `json:"provider,omitempty"`
	Encounter  *Encounter  `json:"encounter,omitempty"`
}

type Vital struct {
	Type  string                 `json:"type"`
	Value float64                `json:"value"`
	Unit  string                 `json:"unit,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"` // bmi, body-fat, hr context, ...
}

type Sleep struct {
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime,omitempty"`
	TotalMinutes float64 `json:"totalMinutes"`
	DeepMinutes  float64 `json:"deepMinutes,omitempty"`
	LightMinutes float64 `json:"lightMinutes,omitempty"`
	RemMinutes   float64 `json:"remMinutes,omitempty"`
	AwakeMinutes float64 `json:"awakeMinutes,omitempty"`
	Quality      string  `json:"quality,omitempty"`
}

type Activity struct {
	Type            string   `json:"type"` // steps, floors, calories, exercise, activity
	Steps           *float64 `json:"steps,omitempty"`
	Distance        *float64 `json:"distance,omitempty"`
	Calories        *float64 `json:"calories,omitempty"`
	Floors          *float64 `json:"floors,omitempty"`
	StartTime       string   `json:"startTime,omitempty"`
	EndTime         string   `json:"endTime,omitempty"`
	DurationMinutes float64  `json:"durationMinutes,omitempty"`
	ExerciseType    string   `json:"exerciseType,omitempty"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Status    string `json:"status,omitempty"`
}

type Lab struct {
	TestType   string  `json:"testType"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Confidence float64 `json:"confidence"` // within [0,1]
	Context    string  `json:"context,omitempty"`
}

type Provider struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

type Encounter struct {
	Type   string `json:"type"` // visit, condition, procedure, diagnostic-report
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason,omitempty"`
	Status string `json:"status,omitempty"`
}

// Validate checks the tagged-variant invariants: dated, sourced, and carrying
// exactly the payload its Kind names.
func (r Record) Validate() error {
	if r.Date == "" {
		return fmt.Errorf("record missing date")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("record date %q not YYYY-MM-DD: %w", r.Date, err)
	}
	if r.Source == "" {
		return fmt.Errorf("record missing source")
	}
	var ok bool
	switch r.Kind {
	case CategoryVital:
		ok = r.Vital != nil
	case CategorySleep:
		ok = r.Sleep != nil
	case CategoryActivity:
		ok = r.Activity != nil
	case CategoryMedication:
		ok = r.Medication != nil
	case CategoryLab:
		ok = r.Lab != nil && r.Lab.Confidence >= 0 && r.Lab.Confidence <= 1
	case CategoryProvider:
		ok = r.Provider != nil
	case CategoryEncounter:
		ok = r.Encounter != nil
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	if !ok {
		return fmt.Errorf("record kind %q has no matching payload", r.Kind)
	}
	return nil
}

// ParserOutput is the uniform contract every parser returns.
type ParserOutput struct {
	Type     string                 `json:"type"`
	Records  []Record               `json:"records"`
	Source   Source                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// File statuses observed per uploaded file, in order. A file's status moves
// processing -> (completed | warning | error) and never regresses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusWarning    = "warning"
	StatusError      = "error"
)

// ProcessedFile is the ephemeral per-upload aggregate. It lives in the
// orchestrator's session only and is never persisted.
type ProcessedFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	Status      string    `json:"status"`
	RecordCount int       `json:"recordCount"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processedAt"`
}

// ImportBatch is the append-only ledger entry written once per
// successfully-imported file.
type ImportBatch struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	SourceFormat    string    `json:"sourceFormat"`
	FileName        string    `json:"fileName"`
	RecordsImported int       `json:"recordsImported"`
}

// ImportSummary aggregates one import run for the caller.
type ImportSummary struct {
	Files           []ProcessedFile  `json:"files"`
	TotalRecords    int              `json:"totalRecords"`
	FilesImported   int              `json:"filesImported"`
	FilesFailed     int              `json:"filesFailed"`
	RecordsByTarget map[Category]int `json:"recordsByTarget,omitempty"`
}

// Event is the shape published to the event bus after a file import.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
