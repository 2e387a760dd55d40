// Package samsung parses wearable-vendor CSV exports (single files or full
// zip archives of per-metric CSVs) into canonical records. File type is
// filename-driven; rows are mapped per type and dropped individually when a
// required field cannot be resolved.
package samsung

import (
	"context"
	"strings"
	"time"

	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/normalize"
	"github.com/vitalvault/importer/pkg/parser"
)

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse handles either a single CSV (input.Data) or an unpacked export
// archive (input.Entries). A TypeHint from generic-CSV detection overrides
// the filename-driven type table.
func (p *Parser) Parse(ctx context.Context, input parser.Input) (*models.ParserOutput, error) {
	if len(input.Entries) > 0 {
		return p.parseArchive(input)
	}

	fileType := detectFileType(input.Name)
	if input.TypeHint != "" {
		fileType = input.TypeHint
	}
	records := parseCSV(input.Name, input.Data, fileType)

	return &models.ParserOutput{
		Type:     fileType,
		Records:  records,
		Source:   models.SourceVendorExport,
		Metadata: countByKind(records),
	}, nil
}

func (p *Parser) parseArchive(input parser.Input) (*models.ParserOutput, error) {
	var records []models.Record
	for _, entry := range input.Entries {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			continue
		}
		fileType := detectFileType(entry.Name)
		parsed := parseCSV(entry.Name, entry.Data, fileType)
		records = append(records, parsed...)
	}

	return &models.ParserOutput{
		Type:     "samsung-export",
		Records:  records,
		Source:   models.SourceVendorExport,
		Metadata: countByKind(records),
	}, nil
}

// fileTypeRules maps filename substrings to a parse type, checked in order.
var fileTypeRules = []struct {
	subs     []string
	fileType string
}{
	{[]string{"sleep"}, "sleep"},
	{[]string{"step", "pedometer"}, "activity"},
	{[]string{"heart_rate"}, "vitals"},
	{[]string{"exercise"}, "activity"},
	{[]string{"weight"}, "vitals"},
	{[]string{"stress"}, "vitals"},
	{[]string{"floors"}, "activity"},
	{[]string{"calories"}, "activity"},
	{[]string{"day_summary"}, "activity"},
}

func detectFileType(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range fileTypeRules {
		for _, sub := range rule.subs {
			if strings.Contains(lower, sub) {
				return rule.fileType
			}
		}
	}
	return "activity"
}

// parseCSV maps each well-formed row through the type's mapper. Row-level
// problems drop the row and never abort the file.
func parseCSV(name string, data []byte, fileType string) []models.Record {
	rows := readRows(name, data)

	var records []models.Record
	for _, row := range rows {
		var rec *models.Record
		switch fileType {
		case "sleep":
			rec = mapSleep(row)
		case "vitals":
			rec = mapVitals(row)
		case "medications":
			rec = mapMedication(row)
		default:
			rec = mapActivity(row)
		}
		if rec == nil {
			continue
		}
		records = append(records, *rec)
	}

	if len(rows) > 0 && len(records) == 0 {
		logger.WithField("file", name).Warn("no rows mapped from vendor CSV")
	}
	return records
}

// mapSleep requires a resolvable start time; the record date derives from it.
func mapSleep(row csvRow) *models.Record {
	start := row.field("start_time", "bed_time", "sleep_start")
	ts, ok := normalize.Timestamp(start)
	if !ok {
		return nil
	}

	sleep := &models.Sleep{
		StartTime:    ts.Format("2006-01-02 15:04:05"),
		TotalMinutes: normalize.Duration(row.field("sleep_duration", "duration")),
		DeepMinutes:  normalize.Duration(row.field("deep", "deep_sleep")),
		LightMinutes: normalize.Duration(row.field("light", "light_sleep")),
		RemMinutes:   normalize.Duration(row.field("rem", "rem_sleep")),
		AwakeMinutes: normalize.Duration(row.field("awake", "wake")),
		Quality:      row.field("quality", "efficiency"),
	}
	if end, ok := normalize.Timestamp(row.field("end_time", "wake_up_time")); ok {
		sleep.EndTime = end.Format("2006-01-02 15:04:05")
	}

	return &models.Record{
		Kind:   models.CategorySleep,
		Date:   ts.Format("2006-01-02"),
		Source: models.SourceVendorExport,
		Sleep:  sleep,
	}
}

// mapActivity requires a resolvable date from day/date/start_time, first
// non-empty wins. An exercise-type field upgrades the record to an exercise
// entry with start/end/duration attached.
func mapActivity(row csvRow) *models.Record {
	date, ok := resolveDate(row)
	if !ok {
		return nil
	}

	activity := &models.Activity{
		Type:     "activity",
		Steps:    normalize.Numeric(row.field("step_count", "steps", "count")),
		Distance: normalize.Numeric(row.field("distance")),
		Calories: normalize.Numeric(row.field("calorie", "calories")),
		Floors:   normalize.Numeric(row.field("floor", "floors")),
	}

	if exercise := row.field("exercise_type", "workout_type"); exercise != "" {
		activity.Type = "exercise"
		activity.ExerciseType = exercise
		if start, ok := normalize.Timestamp(row.field("start_time")); ok {
			activity.StartTime = start.Format("2006-01-02 15:04:05")
		}
		if end, ok := normalize.Timestamp(row.field("end_time")); ok {
			activity.EndTime = end.Format("2006-01-02 15:04:05")
		}
		activity.DurationMinutes = normalize.Duration(row.field("duration"))
	}

	return &models.Record{
		Kind:     models.CategoryActivity,
		Date:     date,
		Source:   models.SourceVendorExport,
		Activity: activity,
	}
}

// mapVitals dispatches on whichever value field is present: weight, heart
// rate, or stress. Absent all three the row yields nothing rather than a
// guessed type.
func mapVitals(row csvRow) *models.Record {
	date, ok := resolveDate(row)
	if !ok {
		return nil
	}

	if weight := normalize.Numeric(row.field("weight")); weight != nil {
		extra := map[string]interface{}{}
		if bmi := normalize.Numeric(row.field("bmi")); bmi != nil {
			extra["bmi"] = *bmi
		}
		if fat := normalize.Numeric(row.field("body_fat", "body_fat_percentage")); fat != nil {
			extra["bodyFat"] = *fat
		}
		if muscle := normalize.Numeric(row.field("muscle_mass", "skeletal_muscle")); muscle != nil {
			extra["muscleMass"] = *muscle
		}
		return vitalRecord(date, models.TypeWeight, *weight, "kg", extra)
	}

	if hr := normalize.Numeric(row.field("heart_rate", "hr")); hr != nil {
		context := row.field("heart_rate_context", "context", "tag")
		if context == "" {
			context = "resting"
		}
		return vitalRecord(date, models.TypeHeartRate, *hr, "bpm",
			map[string]interface{}{"context": context})
	}

	if stress := normalize.Numeric(row.field("stress_level", "stress", "score")); stress != nil {
		return vitalRecord(date, models.TypeStress, *stress, "", nil)
	}

	return nil
}

// mapMedication serves generic medication CSVs routed here by detection.
// Like the clinical parser, a missing date falls back to today rather than
// dropping the medication.
func mapMedication(row csvRow) *models.Record {
	name := row.field("medication_name", "medication", "drug_name", "drug", "name")
	if name == "" {
		return nil
	}

	date, ok := resolveDate(row)
	if !ok {
		date = time.Now().Format("2006-01-02")
	}

	return &models.Record{
		Kind:   models.CategoryMedication,
		Date:   date,
		Source: models.SourceVendorExport,
		Medication: &models.Medication{
			Name:      name,
			Dosage:    row.field("dose", "dosage"),
			Frequency: row.field("frequency"),
		},
	}
}

func vitalRecord(date, vitalType string, value float64, unit string, extra map[string]interface{}) *models.Record {
	if len(extra) == 0 {
		extra = nil
	}
	return &models.Record{
		Kind:   models.CategoryVital,
		Date:   date,
		Source: models.SourceVendorExport,
		Vital: &models.Vital{
			Type:  vitalType,
			Value: value,
			Unit:  unit,
			Extra: extra,
		},
	}
}

func resolveDate(row csvRow) (string, bool) {
	for _, key := range []string{"day", "date", "start_time"} {
		raw := row.field(key)
		if raw == "" {
			continue
		}
		if date, ok := normalize.DateOnly(raw); ok {
			return date, true
		}
	}
	return "", false
}

func countByKind(records []models.Record) map[string]interface{} {
	if len(records) == 0 {
		return nil
	}
	counts := map[string]interface{}{}
	for _, rec := range records {
		key := string(rec.Kind)
		if n, ok := counts[key].(int); ok {
			counts[key] = n + 1
		} else {
			counts[key] = 1
		}
	}
	return counts
}
