package labdoc

import (
	"context"
	"testing"
	"time"

	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/parser"
)

func parsePages(t *testing.T, name string, pages ...string) *models.ParserOutput {
	t.Helper()
	out, err := New().Parse(context.Background(), parser.Input{Name: name, Pages: pages})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return out
}

func findLab(records []models.Record, testType string) *models.Lab {
	for _, rec := range records {
		if rec.Lab != nil && rec.Lab.TestType == testType {
			return rec.Lab
		}
	}
	return nil
}

func TestBloodPressureYieldsTwoRecords(t *testing.T) {
	out := parsePages(t, "visit.pdf", "Collected 03/15/2024", "BP: 128/82 mmHg")

	systolic := findLab(out.Records, models.TypeSystolicBP)
	diastolic := findLab(out.Records, models.TypeDiastolicBP)
	if systolic == nil || diastolic == nil {
		t.Fatalf("expected systolic and diastolic records, got %+v", out.Records)
	}
	if systolic.Value != 128 || diastolic.Value != 82 {
		t.Fatalf("expected 128/82, got %v/%v", systolic.Value, diastolic.Value)
	}
	if systolic.Confidence != diastolic.Confidence {
		t.Fatal("both BP records must share one confidence basis")
	}
	for _, rec := range out.Records {
		if rec.Date != "2024-03-15" {
			t.Fatalf("expected shared derived date 2024-03-15, got %q", rec.Date)
		}
	}
}

func TestConfidenceBounds(t *testing.T) {
	out := parsePages(t, "labs.pdf",
		"Hemoglobin A1C: 5.7 %",
		"glucose 98",
		"Total Cholesterol: 182 mg/dL",
		"pulse 62",
	)
	if len(out.Records) == 0 {
		t.Fatal("expected extracted records")
	}
	for _, rec := range out.Records {
		if rec.Lab.Confidence < 0.5 || rec.Lab.Confidence > 1.0 {
			t.Fatalf("confidence %v out of [0.5,1.0] for %s", rec.Lab.Confidence, rec.Lab.TestType)
		}
	}
	// label + unit + colon pushes total cholesterol to the cap
	if lab := findLab(out.Records, "total-cholesterol"); lab.Confidence != 1.0 {
		t.Fatalf("expected capped confidence 1.0, got %v", lab.Confidence)
	}
	// bare value with no label/unit/colon structure stays at base
	if lab := findLab(out.Records, "glucose"); lab.Confidence != 0.8 {
		// "glucose 98" carries the label (+0.3) but no unit or colon
		t.Fatalf("expected 0.8 for label-only match, got %v", lab.Confidence)
	}
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	// Both BP patterns hit the same reading with different confidences; the
	// first pattern's record must survive and keep its own confidence.
	out := parsePages(t, "report.pdf", "Reading on 2024-03-15\nBP: 120/80\n120/80 mmHg")

	var systolic []models.Lab
	for _, rec := range out.Records {
		if rec.Lab.TestType == models.TypeSystolicBP {
			systolic = append(systolic, *rec.Lab)
		}
	}
	if len(systolic) != 1 {
		t.Fatalf("expected duplicates collapsed to 1, got %d", len(systolic))
	}
	// first pattern matched "BP: 120/80": base 0.5 + colon 0.1
	if systolic[0].Confidence != 0.6 {
		t.Fatalf("surviving record must carry the first match's confidence, got %v", systolic[0].Confidence)
	}
}

func TestResultsSortedByConfidenceDescending(t *testing.T) {
	out := parsePages(t, "labs.pdf", "LDL 131 mg/dL\nweird creatinine text 1.1")
	for i := 1; i < len(out.Records); i++ {
		if out.Records[i-1].Lab.Confidence < out.Records[i].Lab.Confidence {
			t.Fatalf("records not sorted by confidence: %+v", out.Records)
		}
	}
}

func TestWeightUnitInference(t *testing.T) {
	out := parsePages(t, "visit.pdf", "Weight: 82.5 kg on 2024-01-05")
	lab := findLab(out.Records, "weight")
	if lab == nil || lab.Unit != "kg" {
		t.Fatalf("expected kg inferred, got %+v", lab)
	}

	out = parsePages(t, "visit.pdf", "Weight: 180 recorded 2024-01-05")
	lab = findLab(out.Records, "weight")
	if lab == nil || lab.Unit != "lbs" {
		t.Fatalf("expected lbs default, got %+v", lab)
	}
}

func TestDateFromFileName(t *testing.T) {
	out := parsePages(t, "labcorp_2024_02_20.pdf", "A1C: 5.6%")
	if len(out.Records) == 0 {
		t.Fatal("expected records")
	}
	if out.Records[0].Date != "2024-02-20" {
		t.Fatalf("expected filename date, got %q", out.Records[0].Date)
	}
}

func TestDateDefaultsToToday(t *testing.T) {
	out := parsePages(t, "labs.pdf", "Glucose: 101 mg/dL")
	if out.Records[0].Date != time.Now().Format("2006-01-02") {
		t.Fatalf("expected today default, got %q", out.Records[0].Date)
	}
}

func TestMonthNameDate(t *testing.T) {
	out := parsePages(t, "labs.pdf", "Drawn March 5, 2024\nBUN: 14 mg/dL")
	if out.Records[0].Date != "2024-03-05" {
		t.Fatalf("expected parsed month-name date, got %q", out.Records[0].Date)
	}
}
