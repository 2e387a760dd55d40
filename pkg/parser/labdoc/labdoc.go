// Package labdoc extracts lab values from free-text documents using labeled
// numeric pattern matchers, scores each hit with a structure-based confidence
// heuristic, and deduplicates repeated findings.
package labdoc

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/parser"
)

// matcherGroup binds one test type to its alternative text patterns. Each
// pattern's first capture group is the numeric value; the blood-pressure
// group captures two.
type matcherGroup struct {
	testType string
	unit     string
	patterns []*regexp.Regexp
}

var matcherGroups = []matcherGroup{
	{
		testType: "a1c",
		unit:     "%",
		patterns: compile(
			`(?i)(?:hemoglobin\s+)?a1c[^\d]{0,20}(\d+(?:\.\d+)?)\s*%?`,
			`(?i)hba1c[:\s]*(\d+(?:\.\d+)?)\s*%?`,
		),
	},
	{
		testType: "total-cholesterol",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)total\s+cholesterol[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
			`(?i)cholesterol,?\s*total[:\s]*(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "ldl-cholesterol",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)ldl(?:\s+cholesterol|-c)?[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "hdl-cholesterol",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)hdl(?:\s+cholesterol|-c)?[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "triglycerides",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)triglycerides?[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "glucose",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)(?:fasting\s+)?glucose[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "creatinine",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)creatinine[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "bun",
		unit:     "mg/dL",
		patterns: compile(
			`(?i)(?:bun|blood\s+urea\s+nitrogen)[^\d]{0,20}(\d+(?:\.\d+)?)(?:\s*mg/dl)?`,
		),
	},
	{
		testType: "weight",
		unit:     "", // inferred from matched text
		patterns: compile(
			`(?i)weight[:\s]*(\d+(?:\.\d+)?)\s*(?:kg|lbs?)?`,
		),
	},
	{
		testType: "blood-pressure",
		unit:     "mmHg",
		patterns: compile(
			`(?i)(?:blood\s+pressure|bp)[:\s]*(\d{2,3})\s*/\s*(\d{2,3})(?:\s*mmhg)?`,
			`(?i)(\d{2,3})\s*/\s*(\d{2,3})\s*mmhg`,
		),
	},
	{
		testType: "heart-rate",
		unit:     "bpm",
		patterns: compile(
			`(?i)(?:heart\s+rate|pulse)[:\s]*(\d+(?:\.\d+)?)\s*(?:bpm)?`,
		),
	},
}

func compile(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse runs every matcher group over the concatenated page texts. Page order
// is preserved in the buffer; matcher iteration order fixes which duplicate
// survives dedup.
func (p *Parser) Parse(ctx context.Context, input parser.Input) (*models.ParserOutput, error) {
	text := strings.Join(input.Pages, "\n")
	date := resolveDate(text, input.Name)

	var records []models.Record
	for _, group := range matcherGroups {
		for _, pattern := range group.patterns {
			match := pattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			records = append(records, buildRecords(group, match, date)...)
		}
	}

	records = dedupe(records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Lab.Confidence > records[j].Lab.Confidence
	})

	return &models.ParserOutput{
		Type:    "lab-document",
		Records: records,
		Source:  models.SourceDocumentExtract,
		Metadata: map[string]interface{}{
			"documentDate": date,
			"pageCount":    len(input.Pages),
		},
	}, nil
}

// buildRecords turns one pattern match into records. Blood pressure yields a
// systolic and a diastolic record sharing the match's date and confidence.
func buildRecords(group matcherGroup, match []string, date string) []models.Record {
	confidence := scoreConfidence(group.testType, match[0])

	if group.testType == "blood-pressure" {
		if len(match) < 3 {
			return nil
		}
		systolic, err1 := strconv.ParseFloat(match[1], 64)
		diastolic, err2 := strconv.ParseFloat(match[2], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		return []models.Record{
			labRecord(models.TypeSystolicBP, systolic, "mmHg", date, confidence, match[0]),
			labRecord(models.TypeDiastolicBP, diastolic, "mmHg", date, confidence, match[0]),
		}
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}

	unit := group.unit
	if group.testType == "weight" {
		unit = "lbs"
		if strings.Contains(strings.ToLower(match[0]), "kg") {
			unit = "kg"
		}
	}

	return []models.Record{labRecord(group.testType, value, unit, date, confidence, match[0])}
}

func labRecord(testType string, value float64, unit, date string, confidence float64, context string) models.Record {
	return models.Record{
		Kind:   models.CategoryLab,
		Date:   date,
		Source: models.SourceDocumentExtract,
		Lab: &models.Lab{
			TestType:   testType,
			Value:      value,
			Unit:       unit,
			Confidence: confidence,
			Context:    strings.TrimSpace(context),
		},
	}
}

var unitTokens = []string{"mg/dl", "%", "bpm", "mmhg", "kg", "lbs"}

// scoreConfidence starts at 0.5 and adds structure signals: the test label
// appearing in the matched text, an expected unit token, and a colon. Capped
// at 1.0.
func scoreConfidence(testType, matched string) float64 {
	lower := strings.ToLower(matched)
	confidence := 0.5

	label := strings.ReplaceAll(testType, "-", " ")
	if strings.Contains(lower, label) {
		confidence += 0.3
	}
	for _, token := range unitTokens {
		if strings.Contains(lower, token) {
			confidence += 0.2
			break
		}
	}
	if strings.Contains(matched, ":") {
		confidence += 0.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// dedupe collapses records sharing (type, value, date), keeping the first
// occurrence in matcher iteration order regardless of confidence.
func dedupe(records []models.Record) []models.Record {
	seen := make(map[string]struct{}, len(records))
	var unique []models.Record
	for _, rec := range records {
		key := rec.Lab.TestType + "|" + strconv.FormatFloat(rec.Lab.Value, 'f', -1, 64) + "|" + rec.Date
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}

var (
	textDatePatterns = []struct {
		re     *regexp.Regexp
		layout string
	}{
		{regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`), "01/02/2006"},
		{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), "2006-01-02"},
		{regexp.MustCompile(`\b((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4})\b`), "January 2, 2006"},
	}

	nameDatePatterns = []struct {
		re     *regexp.Regexp
		layout string
	}{
		{regexp.MustCompile(`(\d{4}[-_]\d{2}[-_]\d{2})`), "2006-01-02"},
		{regexp.MustCompile(`(\d{2}[-_]\d{2}[-_]\d{4})`), "01-02-2006"},
		{regexp.MustCompile(`(\d{8})`), "20060102"},
	}
)

// resolveDate finds the document's date: first from the text body, then from
// the file name, finally defaulting to today.
func resolveDate(text, fileName string) string {
	for _, p := range textDatePatterns {
		match := p.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if t, err := time.Parse(p.layout, match[1]); err == nil {
			return t.Format("2006-01-02")
		}
	}

	for _, p := range nameDatePatterns {
		match := p.re.FindStringSubmatch(fileName)
		if match == nil {
			continue
		}
		raw := strings.ReplaceAll(match[1], "_", "-")
		if t, err := time.Parse(p.layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return time.Now().Format("2006-01-02")
}
