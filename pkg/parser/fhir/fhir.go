// Package fhir walks coded resource-graph documents (FHIR-style bundles or
// single resources) and maps each typed resource into canonical records.
// The observation vocabulary lives in pkg/terminology; resource types outside
// the handled set are logged and skipped.
package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/normalize"
	"github.com/vitalvault/importer/pkg/parser"
	"github.com/vitalvault/importer/pkg/terminology"
)

type Parser struct {
	catalog terminology.Catalog
}

func New(catalog terminology.Catalog) *Parser {
	return &Parser{catalog: catalog}
}

// Parse accepts either a collection wrapper with an entry array or one bare
// typed resource.
func (p *Parser) Parse(ctx context.Context, input parser.Input) (*models.ParserOutput, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(input.Data, &doc); err != nil {
		return nil, fmt.Errorf("decoding clinical bundle %s: %w", input.Name, err)
	}

	var records []models.Record
	metadata := map[string]interface{}{}

	resources := collectResources(doc)
	for _, resource := range resources {
		recs := p.handleResource(resource, metadata)
		records = append(records, recs...)
	}

	for _, rec := range records {
		key := string(rec.Kind)
		if n, ok := metadata[key].(int); ok {
			metadata[key] = n + 1
		} else {
			metadata[key] = 1
		}
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return &models.ParserOutput{
		Type:     "clinical-bundle",
		Records:  records,
		Source:   models.SourceClinicalBundle,
		Metadata: metadata,
	}, nil
}

// collectResources flattens a bundle's entry array, or wraps a single typed
// resource.
func collectResources(doc map[string]interface{}) []map[string]interface{} {
	entries, ok := doc["entry"].([]interface{})
	if !ok {
		if getString(doc["resourceType"]) != "" {
			return []map[string]interface{}{doc}
		}
		return nil
	}

	var resources []map[string]interface{}
	for _, raw := range entries {
		entry := extractMap(raw)
		resource := extractMap(entry["resource"])
		if len(resource) > 0 {
			resources = append(resources, resource)
		}
	}
	return resources
}

func (p *Parser) handleResource(resource map[string]interface{}, metadata map[string]interface{}) []models.Record {
	resourceType := getString(resource["resourceType"])
	switch resourceType {
	case "Patient":
		if name := humanName(resource["name"]); name != "" {
			metadata["patientName"] = name
		}
		return nil
	case "Practitioner":
		return asSlice(p.mapPractitioner(resource))
	case "Observation":
		return asSlice(p.mapObservation(resource))
	case "MedicationRequest", "MedicationStatement":
		return asSlice(p.mapMedication(resource))
	case "Encounter":
		return asSlice(p.mapEncounter(resource))
	case "DiagnosticReport":
		return asSlice(p.mapDiagnosticReport(resource))
	case "Condition":
		return asSlice(p.mapCondition(resource))
	case "Procedure":
		return asSlice(p.mapProcedure(resource))
	default:
		logger.WithField("resourceType", resourceType).Debug("skipping unhandled resource type")
		return nil
	}
}

// mapObservation requires an effective date, a primary code, and a decodable
// value; missing any of these drops the observation. Known codes map through
// the terminology catalog; unmapped codes still yield a generically-tagged
// record since the raw value may remain useful.
func (p *Parser) mapObservation(resource map[string]interface{}) *models.Record {
	date, ok := effectiveDate(resource)
	if !ok {
		return nil
	}

	code, display := primaryCode(resource["code"])
	if code == "" {
		return nil
	}

	value, unit, valueText, ok := observationValue(resource)
	if !ok {
		return nil
	}

	concept, known := p.catalog.Lookup(code)
	isLab := declaredLab(resource) || p.catalog.IsLabCode(code)

	if isLab {
		testType := models.TypeObservation
		if known {
			testType = concept.Type
		}
		if unit == "" && known {
			unit = concept.Unit
		}
		return &models.Record{
			Kind:   models.CategoryLab,
			Date:   date,
			Source: models.SourceClinicalBundle,
			Lab: &models.Lab{
				TestType:   testType,
				Value:      value,
				Unit:       unit,
				Confidence: 1.0, // structured source, not pattern-extracted
				Context:    display,
			},
		}
	}

	vital := &models.Vital{Value: value, Unit: unit}
	if known {
		vital.Type = concept.Type
		if vital.Unit == "" {
			vital.Unit = concept.Unit
		}
	} else {
		vital.Type = models.TypeObservation
		extra := map[string]interface{}{"code": code}
		if display != "" {
			extra["display"] = display
		}
		if valueText != "" {
			extra["valueText"] = valueText
		}
		vital.Extra = extra
	}

	return &models.Record{
		Kind:   models.CategoryVital,
		Date:   date,
		Source: models.SourceClinicalBundle,
		Vital:  vital,
	}
}

// mapMedication extracts a drug name from whichever representation is
// present. Medications with no date metadata fall back to today instead of
// being lost.
func (p *Parser) mapMedication(resource map[string]interface{}) *models.Record {
	name := medicationName(resource)
	if name == "" {
		return nil
	}

	date := firstDate(resource, "authoredOn", "effectiveDateTime", "dateAsserted")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	med := &models.Medication{
		Name:   name,
		Status: getString(resource["status"]),
	}
	if dosages, ok := resource["dosageInstruction"].([]interface{}); ok && len(dosages) > 0 {
		med.Dosage = getString(extractMap(dosages[0])["text"])
	} else if dosages, ok := resource["dosage"].([]interface{}); ok && len(dosages) > 0 {
		med.Dosage = getString(extractMap(dosages[0])["text"])
	}

	return &models.Record{
		Kind:       models.CategoryMedication,
		Date:       date,
		Source:     models.SourceClinicalBundle,
		Medication: med,
	}
}

func (p *Parser) mapPractitioner(resource map[string]interface{}) *models.Record {
	name := humanName(resource["name"])
	if name == "" {
		return nil
	}

	specialty := ""
	if quals, ok := resource["qualification"].([]interface{}); ok && len(quals) > 0 {
		qual := extractMap(quals[0])
		specialty = conceptText(qual["code"])
	}

	return &models.Record{
		Kind:     models.CategoryProvider,
		Date:     time.Now().Format("2006-01-02"),
		Source:   models.SourceClinicalBundle,
		Provider: &models.Provider{Name: name, Specialty: specialty},
	}
}

// mapEncounter requires a period start or end date.
func (p *Parser) mapEncounter(resource map[string]interface{}) *models.Record {
	period := extractMap(resource["period"])
	date, ok := normalize.DateOnly(getString(period["start"]))
	if !ok {
		date, ok = normalize.DateOnly(getString(period["end"]))
	}
	if !ok {
		return nil
	}

	title := ""
	if types, isSlice := resource["type"].([]interface{}); isSlice && len(types) > 0 {
		title = conceptText(types[0])
	}
	if title == "" {
		title = getString(extractMap(resource["class"])["display"])
	}

	reason := ""
	if reasons, isSlice := resource["reasonCode"].([]interface{}); isSlice && len(reasons) > 0 {
		reason = conceptText(reasons[0])
	}

	return &models.Record{
		Kind:   models.CategoryEncounter,
		Date:   date,
		Source: models.SourceClinicalBundle,
		Encounter: &models.Encounter{
			Type:   "visit",
			Title:  title,
			Reason: reason,
			Status: getString(resource["status"]),
		},
	}
}

// mapDiagnosticReport requires its effective date.
func (p *Parser) mapDiagnosticReport(resource map[string]interface{}) *models.Record {
	date := firstDate(resource, "effectiveDateTime", "issued")
	if date == "" {
		return nil
	}

	return &models.Record{
		Kind:   models.CategoryEncounter,
		Date:   date,
		Source: models.SourceClinicalBundle,
		Encounter: &models.Encounter{
			Type:   "diagnostic-report",
			Title:  conceptText(resource["code"]),
			Status: getString(resource["status"]),
		},
	}
}

// mapCondition defaults to today when undated, like medications.
func (p *Parser) mapCondition(resource map[string]interface{}) *models.Record {
	title := conceptText(resource["code"])
	if title == "" {
		return nil
	}

	date := firstDate(resource, "recordedDate", "onsetDateTime")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	return &models.Record{
		Kind:   models.CategoryEncounter,
		Date:   date,
		Source: models.SourceClinicalBundle,
		Encounter: &models.Encounter{
			Type:   "condition",
			Title:  title,
			Status: conceptText(resource["clinicalStatus"]),
		},
	}
}

// mapProcedure requires a performed date; undated procedures drop.
func (p *Parser) mapProcedure(resource map[string]interface{}) *models.Record {
	date := firstDate(resource, "performedDateTime")
	if date == "" {
		period := extractMap(resource["performedPeriod"])
		if d, ok := normalize.DateOnly(getString(period["start"])); ok {
			date = d
		}
	}
	if date == "" {
		return nil
	}

	return &models.Record{
		Kind:   models.CategoryEncounter,
		Date:   date,
		Source: models.SourceClinicalBundle,
		Encounter: &models.Encounter{
			Type:   "procedure",
			Title:  conceptText(resource["code"]),
			Status: getString(resource["status"]),
		},
	}
}

func asSlice(rec *models.Record) []models.Record {
	if rec == nil {
		return nil
	}
	return []models.Record{*rec}
}

// FindBundle scans archive entries for the first JSON shaped like a bundle
// (resourceType Bundle, or carrying an entry array). Remaining entries are
// not inspected.
func FindBundle(entries []parser.ArchiveEntry) ([]byte, bool) {
	for _, entry := range entries {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".json") {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(entry.Data, &doc); err != nil {
			continue
		}
		if getString(doc["resourceType"]) == "Bundle" {
			return entry.Data, true
		}
		if _, ok := doc["entry"].([]interface{}); ok {
			return entry.Data, true
		}
	}
	return nil, false
}
