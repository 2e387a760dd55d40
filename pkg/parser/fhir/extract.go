package fhir

import (
	"fmt"
	"strings"

	"github.com/vitalvault/importer/pkg/normalize"
)

// effectiveDate resolves an observation's effective instant to a calendar
// date.
func effectiveDate(resource map[string]interface{}) (string, bool) {
	if date, ok := normalize.DateOnly(getString(resource["effectiveDateTime"])); ok {
		return date, true
	}
	period := extractMap(resource["effectivePeriod"])
	if date, ok := normalize.DateOnly(getString(period["start"])); ok {
		return date, true
	}
	return normalize.DateOnly(getString(resource["issued"]))
}

// firstDate resolves the first of the named fields that parses to a date.
func firstDate(resource map[string]interface{}, fields ...string) string {
	for _, field := range fields {
		if date, ok := normalize.DateOnly(getString(resource[field])); ok {
			return date
		}
	}
	return ""
}

// primaryCode pulls the first coding's code and display from a codeable
// concept.
func primaryCode(raw interface{}) (code, display string) {
	concept := extractMap(raw)
	codings, ok := concept["coding"].([]interface{})
	if ok && len(codings) > 0 {
		coding := extractMap(codings[0])
		code = getString(coding["code"])
		display = getString(coding["display"])
	}
	if display == "" {
		display = getString(concept["text"])
	}
	return code, display
}

// conceptText returns a codeable concept's human-readable text, preferring
// the explicit text over the first coding's display.
func conceptText(raw interface{}) string {
	concept := extractMap(raw)
	if text := getString(concept["text"]); text != "" {
		return text
	}
	if codings, ok := concept["coding"].([]interface{}); ok && len(codings) > 0 {
		return getString(extractMap(codings[0])["display"])
	}
	return ""
}

// observationValue decodes a quantity, coded concept, or plain string value.
// The boolean is false when no representation is present.
func observationValue(resource map[string]interface{}) (value float64, unit, text string, ok bool) {
	if quantity := extractMap(resource["valueQuantity"]); len(quantity) > 0 {
		num := normalize.Numeric(quantity["value"])
		if num == nil {
			return 0, "", "", false
		}
		return *num, getString(quantity["unit"]), "", true
	}

	if concept := extractMap(resource["valueCodeableConcept"]); len(concept) > 0 {
		text = conceptText(resource["valueCodeableConcept"])
		if text == "" {
			return 0, "", "", false
		}
		if num := normalize.Numeric(text); num != nil {
			return *num, "", text, true
		}
		return 0, "", text, true
	}

	if raw := getString(resource["valueString"]); raw != "" {
		if num := normalize.Numeric(raw); num != nil {
			return *num, "", raw, true
		}
		return 0, "", raw, true
	}

	return 0, "", "", false
}

// declaredLab reports whether the resource's declared category routes it to
// lab results.
func declaredLab(resource map[string]interface{}) bool {
	categories, ok := resource["category"].([]interface{})
	if !ok {
		return false
	}
	for _, raw := range categories {
		concept := extractMap(raw)
		if labCategoryText(getString(concept["text"])) {
			return true
		}
		codings, ok := concept["coding"].([]interface{})
		if !ok {
			continue
		}
		for _, c := range codings {
			coding := extractMap(c)
			if labCategoryText(getString(coding["code"])) || labCategoryText(getString(coding["display"])) {
				return true
			}
		}
	}
	return false
}

func labCategoryText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "laboratory") || strings.Contains(s, "diagnostic")
}

// medicationName tries the three possible drug-name representations in
// order: codeable concept text/display, reference display, bare code.
func medicationName(resource map[string]interface{}) string {
	concept := extractMap(resource["medicationCodeableConcept"])
	if name := conceptText(resource["medicationCodeableConcept"]); name != "" {
		return name
	}
	if ref := extractMap(resource["medicationReference"]); len(ref) > 0 {
		if name := getString(ref["display"]); name != "" {
			return name
		}
	}
	if codings, ok := concept["coding"].([]interface{}); ok && len(codings) > 0 {
		return getString(extractMap(codings[0])["code"])
	}
	return ""
}

// humanName extracts a display name from a FHIR name array, preferring the
// entry flagged official, otherwise the first. Given-name parts come before
// the family name, space-joined.
func humanName(raw interface{}) string {
	names, ok := raw.([]interface{})
	if !ok || len(names) == 0 {
		return ""
	}

	chosen := extractMap(names[0])
	for _, n := range names {
		entry := extractMap(n)
		if getString(entry["use"]) == "official" {
			chosen = entry
			break
		}
	}

	var parts []string
	if given, ok := chosen["given"].([]interface{}); ok {
		for _, g := range given {
			if s := getString(g); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if family := getString(chosen["family"]); family != "" {
		parts = append(parts, family)
	}
	if len(parts) == 0 {
		return getString(chosen["text"])
	}
	return strings.Join(parts, " ")
}

func extractMap(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func getString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return ""
	}
}
