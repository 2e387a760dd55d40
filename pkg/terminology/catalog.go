// Package terminology maps coded clinical vocabulary (LOINC-style observation
// codes) onto the internal record types used for range queries and charting.
package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Concept describes one known observation code.
type Concept struct {
	Display string `yaml:"display" json:"display"`
	Type    string `yaml:"type" json:"type"` // internal vital/lab type
	Unit    string `yaml:"unit" json:"unit"`
	Lab     bool   `yaml:"lab" json:"lab"`
}

type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

// Load reads a catalog from a YAML file, or returns the built-in default when
// path is empty.
func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Concepts) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	return cat, nil
}

// Lookup resolves an observation code to its concept.
func (c Catalog) Lookup(code string) (Concept, bool) {
	if c.Concepts == nil {
		return Concept{}, false
	}
	concept, ok := c.Concepts[strings.TrimSpace(code)]
	return concept, ok
}

// IsLabCode reports whether the code belongs to the fixed lab panel set.
// Classification into lab-result uses this signal even when the source
// document declares no category.
func (c Catalog) IsLabCode(code string) bool {
	concept, ok := c.Lookup(code)
	return ok && concept.Lab
}

// DefaultCatalog covers the observation codes the importer understands out of
// the box.
func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		"29463-7": {Display: "Body Weight", Type: "weight", Unit: "kg"},
		"8302-2":  {Display: "Body Height", Type: "height", Unit: "cm"},
		"39156-5": {Display: "Body Mass Index", Type: "bmi", Unit: "kg/m2"},
		"8480-6":  {Display: "Systolic Blood Pressure", Type: "systolic-bp", Unit: "mmHg"},
		"8462-4":  {Display: "Diastolic Blood Pressure", Type: "diastolic-bp", Unit: "mmHg"},
		"8867-4":  {Display: "Heart Rate", Type: "heart-rate", Unit: "bpm"},
		"9279-1":  {Display: "Respiratory Rate", Type: "respiratory-rate", Unit: "breaths/min"},
		"8310-5":  {Display: "Body Temperature", Type: "temperature", Unit: "Cel"},
		"2708-6":  {Display: "Oxygen Saturation", Type: "oxygen-saturation", Unit: "%"},
		"2339-0":  {Display: "Glucose", Type: "glucose", Unit: "mg/dL"},
		"4548-4":  {Display: "Hemoglobin A1c", Type: "a1c", Unit: "%", Lab: true},
		"2093-3":  {Display: "Total Cholesterol", Type: "total-cholesterol", Unit: "mg/dL", Lab: true},
		"2089-1":  {Display: "LDL Cholesterol", Type: "ldl-cholesterol", Unit: "mg/dL", Lab: true},
		"2085-9":  {Display: "HDL Cholesterol", Type: "hdl-cholesterol", Unit: "mg/dL", Lab: true},
		"2571-8":  {Display: "Triglycerides", Type: "triglycerides", Unit: "mg/dL", Lab: true},
	}}
}
