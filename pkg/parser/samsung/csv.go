package samsung

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/vitalvault/importer/pkg/common/logger"
)

// csvRow is one data row keyed by its lowercased header.
type csvRow map[string]string

// field returns the first non-empty value among the candidate keys. Vendor
// exports namespace their headers (com.samsung.health.sleep.start_time), so
// an exact miss falls back to a dotted-suffix match.
func (r csvRow) field(keys ...string) string {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != "" {
			return v
		}
	}
	for _, key := range keys {
		suffix := "." + key
		for header, v := range r {
			if v != "" && strings.HasSuffix(header, suffix) {
				return v
			}
		}
	}
	return ""
}

// readRows parses CSV content into keyed rows. Quoted fields are respected
// (a comma inside double quotes does not split); rows whose length mismatches
// the header are skipped.
func readRows(name string, data []byte) []csvRow {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err != io.EOF {
			logger.WithField("file", name).Warn("vendor CSV has no readable header")
		}
		return nil
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []csvRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.WithField("file", name).WithField("error", err.Error()).
				Warn("skipping malformed vendor CSV row")
			continue
		}
		if len(fields) != len(header) {
			continue
		}
		row := make(csvRow, len(header))
		for i, h := range header {
			row[h] = strings.TrimSpace(fields[i])
		}
		rows = append(rows, row)
	}
	return rows
}
