package backup

import (
	"encoding/json"
	"fmt"
)

type (
	// Result is the outcome of a dry-run inspection of a backup file. It is
	// advisory only; Import re-checks the hard rules before writing anything.
	Result struct {
		IsValid  bool           `json:"is_valid"`
		Errors   []string       `json:"errors"`
		Warnings []string       `json:"warnings"`
		Preview  []TablePreview `json:"preview"`
	}

	// TablePreview reports how many records a non-empty collection carries.
	TablePreview struct {
		Table string `json:"table"`
		Count int    `json:"count"`
	}
)

// Validate inspects blob and reports everything wrong with it at once, so the
// user fixes a broken file in one round trip. It touches no persistent state;
// identical input always yields an identical Result.
func Validate(blob []byte) Result {
	res := Result{
		Errors:   []string{},
		Warnings: []string{},
		Preview:  []TablePreview{},
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(blob, &doc); err != nil || doc == nil {
		if json.Valid(blob) {
			res.Errors = append(res.Errors, "backup file must contain a JSON object")
		} else {
			res.Errors = append(res.Errors, "file is not valid JSON")
		}
		return res
	}

	if v, ok := doc["version"].(float64); !ok {
		res.Errors = append(res.Errors, "missing version field")
	} else if int(v) < FormatVersion {
		res.Warnings = append(res.Warnings, fmt.Sprintf("backup file uses an older format (version %d)", int(v)))
	}
	if _, ok := doc["timestamp"].(float64); !ok {
		res.Warnings = append(res.Warnings, "missing timestamp field")
	}

	data, ok := doc["data"].(map[string]interface{})
	if !ok {
		res.Errors = append(res.Errors, "no data found in backup file")
	}
	for _, name := range Collections {
		raw, found := data[name]
		if !found {
			continue
		}
		rows, isList := raw.([]interface{})
		if !isList {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected a list of records", name))
			continue
		}
		if len(rows) > 0 {
			res.Preview = append(res.Preview, TablePreview{Table: name, Count: len(rows)})
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
