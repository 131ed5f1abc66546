package errors

import (
	"encoding/json"
)

// JSONOutput represents the JSON structure for diagnostic output
type JSONOutput struct {
	Status   string       `json:"status"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
	Summary  Summary      `json:"summary"`
}

// Summary contains error and warning counts
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	TotalCount   int `json:"total_count"`
}

// FormatAsJSON formats a single Diagnostic as JSON
func (d Diagnostic) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatListAsJSON formats multiple diagnostics as a JSON report
func FormatListAsJSON(diags []Diagnostic) (string, error) {
	var errorList []Diagnostic
	var warningList []Diagnostic

	for _, d := range diags {
		if d.IsError() {
			errorList = append(errorList, d)
		} else if d.IsWarning() {
			warningList = append(warningList, d)
		}
	}

	status := "success"
	if len(errorList) > 0 {
		status = "failure"
	}

	output := JSONOutput{
		Status:   status,
		Errors:   errorList,
		Warnings: warningList,
		Summary: Summary{
			ErrorCount:   len(errorList),
			WarningCount: len(warningList),
			TotalCount:   len(errorList) + len(warningList),
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
