package export

import (
	"encoding/json"
)

// Report status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Report is the structured result of one pipeline run.
type Report struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	FilePath  *string `json:"file_path"`
	EmailSent bool    `json:"email_sent"`
	RowCount  int     `json:"row_count,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Error     string  `json:"error,omitempty"`
	RunID     string  `json:"run_id,omitempty"`
}

// Succeeded reports whether the run produced an artifact.
func (r Report) Succeeded() bool {
	return r.Status == StatusSuccess
}

// JSON renders the report as indented JSON.
func (r Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
