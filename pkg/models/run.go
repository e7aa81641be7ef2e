package models

import "time"

// RunSummary reports per-stage counts for one pipeline run.
// Counts are always populated, even when the run partially failed.
type RunSummary struct {
	RunID            string    `json:"run_id"`
	Searched         int       `json:"searched"`
	EarlySkipped     int       `json:"early_skipped"`
	SeenSkipped      int       `json:"seen_skipped"`
	Extracted        int       `json:"extracted"`
	ExtractionFailed int       `json:"extraction_failed"`
	PreFiltered      int       `json:"pre_filtered"`
	Parsed           int       `json:"parsed"`
	ParseFailed      int       `json:"parse_failed"`
	Scored           int       `json:"scored"`
	Saved            int       `json:"saved"`
	Duplicates       int       `json:"duplicates"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
}
