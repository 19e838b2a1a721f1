package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/enrollment-ingress/pkg/decoder"
	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// Policy decides how a dataset's ingestion treats bad rows
type Policy struct {
	// OnMalformed is handed to the decoder for lines that cannot be framed
	OnMalformed decoder.MalformedPolicy
	// SkipInvalid drops rows failing validation instead of aborting the upload
	SkipInvalid bool
}

// PolicyFor returns the ingestion policy of a dataset
func PolicyFor(ds model.Dataset) Policy {
	switch ds {
	case model.DatasetCorrelation:
		return Policy{OnMalformed: decoder.MalformedPad, SkipInvalid: false}
	default:
		return Policy{OnMalformed: decoder.MalformedSkip, SkipInvalid: true}
	}
}

// IngestJob represents one upload of one dataset
type IngestJob struct {
	ID        string        // Batch identifier written to the audit table
	Dataset   model.Dataset // Target dataset
	Source    string        // File name or warehouse table
	Policy    Policy
	CreatedAt time.Time
}

// NewIngestJob creates a new job with the dataset's default policy
func NewIngestJob(ds model.Dataset, source string) IngestJob {
	return IngestJob{
		ID:        uuid.New().String(),
		Dataset:   ds,
		Source:    source,
		Policy:    PolicyFor(ds),
		CreatedAt: time.Now(),
	}
}

// WithPolicy overrides the job policy and returns the modified job
func (j IngestJob) WithPolicy(p Policy) IngestJob {
	j.Policy = p
	return j
}

// String identifies the job in logs
func (j IngestJob) String() string {
	return fmt.Sprintf("%s<-%s (%s)", j.Dataset, j.Source, j.ID)
}

// SkippedRow is a source line that did not reach the store
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// IngestResult represents the result of a committed upload
type IngestResult struct {
	BatchID            string        `json:"batchId"`
	Dataset            model.Dataset `json:"dataset"`
	Source             string        `json:"source"`
	RecordCount        int           `json:"recordCount"`
	Inserted           int           `json:"inserted"`
	Updated            int           `json:"updated"`
	Skipped            []SkippedRow  `json:"skipped"`
	CleaningOperations int           `json:"cleaningOperations"`
	StartTime          time.Time     `json:"startTime"`
	EndTime            time.Time     `json:"endTime"`
	Duration           time.Duration `json:"duration"`
}

// NewIngestResult initializes a result for a job
func NewIngestResult(job IngestJob) *IngestResult {
	return &IngestResult{
		BatchID:   job.ID,
		Dataset:   job.Dataset,
		Source:    job.Source,
		Skipped:   make([]SkippedRow, 0),
		StartTime: time.Now(),
	}
}

// Complete marks the result as finished and calculates duration
func (r *IngestResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// AddSkipped records a dropped line
func (r *IngestResult) AddSkipped(line int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Line: line, Reason: reason})
}

// SkippedDetails renders skipped rows as human readable lines
func (r *IngestResult) SkippedDetails() []string {
	out := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		out[i] = fmt.Sprintf("line %d: %s", s.Line, s.Reason)
	}
	return out
}
