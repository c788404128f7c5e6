package domain

// ItemError records a per-item processing failure inside a batch. Item
// failures never abort the batch; they are collected and reported.
type ItemError struct {
	ExternalID string `json:"externalID"`
	Message    string `json:"message"`
}

// BatchOutcome tags the overall result of a processing batch.
type BatchOutcome string

const (
	BatchSucceeded BatchOutcome = "SUCCEEDED"
	BatchPartial   BatchOutcome = "PARTIAL" // some items failed, the rest were processed
	BatchFailed    BatchOutcome = "FAILED"  // nothing could be processed
)

// ProcessResult summarizes one pass through the transaction processor.
type ProcessResult struct {
	Outcome           BatchOutcome `json:"outcome"`
	Processed         int          `json:"processed"`
	DuplicatesSkipped int          `json:"duplicatesSkipped"`
	Errors            []ItemError  `json:"errors,omitempty"`
}

// Finalize derives the outcome tag from the counts.
func (r *ProcessResult) Finalize() {
	switch {
	case len(r.Errors) == 0:
		r.Outcome = BatchSucceeded
	case r.Processed == 0 && r.DuplicatesSkipped == 0:
		r.Outcome = BatchFailed
	default:
		r.Outcome = BatchPartial
	}
}

// ReprocessResult summarizes one reprocessing run over pending transactions.
type ReprocessResult struct {
	Processed int `json:"processed"`
	Approved  int `json:"approved"`
	Failed    int `json:"failed"`
}

// ProgressStatus is the phase reported on the import-progress feed.
type ProgressStatus string

const (
	ProgressFetching   ProgressStatus = "fetching"
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// ProgressEvent is the wire shape of the import-progress feed, keyed by
// SyncLog id. The UI subscribes per open dialog; this shape is a contract.
type ProgressEvent struct {
	Status                ProgressStatus `json:"status"`
	TransactionsFetched   int            `json:"transactionsFetched"`
	TransactionsProcessed int            `json:"transactionsProcessed"`
	DuplicatesSkipped     int            `json:"duplicatesSkipped"`
	CurrentBatch          int            `json:"currentBatch,omitempty"`
	Message               string         `json:"message,omitempty"`
	Error                 string         `json:"error,omitempty"`
}
