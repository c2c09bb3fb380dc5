package jobqueue

import "time"

// JobType defines the type of job
type JobType string

const (
	JobTypePaymentReceipt JobType = "payment_receipt"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job. Jobs carry work that must not run inside
// the webhook transaction: the provider's response budget is short and a
// mail outage must never fail a committed reconciliation.
type Job struct {
	ID          string            `json:"id"`
	Type        JobType           `json:"type"`
	Status      JobStatus         `json:"status"`
	Payload     map[string]string `json:"payload"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	ErrorMsg    string            `json:"error_msg,omitempty"`
	RetryCount  int               `json:"retry_count"`
	MaxRetries  int               `json:"max_retries"`
}

// PaymentReceiptPayload is the payload for receipt notification jobs.
type PaymentReceiptPayload struct {
	InvoiceID string
}

func (p PaymentReceiptPayload) ToMap() map[string]string {
	return map[string]string{"invoice_id": p.InvoiceID}
}
