package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/redact"
)

// IngestionStatus represents the processing state of an ingestion run.
type IngestionStatus string

// Possible ingestion status values
const (
	IngestionStatusPending             IngestionStatus = "pending"
	IngestionStatusProcessing          IngestionStatus = "processing"
	IngestionStatusCompleted           IngestionStatus = "completed"
	IngestionStatusCompletedWithErrors IngestionStatus = "completed_with_errors"
	IngestionStatusFailed              IngestionStatus = "failed"
)

// Ingestion validation errors
var (
	ErrIngestionIDEmpty         = errors.New("ingestion ID cannot be empty")
	ErrIngestionResourceIDEmpty = errors.New("ingestion resource ID cannot be empty")
)

// Ingestion tracks one batch extraction of a Resource into blocks and units.
type Ingestion struct {
	ID             uuid.UUID       `json:"id"`
	ResourceID     uuid.UUID       `json:"resource_id"`
	Status         IngestionStatus `json:"status"`
	PagesTotal     int             `json:"pages_total"`
	PagesSucceeded int             `json:"pages_succeeded"`
	LastError      string          `json:"last_error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewIngestion creates a pending Ingestion for the given resource.
func NewIngestion(resourceID uuid.UUID, pagesTotal int) (*Ingestion, error) {
	now := time.Now().UTC()
	in := &Ingestion{
		ID:         uuid.New(),
		ResourceID: resourceID,
		Status:     IngestionStatusPending,
		PagesTotal: pagesTotal,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	return in, nil
}

// Validate checks if the Ingestion has valid data.
func (in *Ingestion) Validate() error {
	if in.ID == uuid.Nil {
		return ErrIngestionIDEmpty
	}
	if in.ResourceID == uuid.Nil {
		return ErrIngestionResourceIDEmpty
	}
	if !isValidIngestionStatus(in.Status) {
		return ErrInvalidIngestionStatus
	}
	return nil
}

// UpdateStatus updates the status and the UpdatedAt timestamp.
func (in *Ingestion) UpdateStatus(status IngestionStatus) error {
	if !isValidIngestionStatus(status) {
		return ErrInvalidIngestionStatus
	}

	in.Status = status
	in.UpdatedAt = time.Now().UTC()
	return nil
}

// Finish records the outcome of a batch run and picks the terminal status.
// LastError is redacted since it is served to clients.
func (in *Ingestion) Finish(succeeded int, lastErr error) {
	in.PagesSucceeded = succeeded
	if lastErr != nil {
		in.LastError = redact.Error(lastErr)
	}
	switch {
	case succeeded == 0:
		in.Status = IngestionStatusFailed
	case lastErr != nil || succeeded < in.PagesTotal:
		in.Status = IngestionStatusCompletedWithErrors
	default:
		in.Status = IngestionStatusCompleted
	}
	in.UpdatedAt = time.Now().UTC()
}

func isValidIngestionStatus(status IngestionStatus) bool {
	switch status {
	case IngestionStatusPending, IngestionStatusProcessing, IngestionStatusCompleted,
		IngestionStatusCompletedWithErrors, IngestionStatusFailed:
		return true
	default:
		return false
	}
}
