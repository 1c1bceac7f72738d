package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/service"
	"github.com/phrazzld/studyloop/internal/session"
)

// PageImageRequest is a page screenshot. Data is base64 in JSON.
type PageImageRequest struct {
	Data     []byte `json:"data"      validate:"required"`
	MimeType string `json:"mime_type" validate:"required,oneof=image/png image/jpeg image/webp image/gif"`
}

// PageRequest is one page of a submitted resource. A page needs text, an
// image, or both. Number defaults to the page's position.
type PageRequest struct {
	Number int               `json:"number,omitempty" validate:"min=0"`
	Text   string            `json:"text,omitempty"   validate:"required_without=Image"`
	Image  *PageImageRequest `json:"image,omitempty"`
}

// SubmitResourceRequest is the body of POST /api/resources.
type SubmitResourceRequest struct {
	FileName  string        `json:"file_name"            validate:"required,max=512"`
	MimeType  string        `json:"mime_type,omitempty"  validate:"max=255"`
	Title     string        `json:"title,omitempty"      validate:"max=512"`
	Notes     string        `json:"notes,omitempty"      validate:"max=4096"`
	SourceURL string        `json:"source_url,omitempty" validate:"omitempty,url"`
	Source    string        `json:"source,omitempty"     validate:"omitempty,oneof=upload community"`
	Category  string        `json:"category,omitempty"   validate:"omitempty,oneof=pdf exercise video image"`
	Pages     []PageRequest `json:"pages,omitempty"      validate:"max=500,dive"`
}

func (req SubmitResourceRequest) toService() service.SubmitResourceRequest {
	pages := make([]ingest.Page, len(req.Pages))
	for i, p := range req.Pages {
		pages[i] = ingest.Page{Number: p.Number, Text: p.Text}
		if p.Image != nil {
			pages[i].Image = &ingest.PageImage{Data: p.Image.Data, MIMEType: p.Image.MimeType}
		}
	}
	return service.SubmitResourceRequest{
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		Title:     req.Title,
		Notes:     req.Notes,
		SourceURL: req.SourceURL,
		Source:    domain.ResourceSource(req.Source),
		Category:  domain.MaterialCategory(req.Category),
		Pages:     pages,
	}
}

// SubmitResourceResponse is returned with 202 Accepted; ingestion runs in
// the background and is polled through the ingestion endpoint.
type SubmitResourceResponse struct {
	Resource  *domain.Resource  `json:"resource"`
	Ingestion *domain.Ingestion `json:"ingestion"`
}

// OpenSessionRequest is the body of POST /api/sessions.
type OpenSessionRequest struct {
	ResourceID uuid.UUID `json:"resource_id" validate:"required"`
	UnitID     string    `json:"unit_id"     validate:"required,max=255"`
}

// SelectRequest picks a choice option by index.
type SelectRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}

// TextRequest stores a text answer draft.
type TextRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

// AssignRequest places Right on Left. An empty Right clears Left.
type AssignRequest struct {
	Left  string `json:"left"            validate:"required"`
	Right string `json:"right,omitempty"`
}

// SubmitAnswerRequest grades the current item. Fields that are absent fall
// back to what was built up with select, text and assign.
type SubmitAnswerRequest struct {
	Option      *int              `json:"option,omitempty"      validate:"omitempty,min=0"`
	Text        string            `json:"text,omitempty"        validate:"max=10000"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

func (req SubmitAnswerRequest) toAnswer() session.Answer {
	return session.Answer{Option: req.Option, Text: req.Text, Assignments: req.Assignments}
}

// TransitionResponse reports whether the action was applied. A rejected
// action leaves the session unchanged and says why in Reason.
type TransitionResponse struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	// StatusChanged is set when completion moved the unit to done.
	StatusChanged *StatusChangeResponse `json:"status_changed,omitempty"`
}

// StatusChangeResponse describes a unit status transition.
type StatusChangeResponse struct {
	From domain.UnitStatus `json:"from"`
	To   domain.UnitStatus `json:"to"`
}

// SessionResponse is the body of every session endpoint.
type SessionResponse struct {
	ID         uuid.UUID          `json:"id"`
	ResourceID uuid.UUID          `json:"resource_id"`
	UnitID     string             `json:"unit_id"`
	OpenedAt   time.Time          `json:"opened_at"`
	View       session.View       `json:"view"`
	Transition TransitionResponse `json:"transition"`
}

func sessionToResponse(res *service.SessionResult) SessionResponse {
	tr := TransitionResponse{
		Accepted:  res.Transition.Accepted,
		Completed: res.Transition.Completed,
	}
	if res.Transition.Reason != nil {
		tr.Reason = res.Transition.Reason.Error()
	}
	if change := res.Transition.StatusChange; change != nil {
		tr.StatusChanged = &StatusChangeResponse{From: change.From, To: change.To}
	}
	return SessionResponse{
		ID:         res.Session.ID,
		ResourceID: res.Session.ResourceID,
		UnitID:     res.Session.UnitID,
		OpenedAt:   res.Session.OpenedAt,
		View:       res.View,
		Transition: tr,
	}
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token   string `json:"token"`
	Subject string `json:"subject"`
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
