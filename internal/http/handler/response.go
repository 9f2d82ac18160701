package handler

import (
	"time"

	"github.com/sifan077/PowerHook/internal/app/model"
)

// isoMillis matches JavaScript's Date.toISOString for UTC times.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// LinkResponse is the wire form of a link.
type LinkResponse struct {
	ID        string `json:"id"`
	LinkID    string `json:"linkId"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
	IsActive  bool   `json:"isActive"`
}

func newLinkResponse(link model.Link, now time.Time) LinkResponse {
	return LinkResponse{
		ID:        link.ID,
		LinkID:    link.Code,
		CreatedAt: formatTime(link.CreatedAt),
		ExpiresAt: formatTime(link.ExpiresAt),
		IsActive:  !link.Expired(now),
	}
}

// CapturedRequestResponse is the wire form of a captured request.
type CapturedRequestResponse struct {
	ID        string            `json:"id"`
	LinkID    string            `json:"linkId"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Headers   map[string]string `json:"headers"`
	Body      model.Body        `json:"body"`
	BodyType  model.BodyKind    `json:"bodyType"`
	Query     map[string]string `json:"query"`
	Timestamp string            `json:"timestamp"`
	IPAddress string            `json:"ipAddress,omitempty"`
}

func newCapturedRequestResponse(req model.CapturedRequest) CapturedRequestResponse {
	return CapturedRequestResponse{
		ID:        req.ID,
		LinkID:    req.LinkCode,
		Method:    req.Method,
		Path:      req.Path,
		Headers:   req.Headers,
		Body:      req.Body,
		BodyType:  req.Body.Kind,
		Query:     req.Query,
		Timestamp: formatTime(req.Timestamp),
		IPAddress: req.IPAddress,
	}
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ReceiveResponse acknowledges a captured webhook.
type ReceiveResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}
