package model

import "time"

// CapturedRequest is a snapshot of one HTTP delivery to a link.
type CapturedRequest struct {
	ID        string
	LinkCode  string
	Method    string
	Path      string
	Headers   map[string]string
	Body      Body
	Query     map[string]string
	Timestamp time.Time
	IPAddress string
}
