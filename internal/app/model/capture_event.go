package model

import "time"

// CaptureEvent is the notification published for every captured request.
type CaptureEvent struct {
	ID        string    `json:"id"`
	LinkCode  string    `json:"link_code"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	BodyType  BodyKind  `json:"body_type"`
	BodySize  int       `json:"body_size"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	CaptureStreamName     = "CAPTURES"
	CaptureStreamSubject  = "captures.events"
	CaptureConsumerName   = "capture-logger"
	CaptureStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)

// NewCaptureEvent summarises req for the event stream.
func NewCaptureEvent(req *CapturedRequest) CaptureEvent {
	return CaptureEvent{
		ID:        req.ID,
		LinkCode:  req.LinkCode,
		Method:    req.Method,
		Path:      req.Path,
		BodyType:  req.Body.Kind,
		BodySize:  req.Body.Size(),
		IP:        req.IPAddress,
		Timestamp: req.Timestamp,
	}
}
