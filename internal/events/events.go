// Package events defines the typed events published on the bus while a
// request moves through extraction, document resolution, and execution.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when a request is received.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response is written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// DocumentResolved is emitted when a document provider claims a request.
type DocumentResolved struct {
	Provider   string
	DocumentID string
}

// ExecuteStart is emitted before the pipeline runner is invoked.
type ExecuteStart struct {
	OperationName string
	Provider      string
	DocumentID    string
	Phases        []string
}

// ExecuteFinish is emitted after the pipeline runner returns.
type ExecuteFinish struct {
	OperationName string
	Provider      string
	DocumentID    string
	ErrorCount    int
	Failed        bool
	Duration      time.Duration
}
