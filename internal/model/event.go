package model

import "time"

// AssessmentEvent is published after an assessment is persisted
type AssessmentEvent struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	ItemID     string     `json:"item_id"`
	TraceID    string     `json:"trace_id"`
	Assessment Assessment `json:"assessment"`
	Created    bool       `json:"created"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ItemEvent is published after an item changes state or comment
type ItemEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ItemID    string    `json:"item_id"`
	TraceID   string    `json:"trace_id"`
	State     ItemState `json:"state"`
	Comment   string    `json:"comment,omitempty"`
	Reviewer  string    `json:"reviewer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
