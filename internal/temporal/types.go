package temporal

// AssessmentWorkflowInput is handed to the assessment workflow after a save
type AssessmentWorkflowInput struct {
	EventID      string `json:"eventId"`
	SessionID    string `json:"sessionId"`
	ItemID       string `json:"itemId"`
	TraceID      string `json:"traceId"`
	AssessmentID string `json:"assessmentId"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Value        any    `json:"value"`
	Rationale    string `json:"rationale,omitempty"`
	Source       string `json:"source"`
	Created      bool   `json:"created"`
	Timestamp    string `json:"timestamp"` // RFC 3339
}

// ItemWorkflowInput is handed to the item workflow after a state or comment change
type ItemWorkflowInput struct {
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
	TraceID   string `json:"traceId"`
	State     string `json:"state"`
	Comment   string `json:"comment,omitempty"`
	Reviewer  string `json:"reviewer,omitempty"`
	Timestamp string `json:"timestamp"` // RFC 3339
}
