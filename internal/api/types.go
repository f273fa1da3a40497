package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool              `json:"running"`
	PID            int               `json:"pid"`
	StartedAt      string            `json:"startedAt,omitempty"`
	LockFilePath   string            `json:"lockFilePath"`
	JournalPath    string            `json:"journalPath"`
	Deliveries     map[string]int    `json:"deliveries"`
	DisabledStages map[string]string `json:"disabledStages,omitempty"`
}

// Delivery describes one journaled event delivery.
type Delivery struct {
	ID           int64  `json:"id"`
	RequestID    string `json:"requestId"`
	EventID      string `json:"eventId,omitempty"`
	Source       string `json:"source,omitempty"`
	DetailType   string `json:"detailType,omitempty"`
	Stage        string `json:"stage"`
	ResourceKey  string `json:"resourceKey,omitempty"`
	Status       string `json:"status"`
	FailureClass string `json:"failureClass,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Message      string `json:"message,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	ReceivedAt   string `json:"receivedAt"`
}

// HistoryResponse wraps a page of deliveries, newest first.
type HistoryResponse struct {
	Deliveries []Delivery `json:"deliveries"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
