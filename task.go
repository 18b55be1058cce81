package scopekit

// Task describes a typed unit of work processed by a Pool. It is the
// in-memory record handed to dead-letter callbacks and stats consumers.
type Task struct {
	// ID is the unique identifier for the task.
	ID string `json:"id"`
	// Type defines the task category, used by Mux to route to the correct handler.
	Type string `json:"type"`
	// Payload is the raw task data.
	Payload []byte `json:"payload"`
	// Retry is the current number of retry attempts made.
	Retry int `json:"retry"`
	// MaxRetry is the maximum number of retries allowed before the task is dead-lettered.
	MaxRetry int `json:"max_retry"`
	// CreatedAt is the timestamp (ms) when the task was submitted.
	CreatedAt int64 `json:"created_at,omitempty"`
	// LastError is the error message from the last failed attempt.
	LastError string `json:"last_error,omitempty"`
}
