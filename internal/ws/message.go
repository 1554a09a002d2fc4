package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageRunStarted   MessageType = "run.started"
	MessageRunProgress  MessageType = "run.progress"
	MessageRunCompleted MessageType = "run.completed"
	MessageRunError     MessageType = "run.error"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	RunID     string      `json:"run_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// RunStartedData is the payload for run.started messages.
type RunStartedData struct {
	Readings int `json:"readings"`
	Subjects int `json:"subjects"`
}

// RunProgressData is the payload for run.progress messages.
type RunProgressData struct {
	SubjectsDone  int `json:"subjects_done"`
	SubjectsTotal int `json:"subjects_total"`
}

// RunCompletedData is the payload for run.completed messages.
type RunCompletedData struct {
	Episodes int    `json:"episodes"`
	EndedAt  string `json:"ended_at"`
}

// RunErrorData is the payload for run.error messages.
type RunErrorData struct {
	Error string `json:"error"`
}
