package models

import "time"

// ── History Types ────────────────────────────────────────

// SubmissionRecord is the immutable record appended for every submit
// call, correct or not. Append order is chronological; repeated
// attempts at one step appear as multiple records with the same step id.
type SubmissionRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id"`
	QuestionID     string    `json:"question_id"`
	StepID         int       `json:"step_id"`
	Granularity    string    `json:"granularity"`
	Choice         string    `json:"student_choice"`
	Expected       string    `json:"expected_choice"`
	IsCorrect      bool      `json:"is_correct"`
	Feedback       string    `json:"feedback"`
	AttemptCount   int       `json:"attempt_count"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// SessionSummary is appended to the summary log when a session ends.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	QuestionID   string    `json:"question_id"`
	TotalSteps   int       `json:"total_steps"`
	CorrectCount int       `json:"correct_count"`
	Accuracy     float64   `json:"accuracy"`
	TotalRetries int       `json:"total_retries"`
	CompletedAt  time.Time `json:"completed_at"`
}

type HistoryResponse struct {
	SessionID  string             `json:"session_id"`
	QuestionID string             `json:"question_id"`
	Status     SessionStatus      `json:"status"`
	Records    []SubmissionRecord `json:"history"`
}

// ── Mistake Book ─────────────────────────────────────────

type Mistake struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	QuestionID    string    `json:"question_id"`
	StepID        int       `json:"step_id"`
	WrongChoice   string    `json:"wrong_choice"`
	CorrectChoice string    `json:"correct_choice"`
	CreatedAt     time.Time `json:"created_at"`
}

type MistakeListResponse struct {
	Mistakes []Mistake `json:"mistakes"`
	Total    int       `json:"total"`
}
