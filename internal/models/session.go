package models

import "time"

type SessionStatus string

const (
	// SessionActive accepts submissions for the current step.
	SessionActive SessionStatus = "active"
	// SessionCompleted means every step was answered correctly in order.
	// No further submissions are accepted.
	SessionCompleted SessionStatus = "completed"
	// SessionEnded is the absorbing terminated state.
	SessionEnded SessionStatus = "ended"
)

// ── Request Types ──────────────────────────────────────

type StartSessionRequest struct {
	QuestionID string `json:"question_id"`
	StudentID  string `json:"student_id,omitempty"`
}

type SubmitChoiceRequest struct {
	Choice string `json:"choice"`
}

type ReasoningRequest struct {
	Text string `json:"text"`
}

// ── Response Types ─────────────────────────────────────

type SessionResponse struct {
	SessionID     string        `json:"session_id"`
	QuestionID    string        `json:"question_id"`
	CurrentStepID int           `json:"current_step_id"`
	Status        SessionStatus `json:"status"`
	TotalSteps    int           `json:"total_steps"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CurrentStepResponse carries the current step only. Future steps and
// the correct label are deliberately withheld.
type CurrentStepResponse struct {
	SessionID  string   `json:"session_id"`
	QuestionID string   `json:"question_id"`
	StepID     int      `json:"step_id"`
	StepType   string   `json:"step_type"`
	Prompt     string   `json:"prompt"`
	Options    []Option `json:"options"`
	Context    string   `json:"context,omitempty"`
	Image      string   `json:"image,omitempty"`
	TotalSteps int      `json:"total_steps"`
}

type FeedbackResponse struct {
	SessionID          string `json:"session_id"`
	StepID             int    `json:"step_id"`
	IsCorrect          bool   `json:"is_correct"`
	Feedback           string `json:"feedback"`
	AIEnhancedFeedback string `json:"ai_enhanced_feedback,omitempty"`
	NextStepAvailable  bool   `json:"next_step_available"`
	IsCompleted        bool   `json:"is_completed"`
}

type EndSessionResponse struct {
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	TotalSteps   int           `json:"total_steps"`
	CorrectCount int           `json:"correct_count"`
	Accuracy     float64       `json:"accuracy"`
}

type TransferResponse struct {
	NextQuestionID string `json:"next_question_id"`
	Generated      bool   `json:"generated"`
}

type ReasoningResponse struct {
	SessionID        string `json:"session_id"`
	Evaluation       string `json:"evaluation"`
	StandardSolution string `json:"standard_solution"`
}
