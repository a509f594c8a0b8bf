package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/physitutor/backend/internal/models"
	"github.com/physitutor/backend/internal/questions"
)

// ErrTransferUnavailable is returned when a completed session has no
// transfer question and none can be generated.
var ErrTransferUnavailable = errors.New("transfer question not available")

// Recorder receives every submission record and serves them back in
// append order. Append must never fail or delay the submit call.
type Recorder interface {
	Append(rec models.SubmissionRecord)
	Query(sessionID string) []models.SubmissionRecord
	AppendSummary(summary models.SessionSummary)
}

// Enhancer is the text-generation collaborator. It receives authored
// feedback and may rephrase it; it is never given the correct label
// for an incorrect submission.
type Enhancer interface {
	EnhanceFeedback(ctx context.Context, stepPrompt, choice, baseFeedback string) (string, error)
	GenerateSimilarQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	EvaluateReasoning(ctx context.Context, q *models.Question, reasoning string) (evaluation, solution string, err error)
}

// Sink is the best-effort persistence collaborator. Failures are
// logged and never surfaced to the interactive caller.
type Sink interface {
	UpsertSession(ctx context.Context, snap models.SessionResponse, studentID string) error
	RecordMistake(ctx context.Context, studentID, questionID string, stepID int, wrong, correct string) error
	SaveGeneratedQuestion(ctx context.Context, q *models.Question, sourceQuestionID string) error
}

// Service is the dialogue state machine: a per-session cursor over a
// question's steps. It validates submissions, advances or holds the
// cursor, and produces feedback directives. Steps beyond the current
// one are never returned, and the correct label is never revealed on
// an incorrect submission.
type Service struct {
	repo     *questions.Repository
	store    *Store
	recorder Recorder
	enhancer Enhancer
	sink     Sink
}

func NewService(repo *questions.Repository, store *Store, recorder Recorder, enhancer Enhancer, sink Sink) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		recorder: recorder,
		enhancer: enhancer,
		sink:     sink,
	}
}

// Start creates a session at the first step of the question.
func (s *Service) Start(questionID, studentID string) (models.SessionResponse, error) {
	q, err := s.repo.Get(questionID)
	if err != nil {
		return models.SessionResponse{}, err
	}

	sess := s.store.Create(q, studentID)
	snap := sess.Snapshot()
	s.persistSession(snap, studentID)
	return snap, nil
}

// GetSession returns the externally visible state of a session.
func (s *Service) GetSession(sessionID string) (models.SessionResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.SessionResponse{}, err
	}
	return sess.Snapshot(), nil
}

// Current returns the step at the session's pointer. It has no side
// effects and fails with ErrInvalidState once the session is completed
// or ended: there is no current step to return.
func (s *Service) Current(sessionID string) (models.CurrentStepResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.CurrentStepResponse{}, err
	}

	q, err := s.repo.Get(sess.QuestionID)
	if err != nil {
		return models.CurrentStepResponse{}, fmt.Errorf("question for session %s: %w", sessionID, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Status != models.SessionActive {
		return models.CurrentStepResponse{}, ErrInvalidState
	}

	step, ok := q.StepAt(sess.stepIndex)
	if !ok {
		return models.CurrentStepResponse{}, fmt.Errorf("session %s: pointer %d out of range", sessionID, sess.stepIndex)
	}

	return models.CurrentStepResponse{
		SessionID:  sess.ID,
		QuestionID: q.ID,
		StepID:     step.ID,
		StepType:   step.Type,
		Prompt:     step.Prompt,
		Options:    step.Options,
		Context:    q.Context.Description,
		Image:      q.Image,
		TotalSteps: sess.totalSteps,
	}, nil
}

// Submit processes a choice for the session's current step. A correct
// choice advances the pointer (completing the session at the final
// step); an incorrect one holds it and bumps the attempt counter. This
// is the only place the pointer is mutated. Every accepted submission
// appends exactly one record; error paths append nothing and leave the
// session untouched.
func (s *Service) Submit(ctx context.Context, sessionID, choice string) (models.FeedbackResponse, error) {
	started := time.Now()

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.FeedbackResponse{}, err
	}

	q, err := s.repo.Get(sess.QuestionID)
	if err != nil {
		return models.FeedbackResponse{}, fmt.Errorf("question for session %s: %w", sessionID, err)
	}

	sess.mu.Lock()

	if sess.Status != models.SessionActive {
		sess.mu.Unlock()
		return models.FeedbackResponse{}, ErrInvalidState
	}

	step, ok := q.StepAt(sess.stepIndex)
	if !ok {
		sess.mu.Unlock()
		return models.FeedbackResponse{}, fmt.Errorf("session %s: pointer %d out of range", sessionID, sess.stepIndex)
	}

	if !step.HasOption(choice) {
		sess.mu.Unlock()
		return models.FeedbackResponse{}, &ValidationError{Choice: choice, ValidLabels: step.OptionLabels()}
	}

	// Attempt number of this submission. The counter starts at 1 when
	// a step is reached and moves to the next attempt on an incorrect
	// answer.
	attempt := sess.attempts[step.ID]
	if attempt == 0 {
		attempt = 1
	}

	isCorrect := choice == step.Correct

	var feedback string
	nextAvailable := false
	completed := false

	if isCorrect {
		feedback = step.Feedback.Correct
		sess.correctCount++
		sess.retryCount = 0
		sess.stepIndex++
		if sess.stepIndex < sess.totalSteps {
			nextAvailable = true
		} else {
			sess.Status = models.SessionCompleted
			completed = true
		}
	} else {
		feedback = step.Feedback.Incorrect
		sess.retryCount++
		sess.totalRetries++
		sess.attempts[step.ID] = attempt + 1
	}

	snap := models.SessionResponse{
		SessionID:     sess.ID,
		QuestionID:    sess.QuestionID,
		CurrentStepID: sess.currentStepID(),
		Status:        sess.Status,
		TotalSteps:    sess.totalSteps,
		CreatedAt:     sess.CreatedAt,
	}
	studentID := sess.StudentID
	sess.mu.Unlock()

	// AI enhancement kicks in from the second failed attempt at a
	// step. The collaborator gets the authored feedback and the
	// student's choice, never the correct label.
	aiFeedback := ""
	if !isCorrect && attempt >= 2 && s.enhancer != nil {
		enhanced, err := s.enhancer.EnhanceFeedback(ctx, step.Prompt, choice, feedback)
		if err != nil {
			log.Printf("[dialogue] feedback enhancement failed, using authored text: %v", err)
		} else if enhanced != "" {
			aiFeedback = enhanced
		}
	}

	recorded := feedback
	if aiFeedback != "" {
		recorded = aiFeedback
	}
	s.recorder.Append(models.SubmissionRecord{
		Timestamp:      time.Now(),
		SessionID:      sess.ID,
		QuestionID:     q.ID,
		StepID:         step.ID,
		Granularity:    step.Type,
		Choice:         choice,
		Expected:       step.Correct,
		IsCorrect:      isCorrect,
		Feedback:       recorded,
		AttemptCount:   attempt,
		ResponseTimeMs: time.Since(started).Milliseconds(),
	})

	s.persistSession(snap, studentID)
	if !isCorrect && studentID != "" && s.sink != nil {
		go func() {
			ctx, cancel := sinkContext()
			defer cancel()
			if err := s.sink.RecordMistake(ctx, studentID, q.ID, step.ID, choice, step.Correct); err != nil {
				log.Printf("[dialogue] mistake write failed: %v", err)
			}
		}()
	}

	return models.FeedbackResponse{
		SessionID:          sess.ID,
		StepID:             step.ID,
		IsCorrect:          isCorrect,
		Feedback:           feedback,
		AIEnhancedFeedback: aiFeedback,
		NextStepAvailable:  nextAvailable,
		IsCompleted:        completed,
	}, nil
}

// History returns the session's submission records in append order.
func (s *Service) History(sessionID string) (models.HistoryResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.HistoryResponse{}, err
	}

	snap := sess.Snapshot()
	records := s.recorder.Query(sessionID)
	if records == nil {
		records = []models.SubmissionRecord{}
	}
	return models.HistoryResponse{
		SessionID:  snap.SessionID,
		QuestionID: snap.QuestionID,
		Status:     snap.Status,
		Records:    records,
	}, nil
}

// End terminates a session. Idempotent: the second call observes the
// same ended status and does not error. The session stays in the store
// so its id keeps resolving.
func (s *Service) End(sessionID string) (models.EndSessionResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.EndSessionResponse{}, err
	}

	sess.mu.Lock()
	first := sess.Status != models.SessionEnded
	sess.Status = models.SessionEnded
	resp := models.EndSessionResponse{
		SessionID:    sess.ID,
		Status:       sess.Status,
		TotalSteps:   sess.totalSteps,
		CorrectCount: sess.correctCount,
	}
	if sess.totalSteps > 0 {
		resp.Accuracy = float64(sess.correctCount) / float64(sess.totalSteps)
	}
	summary := models.SessionSummary{
		SessionID:    sess.ID,
		QuestionID:   sess.QuestionID,
		TotalSteps:   sess.totalSteps,
		CorrectCount: sess.correctCount,
		Accuracy:     resp.Accuracy,
		TotalRetries: sess.totalRetries,
		CompletedAt:  time.Now(),
	}
	snap := models.SessionResponse{
		SessionID:     sess.ID,
		QuestionID:    sess.QuestionID,
		CurrentStepID: sess.currentStepID(),
		Status:        sess.Status,
		TotalSteps:    sess.totalSteps,
		CreatedAt:     sess.CreatedAt,
	}
	studentID := sess.StudentID
	sess.mu.Unlock()

	if first {
		s.recorder.AppendSummary(summary)
		s.persistSession(snap, studentID)
	}
	return resp, nil
}

// Transfer returns the id of the reduced-guidance follow-up question
// for a completed session. When the question has no authored
// next_similar_question_id, one is generated by the LLM collaborator,
// validated like any loaded question, and registered.
func (s *Service) Transfer(ctx context.Context, sessionID string) (models.TransferResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.TransferResponse{}, err
	}

	snap := sess.Snapshot()
	if snap.Status != models.SessionCompleted {
		return models.TransferResponse{}, ErrInvalidState
	}

	q, err := s.repo.Get(snap.QuestionID)
	if err != nil {
		return models.TransferResponse{}, fmt.Errorf("question for session %s: %w", sessionID, err)
	}

	if q.NextSimilarQuestionID != "" {
		if _, err := s.repo.Get(q.NextSimilarQuestionID); err == nil {
			return models.TransferResponse{NextQuestionID: q.NextSimilarQuestionID}, nil
		}
		log.Printf("[dialogue] question %s references missing transfer question %s", q.ID, q.NextSimilarQuestionID)
	}

	if s.enhancer == nil {
		return models.TransferResponse{}, ErrTransferUnavailable
	}

	// A retry after a successful generation returns the registered
	// question instead of generating (and failing to register) again.
	generatedID := "transfer_" + sessionID
	if _, err := s.repo.Get(generatedID); err == nil {
		return models.TransferResponse{NextQuestionID: generatedID, Generated: true}, nil
	}

	generated, err := s.enhancer.GenerateSimilarQuestion(ctx, q)
	if err != nil {
		return models.TransferResponse{}, fmt.Errorf("generate transfer question: %w", err)
	}
	generated.ID = generatedID
	if err := s.repo.Register(generated); err != nil {
		return models.TransferResponse{}, fmt.Errorf("register transfer question: %w", err)
	}

	if s.sink != nil {
		gq := generated
		go func() {
			ctx, cancel := sinkContext()
			defer cancel()
			if err := s.sink.SaveGeneratedQuestion(ctx, gq, q.ID); err != nil {
				log.Printf("[dialogue] generated question write failed: %v", err)
			}
		}()
	}

	return models.TransferResponse{NextQuestionID: generated.ID, Generated: true}, nil
}

// Reasoning sends the student's free-text explanation to the LLM for
// evaluation. Only completed sessions qualify; the session state does
// not change.
func (s *Service) Reasoning(ctx context.Context, sessionID, text string) (models.ReasoningResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.ReasoningResponse{}, err
	}

	snap := sess.Snapshot()
	if snap.Status != models.SessionCompleted {
		return models.ReasoningResponse{}, ErrInvalidState
	}
	if s.enhancer == nil {
		return models.ReasoningResponse{}, fmt.Errorf("reasoning evaluation requires a configured LLM")
	}

	q, err := s.repo.Get(snap.QuestionID)
	if err != nil {
		return models.ReasoningResponse{}, fmt.Errorf("question for session %s: %w", sessionID, err)
	}

	evaluation, solution, err := s.enhancer.EvaluateReasoning(ctx, q, text)
	if err != nil {
		return models.ReasoningResponse{}, fmt.Errorf("evaluate reasoning: %w", err)
	}

	return models.ReasoningResponse{
		SessionID:        sessionID,
		Evaluation:       evaluation,
		StandardSolution: solution,
	}, nil
}

// persistSession mirrors session state to the database without ever
// blocking or failing the interactive request.
func (s *Service) persistSession(snap models.SessionResponse, studentID string) {
	if s.sink == nil {
		return
	}
	go func() {
		ctx, cancel := sinkContext()
		defer cancel()
		if err := s.sink.UpsertSession(ctx, snap, studentID); err != nil {
			log.Printf("[dialogue] session write failed: %v", err)
		}
	}()
}

func sinkContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
