package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/physitutor/backend/internal/models"
)

// Store persists submission records, session snapshots, the mistake
// book, and generated questions to Postgres. Every write here is a
// best-effort mirror of in-memory state; callers treat failures as
// warnings.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertRecord satisfies the recorder's RecordSink.
func (s *Store) InsertRecord(rec models.SubmissionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO step_records (session_id, question_id, step_id, granularity, student_choice, expected_choice, is_correct, feedback, attempt_count, response_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.SessionID, rec.QuestionID, rec.StepID, rec.Granularity, rec.Choice,
		rec.Expected, rec.IsCorrect, rec.Feedback, rec.AttemptCount, rec.ResponseTimeMs, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert step record: %w", err)
	}
	return nil
}

// UpsertSession mirrors the session's current state. A non-empty
// studentID links the session to a user row, creating one on first use.
func (s *Store) UpsertSession(ctx context.Context, snap models.SessionResponse, studentID string) error {
	var userID sql.NullInt64
	if studentID != "" {
		id, err := s.getOrCreateUser(ctx, studentID)
		if err != nil {
			return err
		}
		userID = sql.NullInt64{Int64: id, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, question_id, status, current_step_id, total_steps, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET status = $4, current_step_id = $5`,
		snap.SessionID, userID, snap.QuestionID, string(snap.Status),
		snap.CurrentStepID, snap.TotalSteps, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// RecordMistake appends to the student's mistake book.
func (s *Store) RecordMistake(ctx context.Context, studentID, questionID string, stepID int, wrong, correct string) error {
	userID, err := s.getOrCreateUser(ctx, studentID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mistakes (user_id, question_id, step_id, wrong_choice, correct_choice)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, questionID, stepID, wrong, correct,
	)
	if err != nil {
		return fmt.Errorf("insert mistake: %w", err)
	}
	return nil
}

// ListMistakes returns a user's mistake book, newest first.
func (s *Store) ListMistakes(ctx context.Context, userID int64, limit, offset int) ([]models.Mistake, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mistakes WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count mistakes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, question_id, step_id, wrong_choice, correct_choice, created_at
		 FROM mistakes WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query mistakes: %w", err)
	}
	defer rows.Close()

	var mistakes []models.Mistake
	for rows.Next() {
		var m models.Mistake
		if err := rows.Scan(&m.ID, &m.UserID, &m.QuestionID, &m.StepID, &m.WrongChoice, &m.CorrectChoice, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan mistake: %w", err)
		}
		mistakes = append(mistakes, m)
	}
	return mistakes, total, rows.Err()
}

// SaveGeneratedQuestion stores an LLM-generated transfer question.
func (s *Store) SaveGeneratedQuestion(ctx context.Context, q *models.Question, sourceQuestionID string) error {
	content, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal generated question: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generated_questions (id, source_question_id, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		q.ID, sourceQuestionID, content,
	)
	if err != nil {
		return fmt.Errorf("insert generated question: %w", err)
	}
	return nil
}

func (s *Store) getOrCreateUser(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username) VALUES ($1)
		 ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		 RETURNING id`,
		username,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get or create user %q: %w", username, err)
	}
	return id, nil
}
