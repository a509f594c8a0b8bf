package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/physitutor/backend/internal/models"
)

// ErrNotFound is returned when a question id is unknown.
var ErrNotFound = errors.New("question not found")

// Repository is the in-memory question index. Loaded once at startup
// and read-only thereafter, except for registering generated transfer
// questions at runtime.
type Repository struct {
	mu        sync.RWMutex
	questions map[string]*models.Question
}

func NewRepository() *Repository {
	return &Repository{questions: make(map[string]*models.Question)}
}

// LoadDir reads every *.json file in dir as a question. A malformed
// entry fails the whole load; the repository must never expose an
// internally inconsistent question.
func (r *Repository) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read questions dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var q models.Question
		if err := json.Unmarshal(data, &q); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if err := r.Register(&q); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		loaded++
	}

	log.Printf("[questions] loaded %d questions from %s", loaded, dir)
	return nil
}

// Register validates a question and adds it to the index. Used at load
// time and for LLM-generated transfer questions.
func (r *Repository) Register(q *models.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.questions[q.ID]; exists {
		return fmt.Errorf("duplicate question id %q", q.ID)
	}
	r.questions[q.ID] = q
	return nil
}

// Get returns the question with the given id.
func (r *Repository) Get(id string) (*models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return q, nil
}

// List returns summaries of all questions, sorted by id for stable
// ordering.
func (r *Repository) List() []models.QuestionSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]models.QuestionSummary, 0, len(r.questions))
	for _, q := range r.questions {
		summaries = append(summaries, models.QuestionSummary{
			ID:         q.ID,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Len returns the number of indexed questions.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.questions)
}
