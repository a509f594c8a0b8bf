package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Step granularity tags. Free-form classification used for analytics
// only; control flow never branches on these.
const (
	GranularityConcept   = "concept_judgement"
	GranularityDirection = "direction_judgement"
	GranularityFormula   = "formula_judgement"
	GranularityNumeric   = "numeric_judgement"
)

// ── Core Structs ───────────────────────────────────────

// Option is a single answer choice on a step.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// UnmarshalJSON accepts either the object form {"label":"A","text":"..."}
// or the shorthand string form "A. ..." used by older question files.
func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		label, text, found := strings.Cut(s, ".")
		if !found || strings.TrimSpace(label) == "" {
			return fmt.Errorf("option %q: want \"<label>. <text>\"", s)
		}
		o.Label = strings.TrimSpace(label)
		o.Text = strings.TrimSpace(text)
		return nil
	}

	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Option(p)
	return nil
}

// StepFeedback holds the authored feedback for both outcomes of a step.
// The incorrect text is written to guide without revealing the answer.
type StepFeedback struct {
	Correct   string `json:"correct"`
	Incorrect string `json:"incorrect"`
}

// Step is one atomic judgment point within a question. Exactly one
// option is correct. Step IDs are identifiers, not positions; the
// traversal order is the order of Question.Steps.
type Step struct {
	ID       int          `json:"step_id"`
	Type     string       `json:"type"`
	Prompt   string       `json:"prompt"`
	Options  []Option     `json:"options"`
	Correct  string       `json:"correct"`
	Feedback StepFeedback `json:"feedback"`
}

// OptionLabels returns the valid choice labels for the step, in order.
func (s *Step) OptionLabels() []string {
	labels := make([]string, len(s.Options))
	for i, opt := range s.Options {
		labels[i] = opt.Label
	}
	return labels
}

// HasOption reports whether label names one of the step's options.
// Matching is exact; choices are closed-set short codes, not free text.
func (s *Step) HasOption(label string) bool {
	for _, opt := range s.Options {
		if opt.Label == label {
			return true
		}
	}
	return false
}

type QuestionContext struct {
	Description string   `json:"description"`
	Ask         []string `json:"ask"`
}

// Question is an immutable guided question: an ordered sequence of
// steps walked one forced decision at a time.
type Question struct {
	ID                    string          `json:"id"`
	Topic                 string          `json:"topic"`
	Difficulty            Difficulty      `json:"difficulty"`
	Image                 string          `json:"image,omitempty"`
	Context               QuestionContext `json:"question_context"`
	Steps                 []Step          `json:"guided_steps"`
	NextSimilarQuestionID string          `json:"next_similar_question_id,omitempty"`
}

// StepAt returns the step at the given traversal position.
func (q *Question) StepAt(index int) (*Step, bool) {
	if index < 0 || index >= len(q.Steps) {
		return nil, false
	}
	return &q.Steps[index], true
}

// Validate checks the internal consistency of a question. A question
// that fails validation must never be served.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has no id")
	}
	if len(q.Steps) == 0 {
		return fmt.Errorf("question %s: no guided steps", q.ID)
	}

	seen := make(map[int]bool, len(q.Steps))
	for i := range q.Steps {
		step := &q.Steps[i]
		if seen[step.ID] {
			return fmt.Errorf("question %s: duplicate step id %d", q.ID, step.ID)
		}
		seen[step.ID] = true

		if len(step.Options) == 0 {
			return fmt.Errorf("question %s step %d: no options", q.ID, step.ID)
		}
		labels := make(map[string]bool, len(step.Options))
		for _, opt := range step.Options {
			if opt.Label == "" {
				return fmt.Errorf("question %s step %d: option with empty label", q.ID, step.ID)
			}
			if labels[opt.Label] {
				return fmt.Errorf("question %s step %d: duplicate option label %q", q.ID, step.ID, opt.Label)
			}
			labels[opt.Label] = true
		}
		if !labels[step.Correct] {
			return fmt.Errorf("question %s step %d: correct label %q not among options", q.ID, step.ID, step.Correct)
		}
	}
	return nil
}

// QuestionSummary is the list-view projection of a question. It never
// carries steps, so answers cannot leak through the listing endpoint.
type QuestionSummary struct {
	ID         string     `json:"id"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
}

type QuestionListResponse struct {
	Questions []QuestionSummary `json:"available_questions"`
	Count     int               `json:"count"`
}

// ── Question Statistics ────────────────────────────────

type StepStat struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

type QuestionStats struct {
	QuestionID      string           `json:"question_id"`
	TotalAttempts   int              `json:"total_attempts"`
	OverallAccuracy float64          `json:"overall_accuracy"`
	StepStats       map[int]StepStat `json:"step_stats"`
}
