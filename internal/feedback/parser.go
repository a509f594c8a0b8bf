package feedback

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/physitutor/backend/internal/models"
)

// ParseQuestion parses an LLM response as a generated question. The
// structural invariants (unique step ids, correct label among options)
// are checked again at registration; this catches shape problems early
// with a clearer error.
func ParseQuestion(responseBody string) (*models.Question, error) {
	cleaned := stripCodeFences(responseBody)

	var q models.Question
	if err := json.Unmarshal([]byte(cleaned), &q); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if len(q.Steps) == 0 {
		return nil, fmt.Errorf("generated question has no guided steps")
	}
	for i := range q.Steps {
		step := &q.Steps[i]
		if step.Prompt == "" {
			return nil, fmt.Errorf("generated step %d has no prompt", step.ID)
		}
		if !step.HasOption(step.Correct) {
			return nil, fmt.Errorf("generated step %d: correct label %q not among options", step.ID, step.Correct)
		}
		if step.Feedback.Correct == "" || step.Feedback.Incorrect == "" {
			return nil, fmt.Errorf("generated step %d: missing feedback text", step.ID)
		}
	}
	return &q, nil
}

type reasoningResult struct {
	Evaluation       string `json:"evaluation"`
	StandardSolution string `json:"standard_solution"`
}

// ParseReasoning extracts the evaluation and standard solution from a
// reasoning response.
func ParseReasoning(responseBody string) (string, string, error) {
	cleaned := stripCodeFences(responseBody)

	var result reasoningResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return "", "", fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if result.Evaluation == "" {
		return "", "", fmt.Errorf("reasoning response has no evaluation")
	}
	return result.Evaluation, result.StandardSolution, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
