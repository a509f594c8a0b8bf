package feedback

import (
	"encoding/json"
	"fmt"

	"github.com/physitutor/backend/internal/models"
)

// tutorSystemPrompt sets the pedagogical ground rules for every call.
const tutorSystemPrompt = `You are a physics tutor guiding a student through a problem one
judgment at a time. You never solve the problem for the student and you
never reveal which option is the correct one. Your job is to sharpen
the student's own reasoning: point at the relevant physical principle,
question a flawed assumption, or confirm a sound judgment. Keep every
reply short and concrete.`

// BuildFeedbackPrompt asks for a rephrasing of the authored feedback
// after a repeated incorrect attempt. The correct option label is
// deliberately absent from the inputs: the model cannot reveal what
// it was never given.
func BuildFeedbackPrompt(stepPrompt, choice, baseFeedback string) string {
	return fmt.Sprintf(`The student is stuck on this judgment step:

Step: %s
Student's choice: %s
Result: incorrect
Authored feedback: %s

Rewrite the authored feedback as one or two sentences of guidance.
Point at the flaw in the student's reasoning, but do not state or hint
at which option is correct.

Reply with the guidance text only.`, stepPrompt, choice, baseFeedback)
}

// similarQuestionFormat documents the JSON shape the generation prompt
// requests. It mirrors the question file format minus the id, which is
// assigned by the caller.
const similarQuestionFormat = `{
  "topic": "...",
  "difficulty": "easy|medium|hard",
  "question_context": {"description": "...", "ask": ["..."]},
  "guided_steps": [
    {
      "step_id": 1,
      "type": "concept_judgement",
      "prompt": "...",
      "options": [{"label": "A", "text": "..."}, {"label": "B", "text": "..."}],
      "correct": "A",
      "feedback": {"correct": "...", "incorrect": "..."}
    }
  ]
}`

// BuildSimilarQuestionPrompt asks for a transfer-check variant: same
// physical structure and step skeleton, new surface situation, fewer
// steps so the student works with less guidance.
func BuildSimilarQuestionPrompt(q *models.Question) (string, error) {
	source, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal source question: %w", err)
	}

	return fmt.Sprintf(`Here is a guided physics question the student just completed:

%s

Create a transfer-check question: the same physical principles and the
same kind of judgments, but a different concrete situation, and with
fewer guided steps so the student has to bridge larger gaps alone.
Merge adjacent judgments where that removes hand-holding. Each step
still has exactly one correct option and authored feedback for both
outcomes; incorrect feedback must guide without revealing the answer.

Return only a JSON object in this exact format:

%s`, source, similarQuestionFormat), nil
}

// BuildReasoningPrompt asks for an evaluation of the student's own
// written solution after all steps are done.
func BuildReasoningPrompt(q *models.Question, reasoning string) (string, error) {
	source, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal question: %w", err)
	}

	return fmt.Sprintf(`The student completed every guided step of this question:

%s

They then wrote up their own reasoning:

%s

Evaluate the reasoning: what is sound, what is missing or imprecise.
Then give a concise standard solution for comparison.

Return only a JSON object: {"evaluation": "...", "standard_solution": "..."}`, source, reasoning), nil
}
