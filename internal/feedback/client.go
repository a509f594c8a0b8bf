package feedback

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/physitutor/backend/internal/models"
)

// LLMClient is the interface both client implementations satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client wraps an LLMClient with the tutoring-specific operations the
// dialogue service consumes.
type Client struct {
	llm   LLMClient
	model string
}

// NewClient selects the backing implementation from the environment:
// mock for local development, the Anthropic API otherwise.
func NewClient() *Client {
	if os.Getenv("MOCK_LLM") == "true" {
		log.Println("[feedback] using mock LLM")
		return &Client{llm: NewMockClient(), model: "mock"}
	}

	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	log.Println("[feedback] using Anthropic API:", model)
	return &Client{llm: NewAPIClient(model), model: model}
}

func (c *Client) ModelName() string {
	return c.model
}

// EnhanceFeedback rephrases the authored incorrect-feedback into a
// short personalized nudge. The prompt carries the step prompt, the
// student's choice, and the authored text. The correct label is never
// part of the input, so it cannot leak into the output.
func (c *Client) EnhanceFeedback(ctx context.Context, stepPrompt, choice, baseFeedback string) (string, error) {
	resp, err := c.llm.Generate(ctx, tutorSystemPrompt, BuildFeedbackPrompt(stepPrompt, choice, baseFeedback))
	if err != nil {
		return "", fmt.Errorf("enhance feedback: %w", err)
	}
	return resp, nil
}

// GenerateSimilarQuestion produces a reduced-guidance variant of q for
// the transfer check. The result still needs repository validation and
// an id before serving.
func (c *Client) GenerateSimilarQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	prompt, err := BuildSimilarQuestionPrompt(q)
	if err != nil {
		return nil, err
	}

	resp, err := c.llm.Generate(ctx, tutorSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate similar question: %w", err)
	}

	generated, err := ParseQuestion(resp)
	if err != nil {
		return nil, fmt.Errorf("parse generated question: %w", err)
	}
	return generated, nil
}

// EvaluateReasoning scores the student's free-text explanation against
// the question and returns the evaluation plus a standard solution.
func (c *Client) EvaluateReasoning(ctx context.Context, q *models.Question, reasoning string) (string, string, error) {
	prompt, err := BuildReasoningPrompt(q, reasoning)
	if err != nil {
		return "", "", err
	}

	resp, err := c.llm.Generate(ctx, tutorSystemPrompt, prompt)
	if err != nil {
		return "", "", fmt.Errorf("evaluate reasoning: %w", err)
	}

	evaluation, solution, err := ParseReasoning(resp)
	if err != nil {
		return "", "", fmt.Errorf("parse reasoning response: %w", err)
	}
	return evaluation, solution, nil
}

// ── APIClient (Anthropic SDK) ──────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleep := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[feedback] retrying Anthropic API call in %v (attempt %d)", sleep, attempt+1)
			time.Sleep(sleep)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("[feedback] Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient (Local Development) ─────────────────────────

// MockClient returns canned responses matching the shape each prompt
// asks for, so the full flow works without an API key.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(userPrompt, "Return only a JSON object in this exact format"):
		return mockQuestionJSON, nil
	case strings.Contains(userPrompt, `{"evaluation"`):
		return `{"evaluation":"[Mock] The reasoning identifies the key conservation principle but skips the force analysis on the second body.","standard_solution":"[Mock] Apply Newton's second law to each body, then combine the equations to eliminate the internal force."}`, nil
	default:
		return "[Mock] Think about which quantity stays constant in this situation, and check your last judgment against it.", nil
	}
}

const mockQuestionJSON = `{
  "topic": "Newton's Laws",
  "difficulty": "medium",
  "question_context": {
    "description": "[Mock] A crate rests on the flat bed of a truck that accelerates forward.",
    "ask": ["What force accelerates the crate?"]
  },
  "guided_steps": [
    {
      "step_id": 1,
      "type": "concept_judgement",
      "prompt": "[Mock] Which force acts on the crate in the direction of motion?",
      "options": [
        {"label": "A", "text": "Static friction from the truck bed"},
        {"label": "B", "text": "The normal force"},
        {"label": "C", "text": "Gravity"}
      ],
      "correct": "A",
      "feedback": {
        "correct": "[Mock] Right, friction is the only horizontal force on the crate.",
        "incorrect": "[Mock] List the forces on the crate alone and check which one points forward."
      }
    }
  ]
}`
