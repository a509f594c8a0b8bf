package models

import (
	"encoding/json"
	"testing"
)

func validQuestion() Question {
	return Question{
		ID:         "q_test",
		Topic:      "kinematics",
		Difficulty: DifficultyEasy,
		Context:    QuestionContext{Description: "a cart on a track"},
		Steps: []Step{
			{
				ID:     1,
				Type:   GranularityConcept,
				Prompt: "pick one",
				Options: []Option{
					{Label: "A", Text: "first"},
					{Label: "B", Text: "second"},
				},
				Correct:  "A",
				Feedback: StepFeedback{Correct: "yes", Incorrect: "no"},
			},
		},
	}
}

func TestOptionUnmarshalObjectForm(t *testing.T) {
	var opt Option
	if err := json.Unmarshal([]byte(`{"label":"B","text":"the net force is zero"}`), &opt); err != nil {
		t.Fatalf("unmarshal object form: %v", err)
	}
	if opt.Label != "B" || opt.Text != "the net force is zero" {
		t.Errorf("got %+v, want label B", opt)
	}
}

func TestOptionUnmarshalStringForm(t *testing.T) {
	tests := []struct {
		in        string
		label     string
		text      string
		wantError bool
	}{
		{`"A. the net force is zero"`, "A", "the net force is zero", false},
		{`"C. f = mg sin30"`, "C", "f = mg sin30", false},
		{`"no separator here"`, "", "", true},
		{`". text without label"`, "", "", true},
	}

	for _, tt := range tests {
		var opt Option
		err := json.Unmarshal([]byte(tt.in), &opt)
		if tt.wantError {
			if err == nil {
				t.Errorf("unmarshal %s: expected error, got %+v", tt.in, opt)
			}
			continue
		}
		if err != nil {
			t.Errorf("unmarshal %s: %v", tt.in, err)
			continue
		}
		if opt.Label != tt.label || opt.Text != tt.text {
			t.Errorf("unmarshal %s = %+v, want {%s %s}", tt.in, opt, tt.label, tt.text)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{"valid", func(q *Question) {}, false},
		{"no id", func(q *Question) { q.ID = "" }, true},
		{"no steps", func(q *Question) { q.Steps = nil }, true},
		{"duplicate step ids", func(q *Question) {
			q.Steps = append(q.Steps, q.Steps[0])
		}, true},
		{"no options", func(q *Question) { q.Steps[0].Options = nil }, true},
		{"empty option label", func(q *Question) { q.Steps[0].Options[1].Label = "" }, true},
		{"duplicate option label", func(q *Question) { q.Steps[0].Options[1].Label = "A" }, true},
		{"correct not among options", func(q *Question) { q.Steps[0].Correct = "Z" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestStepOptionHelpers(t *testing.T) {
	step := validQuestion().Steps[0]

	labels := step.OptionLabels()
	if len(labels) != 2 || labels[0] != "A" || labels[1] != "B" {
		t.Errorf("OptionLabels() = %v, want [A B]", labels)
	}

	if !step.HasOption("A") {
		t.Error("HasOption(A) = false, want true")
	}
	if step.HasOption("a") {
		t.Error("HasOption(a) = true, matching must be exact")
	}
	if step.HasOption("Z") {
		t.Error("HasOption(Z) = true, want false")
	}
}

func TestStepAt(t *testing.T) {
	q := validQuestion()

	if step, ok := q.StepAt(0); !ok || step.ID != 1 {
		t.Errorf("StepAt(0) = %v, %v", step, ok)
	}
	if _, ok := q.StepAt(1); ok {
		t.Error("StepAt(1) ok = true past final step")
	}
	if _, ok := q.StepAt(-1); ok {
		t.Error("StepAt(-1) ok = true")
	}
}
