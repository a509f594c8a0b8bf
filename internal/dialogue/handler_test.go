package dialogue

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/physitutor/backend/internal/models"
)

func newTestRouter(t *testing.T) (*mux.Router, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t, nil)
	r := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r, svc
}

func doRequest(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStartSessionEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, "POST", "/session/start", `{"question_id":"q1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp models.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" || resp.CurrentStepID != 1 || resp.Status != models.SessionActive {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartSessionEndpointErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown question", `{"question_id":"nope"}`, http.StatusNotFound},
		{"missing question id", `{}`, http.StatusBadRequest},
		{"invalid body", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, "POST", "/session/start", tt.body)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
		})
	}
}

func TestSubmitEndpointStatusMapping(t *testing.T) {
	r, svc := newTestRouter(t)

	snap, err := svc.Start("q1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := snap.SessionID

	// Invalid label: 400 with the valid labels in the body.
	rec := doRequest(r, "POST", "/dialogue/"+id+"/submit", `{"choice":"Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	var errResp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if len(errResp.ValidLabels) != 4 {
		t.Errorf("valid_labels = %v, want 4 labels", errResp.ValidLabels)
	}

	// Unknown session: 404.
	rec = doRequest(r, "POST", "/dialogue/sess_missing/submit", `{"choice":"A"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	// Correct submission: 200 with feedback.
	rec = doRequest(r, "POST", "/dialogue/"+id+"/submit", `{"choice":"B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var fb models.FeedbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &fb); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if !fb.IsCorrect || !fb.NextStepAvailable {
		t.Errorf("feedback = %+v", fb)
	}

	// Ended session: submit conflicts with the session state.
	if _, err := svc.End(id); err != nil {
		t.Fatalf("End: %v", err)
	}
	rec = doRequest(r, "POST", "/dialogue/"+id+"/submit", `{"choice":"A"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status after end = %d, want 409", rec.Code)
	}
}

func TestCurrentStepEndpointHidesLaterSteps(t *testing.T) {
	r, svc := newTestRouter(t)

	snap, _ := svc.Start("q1", "")
	rec := doRequest(r, "GET", "/dialogue/"+snap.SessionID+"/current", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if !strings.Contains(body, "net force") {
		t.Error("response missing current step prompt")
	}
	if strings.Contains(body, "friction point") {
		t.Error("response leaked a later step's prompt")
	}
	if strings.Contains(body, `"correct"`) {
		t.Error("response leaked the correct label")
	}
}

func TestEndAndHistoryEndpoints(t *testing.T) {
	r, svc := newTestRouter(t)

	snap, _ := svc.Start("q1", "")
	id := snap.SessionID
	doRequest(r, "POST", "/dialogue/"+id+"/submit", `{"choice":"C"}`)

	rec := doRequest(r, "POST", "/session/"+id+"/end", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d: %s", rec.Code, rec.Body.String())
	}
	// Idempotent: a repeat end succeeds with the same status.
	rec = doRequest(r, "POST", "/session/"+id+"/end", "")
	if rec.Code != http.StatusOK {
		t.Errorf("repeat end status = %d, want 200", rec.Code)
	}

	rec = doRequest(r, "GET", "/dialogue/"+id+"/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d: %s", rec.Code, rec.Body.String())
	}
	var hist models.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Records) != 1 || hist.Status != models.SessionEnded {
		t.Errorf("history = %+v", hist)
	}
}
