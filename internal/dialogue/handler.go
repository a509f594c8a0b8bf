package dialogue

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/physitutor/backend/internal/models"
	"github.com/physitutor/backend/internal/questions"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/session/start", h.StartSession).Methods("POST")
	api.HandleFunc("/session/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/session/{id}/end", h.EndSession).Methods("POST")

	api.HandleFunc("/dialogue/{id}/current", h.GetCurrentStep).Methods("GET")
	api.HandleFunc("/dialogue/{id}/submit", h.SubmitChoice).Methods("POST")
	api.HandleFunc("/dialogue/{id}/history", h.GetHistory).Methods("GET")
	api.HandleFunc("/dialogue/{id}/transfer", h.StartTransfer).Methods("POST")
	api.HandleFunc("/dialogue/{id}/reasoning", h.SubmitReasoning).Methods("POST")
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.QuestionID = strings.TrimSpace(req.QuestionID)
	if req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_id is required"})
		return
	}

	resp, err := h.service.Start(req.QuestionID, strings.TrimSpace(req.StudentID))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.End(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCurrentStep(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Current(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitChoice(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Choice = strings.TrimSpace(req.Choice)
	if req.Choice == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "choice is required"})
		return
	}

	resp, err := h.service.Submit(r.Context(), mux.Vars(r)["id"], req.Choice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.History(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartTransfer(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Transfer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitReasoning(w http.ResponseWriter, r *http.Request) {
	var req models.ReasoningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "text is required"})
		return
	}

	resp, err := h.service.Reasoning(r.Context(), mux.Vars(r)["id"], req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps the core error taxonomy onto HTTP statuses:
// NotFound → 404, InvalidState → 409, ValidationError → 400.
func writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
	case errors.Is(err, questions.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
	case errors.Is(err, ErrInvalidState):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is not accepting this operation"})
	case errors.Is(err, ErrTransferUnavailable):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Transfer question not available"})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: ve.Error(), ValidLabels: ve.ValidLabels})
	default:
		log.Printf("[handler] internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
