package questions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/physitutor/backend/internal/models"
)

// StatsSource supplies aggregated per-question submission statistics.
// Satisfied by the history recorder.
type StatsSource interface {
	QuestionStats(questionID string) models.QuestionStats
}

type Handler struct {
	repo  *Repository
	stats StatsSource
}

func NewHandler(repo *Repository, stats StatsSource) *Handler {
	return &Handler{repo: repo, stats: stats}
}

func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/questions", h.ListQuestions).Methods("GET")
	api.HandleFunc("/questions/{id}/stats", h.GetQuestionStats).Methods("GET")
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	summaries := h.repo.List()
	writeJSON(w, http.StatusOK, models.QuestionListResponse{
		Questions: summaries,
		Count:     len(summaries),
	})
}

func (h *Handler) GetQuestionStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.repo.Get(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get question"})
		return
	}

	writeJSON(w, http.StatusOK, h.stats.QuestionStats(id))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
