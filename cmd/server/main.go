package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/physitutor/backend/internal/auth"
	"github.com/physitutor/backend/internal/database"
	"github.com/physitutor/backend/internal/dialogue"
	"github.com/physitutor/backend/internal/feedback"
	"github.com/physitutor/backend/internal/history"
	"github.com/physitutor/backend/internal/middleware"
	"github.com/physitutor/backend/internal/questions"
	"github.com/rs/cors"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Question repository: loaded once, validated, read-only after this
	repo := questions.NewRepository()
	questionsDir := database.GetEnv("QUESTIONS_DIR", "data/questions")
	if err := repo.LoadDir(questionsDir); err != nil {
		log.Fatalf("Failed to load questions: %v", err)
	}

	// History recorder with JSONL + Postgres persistence
	historyStore := history.NewStore(db)
	recorder, err := history.NewRecorder(database.GetEnv("LOGS_DIR", "data/logs"), historyStore)
	if err != nil {
		log.Fatalf("Failed to init history recorder: %v", err)
	}
	defer recorder.Close()

	// Core service wiring
	sessionStore := dialogue.NewStore()
	llm := feedback.NewClient()
	service := dialogue.NewService(repo, sessionStore, recorder, llm, historyStore)

	// Initialize handlers
	authHandler := auth.NewHandler(db)
	questionHandler := questions.NewHandler(repo, recorder)
	dialogueHandler := dialogue.NewHandler(service)
	historyHandler := history.NewHandler(historyStore)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	questionHandler.RegisterRoutes(api)
	dialogueHandler.RegisterRoutes(api)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	historyHandler.RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"model":  llm.ModelName(),
		})
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := database.GetEnv("PORT", "8080")
	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
