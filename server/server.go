package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/xhad/stocknews/internal/models"
)

// Runner executes one daily-news pipeline pass.
type Runner interface {
	Run(ctx context.Context, opts models.WorkflowOptions) models.WorkflowResult
}

// ExecutionLister reads back recent workflow runs for the status endpoint.
type ExecutionLister interface {
	Recent(ctx context.Context, limit int) ([]models.WorkflowExecution, error)
}

// Server exposes the workflow trigger over HTTP and fires it on a cron
// schedule.
type Server struct {
	runner       Runner
	executions   ExecutionLister
	port         int
	cronSchedule string
	logger       *log.Logger
	cron         *cron.Cron
}

type Config struct {
	Runner       Runner
	Executions   ExecutionLister
	Port         int
	CronSchedule string
	Logger       *log.Logger
}

func New(config Config) *Server {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Server{
		runner:       config.Runner,
		executions:   config.Executions,
		port:         config.Port,
		cronSchedule: config.CronSchedule,
		logger:       config.Logger,
	}
}

// Handler builds the HTTP mux. Exposed separately so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/daily-news", s.handleDailyNews)
	mux.HandleFunc("/api/executions", s.handleExecutions)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins the cron schedule (if configured) and serves HTTP.
// Blocks until the listener fails.
func (s *Server) Start() error {
	if s.cronSchedule != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(s.cronSchedule, func() {
			s.logger.Info().Str("schedule", s.cronSchedule).Msg("cron trigger firing")
			result := s.runner.Run(context.Background(), models.WorkflowOptions{SendToAll: true})
			if !result.Success {
				s.logger.Error().Str("message", result.Message).Str("error", result.Error).
					Msg("scheduled run failed")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron schedule %q: %v", s.cronSchedule, err)
		}
		s.cron.Start()
		s.logger.Info().Str("schedule", s.cronSchedule).Msg("cron schedule active")
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}
	return httpServer.ListenAndServe()
}

// Stop halts the cron scheduler.
func (s *Server) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Server) handleDailyNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var opts models.WorkflowOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.logger.Info().Bool("send_to_all", opts.SendToAll).Str("individual", opts.IndividualEmail).
		Msg("workflow triggered over HTTP")

	result := s.runner.Run(r.Context(), opts)

	w.Header().Set("Content-Type", "application/json")
	if !result.Success {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.executions == nil {
		http.Error(w, "execution history unavailable", http.StatusNotFound)
		return
	}

	execs, err := s.executions.Recent(r.Context(), 20)
	if err != nil {
		http.Error(w, "failed to load executions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(execs)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
