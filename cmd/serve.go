package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/altozano-realty/intake-cli/internal/config"
	"github.com/altozano-realty/intake-cli/internal/enrich"
	"github.com/altozano-realty/intake-cli/internal/intake"
	"github.com/altozano-realty/intake-cli/internal/model"
	"github.com/altozano-realty/intake-cli/internal/notify"
	"github.com/altozano-realty/intake-cli/internal/ratelimit"
	"github.com/altozano-realty/intake-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake HTTP server",
	Long:  "Serves the public lead and visit endpoints plus the operator API for pipeline updates and geocode runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		dispatcher := notify.NewDispatcher(notify.NewWebhook(cfg.Notifier), 0)
		gate := ratelimit.NewGate(
			time.Duration(cfg.RateLimit.WindowSecs)*time.Second,
			cfg.RateLimit.MaxRequests,
		)

		api := &apiServer{
			store:         st,
			service:       intake.NewService(st, gate, dispatcher),
			job:           enrich.NewJob(st, initGeocoder(), cfg.Geocoder),
			operatorToken: cfg.Server.OperatorToken,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(api, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return dispatcher.Run(gctx)
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiServer carries the dependencies the HTTP handlers need.
type apiServer struct {
	store         store.Store
	service       *intake.Service
	job           *enrich.Job
	operatorToken string
}

// newRouter mounts the public intake routes and the token-guarded operator
// routes on a chi router.
func newRouter(api *apiServer, serverCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: serverCfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", api.handleHealth)

	r.Post("/api/leads", api.handleSubmitLead)
	r.Post("/api/visits", api.handleSubmitVisit)

	r.Group(func(r chi.Router) {
		r.Use(api.requireOperator)
		r.Get("/api/leads", api.handleListLeads)
		r.Patch("/api/leads/{id}", api.handleUpdateLeadStage)
		r.Get("/api/visits", api.handleListVisits)
		r.Patch("/api/visits/{id}", api.handleUpdateVisit)
		r.Delete("/api/visits/{id}", api.handleDeleteVisit)
		r.Post("/api/admin/visits", api.handleCreateOperatorVisit)
		r.Post("/api/admin/geocode", api.handleGeocodeRun)
	})

	return r
}

// requireOperator rejects requests that do not carry the configured bearer
// token. With no token configured the operator API is disabled entirely.
func (s *apiServer) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.operatorToken == "" {
			writeError(w, http.StatusForbidden, "operator API disabled")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token != s.operatorToken {
			writeError(w, http.StatusUnauthorized, "invalid operator token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Error("health check store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req intake.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.service.SubmitLead(r.Context(), req, ratelimit.ClientID(r)); err != nil {
		writeIntakeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *apiServer) handleSubmitVisit(w http.ResponseWriter, r *http.Request) {
	var req intake.VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.service.SubmitVisit(r.Context(), req, ratelimit.ClientID(r)); err != nil {
		writeIntakeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *apiServer) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := model.LeadFilter{
		Stage:  model.PipelineStage(r.URL.Query().Get("stage")),
		Source: r.URL.Query().Get("source"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

func (s *apiServer) handleUpdateLeadStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stage string `json:"pipeline_stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stage, err := model.ParsePipelineStage(req.Stage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateLeadStage(r.Context(), chi.URLParam(r, "id"), stage); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *apiServer) handleListVisits(w http.ResponseWriter, r *http.Request) {
	filter := model.VisitFilter{
		Status:     model.VisitStatus(r.URL.Query().Get("status")),
		PropertyID: r.URL.Query().Get("property_id"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}

	visits, err := s.store.ListVisits(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

func (s *apiServer) handleUpdateVisit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status        *string  `json:"status"`
		AgentNotes    *string  `json:"agent_notes"`
		InterestLevel *int     `json:"interest_level"`
		FeedbackTags  []string `json:"feedback_tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := model.VisitPatch{
		AgentNotes:    req.AgentNotes,
		InterestLevel: req.InterestLevel,
		FeedbackTags:  req.FeedbackTags,
	}
	if req.Status != nil {
		status, err := model.ParseVisitStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Status = &status
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "empty patch")
		return
	}

	if err := s.store.UpdateVisit(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *apiServer) handleDeleteVisit(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVisit(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleCreateOperatorVisit(w http.ResponseWriter, r *http.Request) {
	var req intake.VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	visit, err := s.service.CreateOperatorVisit(r.Context(), req)
	if err != nil {
		writeIntakeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

func (s *apiServer) handleGeocodeRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.job.Run(r.Context())
	if err != nil {
		zap.L().Error("geocode run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "geocode run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resolved":  summary.Resolved,
		"failed":    summary.Failed,
		"remaining": summary.Remaining,
		"message":   fmt.Sprintf("resolved %d, failed %d, %d remaining", summary.Resolved, summary.Failed, summary.Remaining),
	})
}

// writeIntakeError maps intake service errors onto HTTP responses. Anything
// unrecognized becomes a generic 500 so internals never leak to the public
// form.
func writeIntakeError(w http.ResponseWriter, err error) {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   verr.Error(),
			"missing": verr.Missing,
		})
		return
	}

	var rlerr *intake.RateLimitError
	if errors.As(err, &rlerr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rlerr.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	zap.L().Error("intake request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("store operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
