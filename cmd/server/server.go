package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/liamcoop/shiftrules/ingest"
	"github.com/liamcoop/shiftrules/internal/config"
	"github.com/liamcoop/shiftrules/internal/logger"
	"github.com/liamcoop/shiftrules/profiles"
	"github.com/liamcoop/shiftrules/render"
	"github.com/liamcoop/shiftrules/rules"
	"github.com/liamcoop/shiftrules/scopes"
)

type Server struct {
	cfg       *config.Config
	db        *sql.DB
	profiles  profiles.ProfileStore
	scopes    *scopes.Manager
	validator *rules.BatchValidator
	closers   []io.Closer
	router    *chi.Mux
}

// NewServer connects the configured storage and loads every scope rule set.
// Without a database URL profiles and scope rules live in memory.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	var (
		db      *sql.DB
		store   profiles.ProfileStore
		closers []io.Closer
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		closers = append(closers, db)
		store = profiles.NewPostgresProfileStore(db)
	} else {
		logger.Warn("no database configured, profiles and scope rules are kept in memory")
		store = profiles.NewInMemoryProfileStore()
	}

	cacheCfg := profiles.CacheConfig{TTL: cfg.Redis.TTL, Prefix: cfg.Redis.Prefix}
	switch {
	case cfg.Redis.Addr != "":
		redisCfg := profiles.DefaultRedisConfig(cfg.Redis.Addr)
		redisCfg.Password = cfg.Redis.Password
		redisCfg.Database = cfg.Redis.DB

		cache, err := profiles.NewRedisProfileCache(redisCfg, cacheCfg)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		closers = append(closers, cache)
		store = profiles.NewCachedStore(store, cache)
		logger.Info("profile cache enabled", "backend", "redis", "addr", cfg.Redis.Addr)
	case db != nil:
		store = profiles.NewCachedStore(store, profiles.NewInMemoryProfileCache(cacheCfg))
		logger.Info("profile cache enabled", "backend", "memory")
	}

	manager := scopes.NewManager(db)
	logger.Info("loading scope rules")
	if err := manager.LoadAll(ctx); err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("failed to load scope rules: %w", err)
	}

	s := newServer(cfg, db, store, manager)
	s.closers = closers
	return s, nil
}

func newServer(cfg *config.Config, db *sql.DB, store profiles.ProfileStore, manager *scopes.Manager) *Server {
	opts := []rules.Option{
		rules.WithRuleSource(manager),
		rules.WithRestMarker(cfg.Validation.RestMarker),
	}
	if cfg.Validation.Concurrency > 0 {
		opts = append(opts, rules.WithConcurrency(cfg.Validation.Concurrency))
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		profiles:  store,
		scopes:    manager,
		validator: rules.NewBatchValidator(opts...),
	}
	s.setupRoutes()
	return s
}

// Close releases the database and cache connections
func (s *Server) Close() {
	closeAll(s.closers)
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn("failed to close connection", "error", err)
		}
	}
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Health check
	r.Get("/api/v1/health", s.handleHealth)

	// Validation
	r.Post("/api/v1/validate", s.handleValidate)

	// Profile management
	r.Route("/api/v1/profiles", func(r chi.Router) {
		r.Get("/", s.handleListProfiles)
		r.Get("/{employeeId}", s.handleGetProfile)
		r.Put("/{employeeId}", s.handlePutProfile)
		r.Delete("/{employeeId}", s.handleDeleteProfile)
	})

	// Scope rule management
	r.Route("/api/v1/scopes", func(r chi.Router) {
		r.Get("/", s.handleListScopes)

		r.Route("/{locationId}/{departmentId}/rules", func(r chi.Router) {
			r.Get("/", s.handleGetScopeRules)
			r.Put("/", s.handlePutScopeRules)
			r.Delete("/", s.handleDeleteScopeRules)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       "healthy",
		Storage:      "memory",
		ScopesLoaded: len(s.scopes.List()),
		Counters:     logger.Counters(),
	}

	if s.db != nil {
		resp.Storage = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// Validation handler
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Period.Start.IsZero() || req.Period.End.IsZero() {
		respondError(w, http.StatusBadRequest, "period start and end are required", nil)
		return
	}
	if req.Period.End.Before(req.Period.Start) {
		respondError(w, http.StatusBadRequest, "period ends before it starts", nil)
		return
	}

	var found map[int]rules.EmployeeProfile
	if req.Profiles != nil {
		found = ingest.ProfileMap(req.Profiles)
	} else {
		var err error
		found, err = profiles.Lookup(r.Context(), s.profiles, req.Events)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to look up profiles", err)
			return
		}
	}

	startTime := time.Now()
	outcomes, err := s.validator.ValidateAll(r.Context(), req.Period, req.Events, found)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "validation abandoned", err)
		return
	}
	evaluationTime := time.Since(startTime)

	summary := render.Summarize(outcomes)
	logger.RecordBatch(evaluationTime, summary.Levels())

	lang := req.Lang
	if lang == "" {
		lang = s.cfg.Validation.Language
	}
	printer := render.NewPrinter(lang)

	batchID := uuid.NewString()
	logger.Info("batch validated",
		"batch_id", batchID,
		"request_id", middleware.GetReqID(r.Context()),
		"events", len(req.Events),
		"employees", summary.Employees,
		"errors", summary.Error,
		"fatal", summary.Fatal,
		"elapsed", evaluationTime.String(),
	)

	respondJSON(w, http.StatusOK, ValidateResponse{
		BatchID:        batchID,
		Language:       printer.Language(),
		Outcomes:       printer.Views(outcomes),
		Summary:        summary,
		EvaluationTime: evaluationTime.String(),
	})
}

// List profiles handler
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.profiles.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list profiles", err)
		return
	}

	respondJSON(w, http.StatusOK, ProfilesListResponse{Profiles: list})
}

// Get profile handler
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeParam(w, r)
	if !ok {
		return
	}

	p, err := s.profiles.Get(r.Context(), employeeID)
	if errors.Is(err, profiles.ErrProfileNotFound) {
		respondError(w, http.StatusNotFound, "profile not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get profile", err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// Put profile handler; the path id wins over an absent body id
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeParam(w, r)
	if !ok {
		return
	}

	var p rules.EmployeeProfile
	if !s.decode(w, r, &p) {
		return
	}

	if p.EmployeeID != 0 && p.EmployeeID != employeeID {
		respondError(w, http.StatusBadRequest, "employeeId in body does not match path", nil)
		return
	}
	p.EmployeeID = employeeID

	if err := s.profiles.Put(r.Context(), &p); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store profile", err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// Delete profile handler
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeParam(w, r)
	if !ok {
		return
	}

	err := s.profiles.Delete(r.Context(), employeeID)
	if errors.Is(err, profiles.ErrProfileNotFound) {
		respondError(w, http.StatusNotFound, "profile not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete profile", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List scopes handler
func (s *Server) handleListScopes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ScopesListResponse{Scopes: s.scopes.List()})
}

// Get scope rules handler
func (s *Server) handleGetScopeRules(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}

	defs, err := s.scopes.Get(scope)
	if err != nil {
		respondError(w, http.StatusNotFound, "scope not found", err)
		return
	}

	respondJSON(w, http.StatusOK, ScopeRulesResponse{Scope: scope, Rules: defs})
}

// Put scope rules handler (running batches keep their rule set)
func (s *Server) handlePutScopeRules(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}

	var req ScopeRulesRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.scopes.SetRules(r.Context(), scope, req.Rules)
	if errors.Is(err, scopes.ErrInvalidDefinition) {
		respondError(w, http.StatusBadRequest, "invalid rule set", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update scope rules", err)
		return
	}

	defs, _ := s.scopes.Get(scope)
	respondJSON(w, http.StatusOK, ScopeRulesResponse{Scope: scope, Rules: defs})
}

// Delete scope rules handler
func (s *Server) handleDeleteScopeRules(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}

	err := s.scopes.Delete(r.Context(), scope)
	if errors.Is(err, scopes.ErrScopeNotFound) {
		respondError(w, http.StatusNotFound, "scope not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete scope rules", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

// decode reads a JSON body bounded by server.max_body_bytes, answering the
// request itself on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.cfg.Server.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func employeeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "employeeId")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid employee id", fmt.Errorf("employeeId %q", raw))
		return 0, false
	}
	return id, true
}

func scopeParam(w http.ResponseWriter, r *http.Request) (scopes.Scope, bool) {
	loc, errLoc := strconv.Atoi(chi.URLParam(r, "locationId"))
	dep, errDep := strconv.Atoi(chi.URLParam(r, "departmentId"))
	if err := errors.Join(errLoc, errDep); err != nil {
		respondError(w, http.StatusBadRequest, "invalid scope", err)
		return scopes.Scope{}, false
	}

	scope := scopes.Scope{LocationID: loc, DepartmentID: dep}
	if err := scopes.ValidateScope(scope); err != nil {
		respondError(w, http.StatusBadRequest, "invalid scope", err)
		return scopes.Scope{}, false
	}
	return scope, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}

	switch {
	case status >= 500:
		logger.ErrorHttp5xx()
		logger.Error(message, "status", status, "error", err)
	case status >= 400:
		logger.WarnHttp4xx()
	}

	respondJSON(w, status, response)
}
