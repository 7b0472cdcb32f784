package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/ASCENT/internal/config"
	"github.com/copyleftdev/ASCENT/internal/errors"
	"github.com/copyleftdev/ASCENT/internal/logging"
	"github.com/copyleftdev/ASCENT/internal/search"
	"github.com/copyleftdev/ASCENT/internal/search/bench"
	"github.com/copyleftdev/ASCENT/internal/search/engine"
)

// Logger defines the logging interface used by the server.
// This allows us to be flexible with our logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// SearchState tracks one search run through its lifecycle. It is guarded by
// the server's mutex and kept queryable after the run finishes.
type SearchState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Progress    search.Progress
	Result      *search.RunResult
	Engine      *engine.Engine
	Err         string
	LastUpdated time.Time
}

// Server exposes the search engine over HTTP and JSON-RPC. It manages run
// state and provides endpoints to start, monitor and cancel runs.
type Server struct {
	cfg       *config.Config
	logger    Logger
	zapLogger *zap.Logger
	metrics   *Metrics

	searches   map[string]*SearchState
	searchesMu sync.RWMutex
}

// NewServer creates a new server instance. The engine logs through a zap
// bridge onto the same structured logger the server uses.
func NewServer(cfg *config.Config, logger *logging.Logger, reg prometheus.Registerer) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		zapLogger: logging.NewZapLogger(logger),
		metrics:   NewMetrics(reg),
		searches:  make(map[string]*SearchState),
	}
}

// RegisterRoutes mounts the API onto the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/search/{id}", s.handleStatus)
		r.Delete("/search/{id}", s.handleCancel)
		r.Get("/objectives", s.handleObjectives)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// searchRequest is the payload for starting a run.
type searchRequest struct {
	Parameters []search.ParameterDefinition `json:"parameters"`
	Config     *search.RunConfig            `json:"config,omitempty"`
	Objective  string                       `json:"objective"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, r, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, r, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "search.start":
		result, err = s.rpcSearchStart(request.Params)
	case "search.status":
		result, err = s.rpcSearchStatus(request.Params)
	case "search.cancel":
		err = s.rpcSearchCancel(request.Params)
	default:
		s.respondWithError(w, r, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, r, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) rpcSearchStart(params []json.RawMessage) (interface{}, error) {
	var req searchRequest
	if err := unmarshalParams(params, &req); err != nil {
		return nil, err
	}
	return s.startSearch(req)
}

func (s *Server) rpcSearchStatus(params []json.RawMessage) (interface{}, error) {
	var ref struct {
		SearchID string `json:"search_id"`
	}
	if err := unmarshalParams(params, &ref); err != nil {
		return nil, err
	}
	return s.searchStatus(ref.SearchID)
}

func (s *Server) rpcSearchCancel(params []json.RawMessage) error {
	var ref struct {
		SearchID string `json:"search_id"`
	}
	if err := unmarshalParams(params, &ref); err != nil {
		return err
	}
	return s.cancelSearch(ref.SearchID)
}

// unmarshalParams decodes the first positional JSON-RPC parameter into v.
func unmarshalParams(params []json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return errors.New("missing required parameters")
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return errors.Wrap(err, "invalid parameter format").WithOperation("unmarshal_params")
	}
	return nil
}

// startSearch validates a request and launches the run in a goroutine.
func (s *Server) startSearch(req searchRequest) (interface{}, error) {
	if len(req.Parameters) == 0 {
		return nil, errors.New("parameter definitions are required")
	}

	evaluator, ok := bench.Evaluator(req.Objective)
	if !ok {
		return nil, errors.Errorf("unknown objective %q, available: %v", req.Objective, bench.Names())
	}

	runCfg := s.defaultRunConfig()
	if req.Config != nil {
		runCfg = *req.Config
	}

	id := fmt.Sprintf("run_%d", time.Now().UnixNano())

	eng := engine.New(engine.Options{
		Logger: s.zapLogger.With(zap.String("run_id", id)),
		Seed:   s.cfg.Search.Seed,
	})

	state := &SearchState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		Engine:      eng,
		LastUpdated: time.Now(),
	}

	eng.SetProgressObserver(func(p search.Progress) {
		s.metrics.Evaluations.Inc()
		s.metrics.BestScore.Set(p.BestScore)

		s.searchesMu.Lock()
		state.Progress = p
		state.LastUpdated = time.Now()
		s.searchesMu.Unlock()
	})

	s.searchesMu.Lock()
	s.searches[id] = state
	s.searchesMu.Unlock()

	s.metrics.RunsStarted.Inc()
	go s.runSearch(state, req.Parameters, runCfg, evaluator)

	return map[string]interface{}{
		"search_id": id,
		"status":    "pending",
	}, nil
}

// runSearch executes the run and records its terminal state.
func (s *Server) runSearch(state *SearchState, defs []search.ParameterDefinition, cfg search.RunConfig, evaluator search.Evaluator) {
	s.searchesMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.searchesMu.Unlock()

	result, err := state.Engine.Optimize(context.Background(), defs, cfg, evaluator)

	s.searchesMu.Lock()
	defer s.searchesMu.Unlock()

	switch {
	case err != nil:
		wrapped := errors.Wrap(err, "search run failed").WithOperation("optimize")
		fields := map[string]interface{}{
			"search_id": state.ID,
			"error":     wrapped.Error(),
			"stack":     wrapped.StackTrace(),
		}
		if serr, ok := search.IsSearchError(err); ok {
			fields["component"] = serr.Component
		}
		s.logger.Error("Search failed", fields)
		state.Status = "failed"
		state.Err = err.Error()
	case state.Engine.State() == engine.StateCancelled:
		state.Status = "cancelled"
		state.Result = result
	default:
		state.Status = "completed"
		state.Result = result
	}
	s.metrics.RunsFinished.WithLabelValues(state.Status).Inc()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
}

// searchStatus returns the current status and results of a run.
func (s *Server) searchStatus(id string) (interface{}, error) {
	if id == "" {
		return nil, errors.New("search_id is required")
	}

	s.searchesMu.RLock()
	defer s.searchesMu.RUnlock()

	state, exists := s.searches[id]
	if !exists {
		return nil, errors.New("search not found")
	}

	response := map[string]interface{}{
		"status":      state.Status,
		"progress":    state.Progress,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Result != nil {
		response["result"] = state.Result
	}
	if state.Err != "" {
		response["error"] = state.Err
	}

	return response, nil
}

// cancelSearch requests cancellation of a running search. The engine halts
// at its next yield point; any in-flight evaluation still completes.
func (s *Server) cancelSearch(id string) error {
	if id == "" {
		return errors.New("search_id is required")
	}

	s.searchesMu.Lock()
	defer s.searchesMu.Unlock()

	state, exists := s.searches[id]
	if !exists {
		return errors.New("search not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return errors.Errorf("cannot cancel search with status: %s", state.Status)
	}

	state.Engine.Stop()
	state.Status = "cancelled"
	now := time.Now()
	state.LastUpdated = now

	s.logger.Info("Search cancelled", map[string]interface{}{
		"search_id": id,
	})

	return nil
}

// defaultRunConfig builds the run configuration from server defaults.
func (s *Server) defaultRunConfig() search.RunConfig {
	depth, err := search.ParseDepth(s.cfg.Search.Depth)
	if err != nil {
		depth = search.DepthStandard
	}
	return search.RunConfig{
		MaxIterations: s.cfg.Search.MaxIterations,
		Depth:         depth,
		Parallel:      s.cfg.Search.Parallel,
	}
}

// respondWithError sends a JSON-RPC 2.0 error response, logged through the
// request-scoped logger so the entry carries the request id.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, id interface{}) {
	logging.FromContext(r.Context()).Error("Request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close stops all running searches.
func (s *Server) Close() error {
	s.searchesMu.Lock()
	defer s.searchesMu.Unlock()

	for _, state := range s.searches {
		if state.Engine != nil {
			state.Engine.Stop()
		}
	}
	return nil
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startSearch(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles GET /api/v1/search/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing search ID", http.StatusBadRequest)
		return
	}

	result, err := s.searchStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleCancel handles DELETE /api/v1/search/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing search ID", http.StatusBadRequest)
		return
	}

	err := s.cancelSearch(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

// handleObjectives handles GET /api/v1/objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"objectives": bench.Names(),
	})
}
