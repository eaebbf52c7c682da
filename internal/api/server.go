// Package api serves the auction machine, its event stream and the devnet
// collaborators over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"Dauction/internal/auction"
	"Dauction/internal/devnet"
	"Dauction/internal/events"
	"Dauction/internal/logger"
	"Dauction/internal/pricing"
	"Dauction/internal/snapshot"
	"Dauction/internal/storage"
)

const (
	// maxBodySize bounds request bodies.
	maxBodySize = 64 << 10

	// callerHeader carries the caller identity of a mutating request.
	callerHeader = "X-Caller"
)

// EventLog replays committed events.
type EventLog interface {
	Since(from uint64, limit int) ([]events.Event, error)
	Next() uint64
}

// Devnet exposes the in-process collaborators for minting and approvals.
type Devnet struct {
	Registry *devnet.Registry
	Oracle   *pricing.StaticOracle
}

// Config wires the server to the node's components.
type Config struct {
	Addr        string
	CORSOrigins []string
	Machine     *auction.Machine
	Events      EventLog
	Bus         *events.Bus
	Storage     *storage.Storage // Storage backs GET /snapshot; nil disables it
	Devnet      *Devnet          // Devnet enables the /devnet routes when set
}

// Server is the HTTP API server.
type Server struct {
	cfg      Config
	router   chi.Router
	upgrader *websocket.Upgrader
	server   *http.Server
}

// New creates the server and its routes.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg}
	s.router = s.routes()

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.upgrader = newUpgrader(origins)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", callerHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/auctions", func(r chi.Router) {
		r.Get("/", s.handleListAuctions)
		r.Post("/", s.handleCreateAuction)

		r.Route("/{contract}/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAuction)
			r.Get("/status", s.handleAuctionStatus)
			r.Get("/bidders", s.handleBidders)
			r.Get("/bids/{bidder}", s.handleGetBid)
			r.Post("/bids", s.handleCreateBid)
			r.Post("/reveal", s.handleRevealBid)
			r.Post("/settle", s.handleSettle)
		})
	})

	r.Get("/tokens", s.handleTokens)
	r.Get("/tokens/{token}/feed", s.handleTokenFeed)
	r.Get("/prices/{feed}", s.handleLatestPrice)
	r.Get("/prices/{feed}/base", s.handleBasePrice)

	r.Get("/events", s.handleEvents)
	r.Get("/events/ws", s.handleEventStream)

	if s.cfg.Storage != nil {
		r.Get("/snapshot", s.handleSnapshot)
	}

	if s.cfg.Devnet != nil {
		r.Route("/devnet", s.devnetRoutes)
	}

	return r
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.cfg.Addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			logger.Timed(start),
		)
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStats handles GET /stats requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.cfg.Machine.TotalAuctions()
	if err != nil {
		writeFailure(w, err)
		return
	}

	params := s.cfg.Machine.Params()
	stats := map[string]any{
		"totalAuctions": total,
		"escrow":        params.Self,
		"operator":      params.Operator,
	}

	if s.cfg.Events != nil {
		stats["nextEventSeq"] = s.cfg.Events.Next()
	}

	if s.cfg.Bus != nil {
		stats["subscribers"] = s.cfg.Bus.Subscribers()
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, info, err := snapshot.Create(s.cfg.Storage)
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("X-Snapshot-Entries", itoa(uint64(info.Entries)))
	w.Header().Set("X-Snapshot-Checksum", hexString(info.Checksum[:]))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, class auction.Class, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"class": string(class),
	})
}

// writeFailure maps an operation error to its class and HTTP status.
func writeFailure(w http.ResponseWriter, err error) {
	class := auction.Classify(err)
	status := statusFor(class)

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}

	writeError(w, status, class, err.Error())
}

func statusFor(class auction.Class) int {
	switch class {
	case auction.ClassAuthorization:
		return http.StatusForbidden
	case auction.ClassTemporal:
		return http.StatusConflict
	case auction.ClassInput:
		return http.StatusBadRequest
	case auction.ClassVerification:
		return http.StatusUnprocessableEntity
	case auction.ClassSolvency:
		return http.StatusPaymentRequired
	case auction.ClassNotFound:
		return http.StatusNotFound
	case auction.ClassOracle:
		return http.StatusServiceUnavailable
	case auction.ClassTransfer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
