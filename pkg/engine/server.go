// Package engine wires the capture corpus, matcher, cache, chaos, diff
// tracker and generator into one HTTP server, and exposes the admin surface
// that controls them at runtime.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/ai"
	"github.com/getmockd/replayd/pkg/cache"
	"github.com/getmockd/replayd/pkg/capture"
	"github.com/getmockd/replayd/pkg/chaos"
	"github.com/getmockd/replayd/pkg/config"
	"github.com/getmockd/replayd/pkg/diff"
	"github.com/getmockd/replayd/pkg/generator"
	"github.com/getmockd/replayd/pkg/logging"
	"github.com/getmockd/replayd/pkg/metrics"
	"github.com/getmockd/replayd/pkg/recording"
)

// State is the server lifecycle phase.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// lifecycle errors.
var (
	ErrAlreadyRunning = errors.New("server is already running")
	ErrNotRunning     = errors.New("server is not running")
)

// Server replays a capture corpus over HTTP.
type Server struct {
	mu      sync.RWMutex
	state   State
	cfg     *config.ServerConfig
	store   *capture.Store
	matcher *matching.Matcher
	cache   *cache.Cache

	chaos      *chaos.Controller
	diffs      *diff.Tracker
	recordings *recording.Log
	metrics    *metrics.Collector
	gen        *generator.Generator
	collab     ai.Collaborator
	live       *liveFeed
	log        *slog.Logger

	httpServer   *http.Server
	listenAddr   string
	group        *errgroup.Group
	mode         generator.Mode
	transformers []generator.Transformer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCollaborator attaches the model collaborator used by semantic
// matching and the ai/intelligent generation modes.
func WithCollaborator(c ai.Collaborator) ServerOption {
	return func(s *Server) { s.collab = c }
}

// WithGenerationMode sets the response generation mode. Default is static.
func WithGenerationMode(mode generator.Mode) ServerOption {
	return func(s *Server) { s.mode = mode }
}

// WithTransformers sets the transformer chain used by transform mode.
func WithTransformers(ts ...generator.Transformer) ServerOption {
	return func(s *Server) { s.transformers = ts }
}

// NewServer creates a server over the given corpus. A nil store starts with
// an empty corpus that can be loaded through the admin surface.
func NewServer(cfg *config.ServerConfig, store *capture.Store, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if store == nil {
		store = capture.NewStore(nil)
	}

	s := &Server{
		state:      StateStopped,
		cfg:        cfg,
		store:      store,
		chaos:      chaos.NewController(cfg.Chaos),
		diffs:      diff.NewTracker(cfg.DiffCapacity, cfg.DiffThreshold, cfg.AcceptThreshold),
		recordings: recording.NewLog(cfg.RecordingCapacity),
		metrics:    metrics.NewCollector(),
		live:       newLiveFeed(liveFeedCapacity),
		log:        logging.Nop(),
		mode:       generator.ModeStatic,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.matcher = matching.NewMatcher(store,
		matching.WithCollaborator(s.collab),
		matching.WithLogger(s.log),
	)
	s.cache = cache.New(cfg.CacheCapacity)
	s.gen = generator.New(
		generator.WithCollaborator(s.collab),
		generator.WithTransformers(s.transformers...),
		generator.WithLogger(s.log),
	)
	return s
}

// Handler returns the root handler: the admin surface under /__admin__ when
// enabled, and the replay pipeline for everything else.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.AdminEnabled {
		mux.Handle("/__admin__/", http.StripPrefix("/__admin__", s.adminMux()))
	}
	mux.HandleFunc("/", s.handleReplay)
	return mux
}

// Start binds the listener and begins serving. It returns once the listener
// is accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = StateStarting

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.state = StateStopped
		s.mu.Unlock()
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.listenAddr = listener.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.group = &errgroup.Group{}
	srv := s.httpServer
	s.group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.state = StateRunning
	s.mu.Unlock()

	s.log.Info("server started",
		"addr", s.listenAddr,
		"captures", s.store.Len(),
		"strategy", s.cfg.Strategy,
	)
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = StateStopping
	srv := s.httpServer
	group := s.group
	s.mu.Unlock()

	shutdownErr := srv.Shutdown(ctx)
	serveErr := group.Wait()
	s.live.closeAll()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.log.Info("server stopped")
	if shutdownErr != nil {
		return shutdownErr
	}
	return serveErr
}

// State returns the current lifecycle phase.
func (s *Server) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Addr returns the bound listen address, valid while running.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listenAddr
}

// ReplaceCorpus swaps the capture corpus, rebuilds the matcher, and clears
// every cached match.
func (s *Server) ReplaceCorpus(store *capture.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	s.matcher = matching.NewMatcher(store,
		matching.WithCollaborator(s.collab),
		matching.WithLogger(s.log),
	)
	s.cache.Clear()
	s.log.Info("capture corpus replaced", "captures", store.Len())
}

// matchOptions derives the per-request matching policy from the live
// configuration.
func (s *Server) matchOptions() matching.Options {
	strategy, err := matching.ParseStrategy(s.cfg.Strategy)
	if err != nil {
		strategy = matching.StrategyFuzzy
	}
	weights := s.cfg.Weights
	if weights == (matching.Weights{}) {
		weights = matching.DefaultWeights()
	}
	return matching.Options{
		Strategy:        strategy,
		AcceptThreshold: s.cfg.AcceptThreshold,
		Weights:         weights,
		SemanticTimeout: s.cfg.SemanticTimeout(),
	}
}
