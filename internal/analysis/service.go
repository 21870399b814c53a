// Package analysis runs analysis requests against the generator, emulating
// the latency and failure behavior of a remote backend.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/generator"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

// FailureMessage is the text shown to users for any failed analysis.
const FailureMessage = "Failed to analyze repository. Please check your configuration and try again."

var (
	// ErrAnalysisFailed is the only failure an analysis request reports.
	ErrAnalysisFailed = errors.New(FailureMessage)
	// ErrAnalysisInProgress is returned while another analysis is pending.
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	// ErrNoStore is returned by operations that need a store when none is attached.
	ErrNoStore = errors.New("no analysis store configured")
)

// DefaultDelay is the simulated backend latency.
const DefaultDelay = 3 * time.Second

// Policy controls the simulated backend behavior.
type Policy struct {
	Delay time.Duration
	// Inject, when set, runs before generation; a non-nil error fails the request.
	Inject func(model.AnalysisConfig) error
}

// DefaultPolicy waits DefaultDelay and never fails.
func DefaultPolicy() Policy {
	return Policy{Delay: DefaultDelay}
}

// Store records analyses and their lifecycle.
type Store interface {
	CreateAnalysis(id string, cfg model.AnalysisConfig, createdAt time.Time) error
	CompleteAnalysis(id string, result *model.AnalysisResult, completedAt time.Time) error
	FailAnalysis(id string, reason string, completedAt time.Time) error
	GetAnalysisRecord(id string) (*model.AnalysisRecord, error)
	Ping() error
}

type Option func(*Service)

// WithStore records every analysis in store.
func WithStore(store Store) Option {
	return func(s *Service) { s.store = store }
}

// WithIDGenerator replaces the analysis ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// Service is the analysis boundary used by the CLI and the HTTP API.
type Service struct {
	gen    *generator.Generator
	policy Policy
	store  Store
	newID  func() string
	now    func() time.Time

	busy   atomic.Bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a service around gen.
func NewService(gen *generator.Generator, policy Policy, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		gen:    gen,
		policy: policy,
		newID:  uuid.NewString,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs one analysis and returns its ID and result. Only one analysis
// may be pending at a time.
func (s *Service) Analyze(ctx context.Context, cfg model.AnalysisConfig) (string, *model.AnalysisResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", nil, ErrAnalysisInProgress
	}
	defer s.busy.Store(false)

	id := s.newID()
	if err := s.record(id, cfg); err != nil {
		return "", nil, err
	}

	result, err := s.run(ctx, id, cfg)
	s.finish(id, result, err)
	if err != nil {
		return id, nil, err
	}
	return id, result, nil
}

// Start runs an analysis in the background and returns its ID immediately.
// Progress is observed through Status, so a store is required.
func (s *Service) Start(cfg model.AnalysisConfig) (string, error) {
	if s.store == nil {
		return "", ErrNoStore
	}
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrAnalysisInProgress
	}

	id := s.newID()
	if err := s.record(id, cfg); err != nil {
		s.busy.Store(false)
		return "", err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)

		result, err := s.run(s.ctx, id, cfg)
		s.finish(id, result, err)
	}()

	return id, nil
}

// Status reports the lifecycle of a recorded analysis. Running analyses
// report progress as the elapsed share of the simulated delay.
func (s *Service) Status(id string) (*model.AnalysisStatus, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	rec, err := s.store.GetAnalysisRecord(id)
	if err != nil {
		return nil, err
	}

	status := &model.AnalysisStatus{ID: rec.ID, Status: rec.Status, Error: rec.Error, Progress: 100}
	if rec.Status == model.StateRunning {
		status.Progress = s.progress(rec.CreatedAt)
	}
	return status, nil
}

func (s *Service) progress(startedAt time.Time) int {
	if s.policy.Delay <= 0 {
		return 99
	}
	p := int(s.now().Sub(startedAt) * 100 / s.policy.Delay)
	switch {
	case p < 0:
		return 0
	case p > 99:
		return 99
	}
	return p
}

// HealthStatus is the body of a health check
type HealthStatus struct {
	Status             string `json:"status"`
	AnalysisInProgress bool   `json:"analysisInProgress"`
}

// Healthy reports whether the service and its store can serve requests.
func (s *Service) Healthy() (HealthStatus, bool) {
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			log.Warn().Err(err).Msg("Store ping failed")
			return HealthStatus{Status: "degraded", AnalysisInProgress: s.Busy()}, false
		}
	}
	return HealthStatus{Status: "ok", AnalysisInProgress: s.Busy()}, true
}

// Busy reports whether an analysis is pending.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

// Wait blocks until background analyses have finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels background analyses and waits for them to finish.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) record(id string, cfg model.AnalysisConfig) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.CreateAnalysis(id, cfg, s.now()); err != nil {
		log.Error().Err(err).Str("analysis", id).Msg("Failed to record analysis")
		return ErrAnalysisFailed
	}
	return nil
}

func (s *Service) finish(id string, result *model.AnalysisResult, runErr error) {
	if s.store == nil {
		return
	}
	var err error
	if runErr != nil {
		err = s.store.FailAnalysis(id, runErr.Error(), s.now())
	} else {
		err = s.store.CompleteAnalysis(id, result, s.now())
	}
	if err != nil {
		log.Error().Err(err).Str("analysis", id).Msg("Failed to store analysis outcome")
	}
}

// run waits out the simulated latency and generates the result. Every fault,
// including a panic in generation, is reported as ErrAnalysisFailed.
func (s *Service) run(ctx context.Context, id string, cfg model.AnalysisConfig) (result *model.AnalysisResult, err error) {
	logger := log.With().Str("analysis", id).Str("repo", cfg.RepoPath).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("Analysis panicked")
			result, err = nil, ErrAnalysisFailed
		}
	}()

	logger.Info().Dur("delay", s.policy.Delay).Msg("Analysis started")

	if s.policy.Delay > 0 {
		timer := time.NewTimer(s.policy.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			logger.Warn().Err(ctx.Err()).Msg("Analysis cancelled")
			return nil, ErrAnalysisFailed
		case <-timer.C:
		}
	}

	if s.policy.Inject != nil {
		if err := s.policy.Inject(cfg); err != nil {
			logger.Error().Err(err).Msg("Analysis failed")
			return nil, ErrAnalysisFailed
		}
	}

	result, err = s.gen.Generate(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Analysis failed")
		return nil, ErrAnalysisFailed
	}

	logger.Info().Int("findings", len(result.Findings)).Msg("Analysis completed")
	return result, nil
}
