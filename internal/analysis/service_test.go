package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/generator"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*model.AnalysisRecord
	results map[string]*model.AnalysisResult
	pingErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[string]*model.AnalysisRecord),
		results: make(map[string]*model.AnalysisResult),
	}
}

func (m *memoryStore) CreateAnalysis(id string, cfg model.AnalysisConfig, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = &model.AnalysisRecord{
		ID:             id,
		RepoPath:       cfg.RepoPath,
		RepositoryName: model.RepositoryName(cfg.RepoPath),
		Status:         model.StateRunning,
		CreatedAt:      createdAt,
	}
	return nil
}

func (m *memoryStore) CompleteAnalysis(id string, result *model.AnalysisResult, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("unknown analysis %s", id)
	}
	rec.Status = model.StateCompleted
	rec.TotalFindings = result.Summary.TotalFindings
	rec.CompletedAt = &completedAt
	m.results[id] = result
	return nil
}

func (m *memoryStore) FailAnalysis(id string, reason string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("unknown analysis %s", id)
	}
	rec.Status = model.StateFailed
	rec.Error = reason
	rec.CompletedAt = &completedAt
	return nil
}

func (m *memoryStore) GetAnalysisRecord(id string) (*model.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("unknown analysis %s", id)
	}
	cp := *rec
	return &cp, nil
}

func (m *memoryStore) Ping() error {
	return m.pingErr
}

func widgetConfig() model.AnalysisConfig {
	cfg := model.DefaultConfig()
	cfg.RepoPath = "https://github.com/acme/widget"
	return cfg
}

func TestAnalyze(t *testing.T) {
	svc := NewService(generator.NewSeeded(1), Policy{})

	id, result, err := svc.Analyze(context.Background(), widgetConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NotNil(t, result)
	assert.Equal(t, "widget", result.Summary.RepositoryName)
	assert.False(t, svc.Busy())
}

func TestAnalyzeFailureInjection(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(generator.NewSeeded(1), Policy{
		Inject: func(model.AnalysisConfig) error { return errors.New("backend exploded") },
	}, WithStore(store), WithIDGenerator(func() string { return "run-1" }))

	id, result, err := svc.Analyze(context.Background(), widgetConfig())
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, FailureMessage, err.Error())

	status, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, status.Status)
	assert.Equal(t, FailureMessage, status.Error)
	assert.Equal(t, 100, status.Progress)
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	svc := NewService(generator.NewSeeded(1), Policy{
		Inject: func(model.AnalysisConfig) error { panic("boom") },
	})

	_, result, err := svc.Analyze(context.Background(), widgetConfig())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.False(t, svc.Busy())
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	svc := NewService(generator.NewSeeded(1), Policy{Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Analyze(ctx, widgetConfig())
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestAnalyzeWaitsForDelay(t *testing.T) {
	svc := NewService(generator.NewSeeded(1), Policy{Delay: 20 * time.Millisecond})

	start := time.Now()
	_, _, err := svc.Analyze(context.Background(), widgetConfig())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestAnalyzeRejectsConcurrentRequest(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	svc := NewService(generator.NewSeeded(1), Policy{
		Inject: func(model.AnalysisConfig) error {
			close(entered)
			<-release
			return nil
		},
	})

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Analyze(context.Background(), widgetConfig())
		done <- err
	}()

	<-entered
	_, _, err := svc.Analyze(context.Background(), widgetConfig())
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestAnalyzeRecordsCompletion(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(generator.NewSeeded(2), Policy{}, WithStore(store))

	id, result, err := svc.Analyze(context.Background(), widgetConfig())
	require.NoError(t, err)

	rec, err := store.GetAnalysisRecord(id)
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, rec.Status)
	assert.Equal(t, result.Summary.TotalFindings, rec.TotalFindings)
	assert.Same(t, result, store.results[id])
}

func TestStartRunsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemoryStore()
	svc := NewService(generator.NewSeeded(3), Policy{}, WithStore(store))

	id, err := svc.Start(widgetConfig())
	require.NoError(t, err)
	require.NoError(t, svc.Wait(context.Background()))

	status, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.False(t, svc.Busy())
}

func TestStartRequiresStore(t *testing.T) {
	svc := NewService(generator.NewSeeded(3), Policy{})
	_, err := svc.Start(widgetConfig())
	assert.ErrorIs(t, err, ErrNoStore)

	_, err = svc.Status("missing")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestCloseCancelsBackgroundAnalysis(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemoryStore()
	svc := NewService(generator.NewSeeded(4), Policy{Delay: time.Hour}, WithStore(store))

	id, err := svc.Start(widgetConfig())
	require.NoError(t, err)

	_, err = svc.Start(widgetConfig())
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	svc.Close()

	status, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, status.Status)
}

func TestStatusProgress(t *testing.T) {
	store := newMemoryStore()
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := NewService(generator.NewSeeded(5), Policy{Delay: 4 * time.Second}, WithStore(store))
	svc.now = func() time.Time { return start.Add(time.Second) }

	require.NoError(t, store.CreateAnalysis("a1", widgetConfig(), start))

	status, err := svc.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, model.StateRunning, status.Status)
	assert.Equal(t, 25, status.Progress)

	svc.now = func() time.Time { return start.Add(time.Minute) }
	status, err = svc.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, 99, status.Progress)
}

func TestHealthy(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(generator.NewSeeded(6), Policy{}, WithStore(store))

	health, ok := svc.Healthy()
	assert.True(t, ok)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.AnalysisInProgress)

	store.pingErr = errors.New("disk gone")
	health, ok = svc.Healthy()
	assert.False(t, ok)
	assert.Equal(t, "degraded", health.Status)
}

func TestTwoCallsAreIndependent(t *testing.T) {
	svc := NewService(generator.New(), Policy{})

	_, first, err := svc.Analyze(context.Background(), widgetConfig())
	require.NoError(t, err)
	_, second, err := svc.Analyze(context.Background(), widgetConfig())
	require.NoError(t, err)

	assert.NotEqual(t, first.RawData.JSON, second.RawData.JSON)
}

func TestWaitStopsAtDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := NewService(generator.NewSeeded(12), Policy{Delay: time.Hour}, WithStore(newMemoryStore()))
	_, err := svc.Start(widgetConfig())
	require.NoError(t, err)

	health, _ := svc.Healthy()
	assert.True(t, health.AnalysisInProgress)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)

	svc.Close()
	require.NoError(t, svc.Wait(context.Background()))
	assert.False(t, svc.Busy())
}
