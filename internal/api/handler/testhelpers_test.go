package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/vidgrab/internal/classifier"
	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/retry"
	"github.com/iconidentify/vidgrab/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEventService returns an in-memory event service closed at cleanup.
func newTestEventService(t *testing.T) *service.EventService {
	t.Helper()
	svc, err := service.NewEventService(config.EventsConfig{RingBufferSize: 50}, testLogger())
	if err != nil {
		t.Fatalf("NewEventService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// mockMediaService is a test implementation of MediaService.
type mockMediaService struct {
	mu sync.Mutex

	classification classifier.Classification

	catalog   *domain.Catalog
	listErr   error
	listInput string

	ticket      *service.Ticket
	downloadErr error
	progress    []domain.Progress
	downloadReq service.DownloadRequest

	results  map[string]*domain.DownloadResult
	stats    *service.MediaStats
	statsErr error
}

func newMockMediaService() *mockMediaService {
	return &mockMediaService{
		classification: classifier.Classification{Valid: true, Platform: domain.PlatformYouTube},
		catalog: &domain.Catalog{
			Title: "Sample",
			Formats: []domain.FormatDescriptor{
				{ID: "137", Label: "1080p - 30fps - mp4"},
				{ID: domain.AudioFormatID, Label: "Audio Only (MP3)"},
			},
		},
		ticket:  &service.Ticket{Token: "tok-1", Filename: "Sample.mp4", Size: 5},
		results: make(map[string]*domain.DownloadResult),
		stats:   &service.MediaStats{Probes: 3, TempDir: "/tmp"},
	}
}

func (m *mockMediaService) Classify(input string) classifier.Classification {
	return m.classification
}

func (m *mockMediaService) ListFormats(ctx context.Context, input string, onRetry retry.NotifyFunc) (*domain.Catalog, error) {
	m.mu.Lock()
	m.listInput = input
	m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.catalog, nil
}

func (m *mockMediaService) Download(ctx context.Context, req service.DownloadRequest) (*service.Ticket, error) {
	m.mu.Lock()
	m.downloadReq = req
	m.mu.Unlock()

	if req.OnRetry != nil && m.downloadErr != nil {
		req.OnRetry(1, 2, m.downloadErr, 5*time.Second)
	}
	if req.Progress != nil {
		for _, p := range m.progress {
			req.Progress(p)
		}
	}
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return m.ticket, nil
}

func (m *mockMediaService) Collect(ctx context.Context, token string) (*domain.DownloadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.results[token]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	delete(m.results, token)
	return res, nil
}

func (m *mockMediaService) Stats(ctx context.Context) (*service.MediaStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}
