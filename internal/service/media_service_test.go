package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iconidentify/vidgrab/internal/classifier"
	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/downloader"
	"github.com/iconidentify/vidgrab/internal/repository"
	"github.com/iconidentify/vidgrab/internal/retry"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type mockLister struct {
	catalog  *domain.Catalog
	err      error
	retries  int
	gotURL   string
	platform domain.Platform
}

func (m *mockLister) ListFormats(_ context.Context, url string, platform domain.Platform, onRetry retry.NotifyFunc) (*domain.Catalog, error) {
	m.gotURL = url
	m.platform = platform
	for i := 1; i <= m.retries; i++ {
		onRetry(i, m.retries+1, errors.New("transient"), time.Second)
	}
	return m.catalog, m.err
}

type mockDownloader struct {
	result *domain.DownloadResult
	err    error
	got    downloader.Request
}

func (m *mockDownloader) Download(_ context.Context, req downloader.Request) (*domain.DownloadResult, error) {
	m.got = req
	if req.Progress != nil {
		req.Progress(domain.Progress{State: domain.ProgressFinished, Fraction: 1})
	}
	return m.result, m.err
}

type mediaFixture struct {
	svc        *MediaService
	lister     *mockLister
	downloader *mockDownloader
	events     *EventService
	deliveries *repository.InMemoryDeliveryRepository
}

func newMediaFixture(t *testing.T) *mediaFixture {
	t.Helper()
	f := &mediaFixture{
		lister: &mockLister{catalog: &domain.Catalog{
			Title:   "Sample",
			Formats: []domain.FormatDescriptor{{ID: "137", Label: "1080p - 30fps - mp4"}},
		}},
		downloader: &mockDownloader{result: &domain.DownloadResult{Filename: "Sample.mp4", Content: []byte("bytes")}},
		events:     newTestEventService(t, config.EventsConfig{RingBufferSize: 50}),
		deliveries: repository.NewInMemoryDeliveryRepository(time.Minute),
	}
	f.svc = NewMediaService(
		classifier.New(config.ClassifierConfig{Mode: config.ModeStrict}),
		f.lister,
		f.downloader,
		f.deliveries,
		f.events,
		config.DownloadConfig{TempDir: t.TempDir()},
		testLogger(),
	)
	return f
}

func (f *mediaFixture) countEvents(severity domain.EventSeverity) int {
	return len(f.events.Recent(domain.EventFilter{Severity: &severity}, 100))
}

func TestMediaService_Classify(t *testing.T) {
	f := newMediaFixture(t)

	c := f.svc.Classify("  " + testURL + "  ")
	if !c.Valid || c.Platform != domain.PlatformYouTube {
		t.Errorf("Classify() = %+v", c)
	}
	if c := f.svc.Classify(""); !c.Empty {
		t.Errorf("Classify(\"\") = %+v, want Empty", c)
	}
}

func TestMediaService_ListFormats(t *testing.T) {
	f := newMediaFixture(t)
	f.lister.retries = 2

	var notified int
	cat, err := f.svc.ListFormats(context.Background(), " "+testURL+" ",
		func(int, int, error, time.Duration) { notified++ })
	if err != nil {
		t.Fatalf("ListFormats failed: %v", err)
	}
	if cat.Title != "Sample" {
		t.Errorf("Title = %q", cat.Title)
	}
	if f.lister.gotURL != testURL {
		t.Errorf("lister got %q, want trimmed URL", f.lister.gotURL)
	}
	if f.lister.platform != domain.PlatformYouTube {
		t.Errorf("platform = %q", f.lister.platform)
	}
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}
	if got := f.countEvents(domain.EventSeverityWarning); got != 2 {
		t.Errorf("warning events = %d, want 2", got)
	}
}

func TestMediaService_ListFormatsRejectsInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "   ", domain.ErrEmptyURL},
		{"not a url", "hello", domain.ErrInvalidURL},
		{"unsupported site", "https://vimeo.com/12345", domain.ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMediaFixture(t)
			_, err := f.svc.ListFormats(context.Background(), tt.input, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if f.lister.gotURL != "" {
				t.Error("lister should not be called for rejected input")
			}
		})
	}
}

func TestMediaService_ListFormatsFailure(t *testing.T) {
	f := newMediaFixture(t)
	f.lister.catalog = nil
	f.lister.err = &retry.ExhaustedError{Attempts: 3, Err: domain.ErrNoFormats}

	_, err := f.svc.ListFormats(context.Background(), testURL, nil)
	if !errors.Is(err, domain.ErrNoFormats) {
		t.Errorf("err = %v, want ErrNoFormats", err)
	}
	if got := f.countEvents(domain.EventSeverityError); got != 1 {
		t.Errorf("error events = %d, want 1", got)
	}

	stats, _ := f.svc.Stats(context.Background())
	if stats.Probes != 1 || stats.Failures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMediaService_DownloadAndCollect(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	var progress []domain.Progress
	ticket, err := f.svc.Download(ctx, DownloadRequest{
		URL:      testURL,
		FormatID: "137",
		Progress: func(p domain.Progress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if ticket.Token == "" || ticket.Filename != "Sample.mp4" || ticket.Size != 5 {
		t.Errorf("ticket = %+v", ticket)
	}
	if f.downloader.got.FormatID != "137" || f.downloader.got.Platform != domain.PlatformYouTube {
		t.Errorf("downloader request = %+v", f.downloader.got)
	}
	if len(progress) != 1 {
		t.Errorf("progress calls = %d, want 1", len(progress))
	}

	stats, _ := f.svc.Stats(ctx)
	if stats.PendingFiles != 1 || stats.PendingBytes != 5 {
		t.Errorf("pending = %d/%d, want 1/5", stats.PendingFiles, stats.PendingBytes)
	}

	res, err := f.svc.Collect(ctx, ticket.Token)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if string(res.Content) != "bytes" {
		t.Errorf("Content = %q", res.Content)
	}

	if _, err := f.svc.Collect(ctx, ticket.Token); !errors.Is(err, domain.ErrDeliveryNotFound) {
		t.Errorf("second Collect err = %v, want ErrDeliveryNotFound", err)
	}
	if got := f.countEvents(domain.EventSeveritySuccess); got != 1 {
		t.Errorf("success events = %d, want 1", got)
	}
}

func TestMediaService_DownloadValidation(t *testing.T) {
	f := newMediaFixture(t)

	if _, err := f.svc.Download(context.Background(), DownloadRequest{URL: "nope", FormatID: "137"}); !errors.Is(err, domain.ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
	if _, err := f.svc.Download(context.Background(), DownloadRequest{URL: testURL}); !errors.Is(err, domain.ErrFormatRequired) {
		t.Errorf("err = %v, want ErrFormatRequired", err)
	}
}

func TestMediaService_DownloadFailure(t *testing.T) {
	f := newMediaFixture(t)
	f.downloader.result = nil
	f.downloader.err = domain.ErrSignInRequired

	ticket, err := f.svc.Download(context.Background(), DownloadRequest{URL: testURL, FormatID: domain.AudioFormatID})
	if ticket != nil {
		t.Error("ticket should be nil on failure")
	}
	if !errors.Is(err, domain.ErrSignInRequired) {
		t.Errorf("err = %v, want ErrSignInRequired", err)
	}

	stats, _ := f.svc.Stats(context.Background())
	if stats.PendingFiles != 0 || stats.Failures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMediaService_Stats(t *testing.T) {
	f := newMediaFixture(t)

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TempDir == "" {
		t.Error("TempDir should be set")
	}
	if stats.TempFreeBytes <= 0 {
		t.Errorf("TempFreeBytes = %d, want > 0 for an existing dir", stats.TempFreeBytes)
	}
	if stats.TempFree == "" {
		t.Error("TempFree should be rendered")
	}
}
