package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

// =============================================================================
// Media Tests
// =============================================================================

func TestRawFormat_Streams(t *testing.T) {
	tests := []struct {
		name      string
		format    RawFormat
		wantVideo bool
		wantAudio bool
	}{
		{"muxed", RawFormat{VCodec: "avc1", ACodec: "mp4a"}, true, true},
		{"video only", RawFormat{VCodec: "vp9", ACodec: "none"}, true, false},
		{"audio only", RawFormat{VCodec: "none", ACodec: "opus"}, false, true},
		{"missing codecs", RawFormat{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.HasVideo(); got != tt.wantVideo {
				t.Errorf("HasVideo() = %v, want %v", got, tt.wantVideo)
			}
			if got := tt.format.HasAudio(); got != tt.wantAudio {
				t.Errorf("HasAudio() = %v, want %v", got, tt.wantAudio)
			}
		})
	}
}

func TestRawFormat_Size(t *testing.T) {
	tests := []struct {
		name   string
		format RawFormat
		want   int64
	}{
		{"exact", RawFormat{Filesize: 100, FilesizeApprox: 90}, 100},
		{"approx", RawFormat{FilesizeApprox: 90}, 90},
		{"unknown", RawFormat{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCatalog_Label(t *testing.T) {
	cat := &Catalog{Formats: []FormatDescriptor{
		{ID: "22", Label: "720p - 30fps - mp4"},
		{ID: AudioFormatID, Label: "Audio Only (MP3)"},
	}}

	if label, ok := cat.Label("22"); !ok || label != "720p - 30fps - mp4" {
		t.Errorf("Label(22) = %q, %v", label, ok)
	}
	if _, ok := cat.Label("999"); ok {
		t.Error("Label(999) should not be found")
	}
	if !cat.Formats[1].IsAudio() || cat.Formats[0].IsAudio() {
		t.Error("IsAudio should only match the audio sentinel")
	}
}

func TestDownloadResult_Size(t *testing.T) {
	r := &DownloadResult{Filename: "a.mp4", Content: []byte("12345")}
	if r.Size() != 5 {
		t.Errorf("Size() = %d, want 5", r.Size())
	}
}

func TestPlatform_String(t *testing.T) {
	if PlatformInstagram.String() != "instagram" {
		t.Errorf("String() = %q", PlatformInstagram.String())
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestMediaError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *MediaError
		want string
	}{
		{
			name: "with URL",
			err:  NewMediaError("https://youtu.be/x", "download", ErrOutputMissing),
			want: "download [https://youtu.be/x]: downloaded file not found",
		},
		{
			name: "without URL",
			err:  NewMediaError("", "list formats", ErrNoFormats),
			want: "list formats: no suitable formats found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMediaError_Unwrap(t *testing.T) {
	err := NewMediaError("u", "download", fmt.Errorf("attempt 2: %w", ErrSignInRequired))

	if !errors.Is(err, ErrSignInRequired) {
		t.Error("errors.Is should see through MediaError")
	}
	var me *MediaError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &me) || me.Op != "download" {
		t.Error("errors.As should find the MediaError")
	}
}

func TestIsRestricted(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrSignInRequired, true},
		{ErrPrivateContent, true},
		{NewMediaError("u", "probe", ErrPrivateContent), true},
		{ErrNoFormats, false},
		{errors.New("sign-in required"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRestricted(tt.err); got != tt.want {
			t.Errorf("IsRestricted(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// =============================================================================
// Event Tests
// =============================================================================

func TestEventID_String(t *testing.T) {
	if got := EventID("evt-123").String(); got != "evt-123" {
		t.Errorf("EventID.String() = %q", got)
	}
}

func TestEventMetadata_ToJSON(t *testing.T) {
	tests := []struct {
		name     string
		metadata EventMetadata
		wantNil  bool
	}{
		{"nil metadata", nil, true},
		{"empty metadata", EventMetadata{}, false},
		{"with data", EventMetadata{"url": "https://youtu.be/x", "attempt": 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.metadata.ToJSON()
			if tt.wantNil && result != nil {
				t.Errorf("ToJSON() = %v, want nil", result)
			}
			if !tt.wantNil && result == nil {
				t.Error("ToJSON() = nil, want non-nil")
			}
		})
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(EventMetadata{"attempt": 2}.ToJSON(), &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", decoded["attempt"])
	}
}

func TestEventFilter_Matches(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	event := Event{Severity: EventSeverityError, Category: EventCategoryDownload, Timestamp: now}

	errSev, infoSev := EventSeverityError, EventSeverityInfo
	download, probe := EventCategoryDownload, EventCategoryProbe
	later := now.Add(time.Minute)

	tests := []struct {
		name   string
		filter EventFilter
		want   bool
	}{
		{"empty", EventFilter{}, true},
		{"severity match", EventFilter{Severity: &errSev}, true},
		{"severity mismatch", EventFilter{Severity: &infoSev}, false},
		{"category match", EventFilter{Category: &download}, true},
		{"category mismatch", EventFilter{Category: &probe}, false},
		{"since before", EventFilter{Since: &earlier}, true},
		{"since equal", EventFilter{Since: &now}, true},
		{"since after", EventFilter{Since: &later}, false},
		{"all match", EventFilter{Severity: &errSev, Category: &download, Since: &earlier}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(event); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
