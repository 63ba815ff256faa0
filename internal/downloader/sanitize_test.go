package downloader

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Video (2021)!.mp4", "My Video 2021.mp4"},
		{"already_fine-name.webm", "already_fine-name.webm"},
		{"a/b\\c:d*e?f\"g<h>i|j.mp4", "abcdefghij.mp4"},
		{"Café Übung 東京.mp3", "Café Übung 東京.mp3"},
		{"trailing   ", "trailing"},
		{"trailing !!!", "trailing"},
		{"  leading kept", "  leading kept"},
		{"emoji 🎵 song.mp3", "emoji  song.mp3"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	for _, in := range []string{"My Video (2021)!.mp4", "x  y !", "東京?.mkv"} {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
