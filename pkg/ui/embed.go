// Package ui provides the embedded web UI assets for vidgrab.
package ui

import (
	_ "embed"
)

// IndexHTML is the download form. It validates the URL as it is typed,
// lists formats, streams progress over SSE and collects the file.
//
//go:embed index.html
var IndexHTML []byte

// ActivityHTML is the activity log page.
//
//go:embed activity.html
var ActivityHTML []byte
