package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/iconidentify/vidgrab/internal/domain"
)

const defaultWidth = 80

// progressBar redraws a single status line on a terminal. On anything else
// it prints one line per state change.
type progressBar struct {
	mu        sync.Mutex
	w         io.Writer
	tty       bool
	width     int
	lastState domain.ProgressState
	drawn     bool
}

func newProgressBar(f *os.File) *progressBar {
	b := &progressBar{w: f, width: defaultWidth}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		b.tty = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			b.width = w
		}
	}
	return b
}

// Update renders p.
func (b *progressBar) Update(p domain.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.tty {
		if p.State != b.lastState {
			fmt.Fprintln(b.w, p.Text)
			b.lastState = p.State
		}
		return
	}
	fmt.Fprintf(b.w, "\r%s", renderLine(p, b.width))
	b.drawn = true
}

// Done ends the status line.
func (b *progressBar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drawn {
		fmt.Fprintln(b.w)
		b.drawn = false
	}
}

// renderLine draws "[#####     ]  50% text" padded or cut to width-1
// columns so the carriage return overwrites the previous line.
func renderLine(p domain.Progress, width int) string {
	frac := p.Fraction
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	cols := width - 1
	barWidth := cols / 3
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(frac * float64(barWidth))

	line := fmt.Sprintf("[%s%s] %3d%% %s",
		strings.Repeat("#", filled),
		strings.Repeat(" ", barWidth-filled),
		int(frac*100),
		p.Text,
	)

	runes := []rune(line)
	if len(runes) > cols {
		return string(runes[:cols])
	}
	return line + strings.Repeat(" ", cols-len(runes))
}
