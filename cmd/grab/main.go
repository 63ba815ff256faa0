// Command grab downloads one YouTube or Instagram video from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/iconidentify/vidgrab/internal/catalog"
	"github.com/iconidentify/vidgrab/internal/classifier"
	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/downloader"
	"github.com/iconidentify/vidgrab/internal/extractor"
	"github.com/iconidentify/vidgrab/pkg/ffmpeg"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	formatID := flag.String("format", "", "Format id to download (prompted for when omitted)")
	outDir := flag.String("out", ".", "Directory to save the file in")
	listOnly := flag.Bool("list", false, "List available formats and exit")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: grab [flags] URL\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("grab %s (built %s)\n", Version, BuildTime)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, flag.Arg(0), *formatID, *outDir, *listOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, url, formatID, outDir string, listOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c := classifier.New(cfg.Classifier).Classify(url)
	if err := c.Err(); err != nil {
		return err
	}
	url = strings.TrimSpace(url)

	var installFFmpeg ffmpeg.InstallFunc
	if cfg.Extractor.AutoInstall {
		installFFmpeg = extractor.InstallFFmpeg
	}
	ff, _, err := ffmpeg.Ensure(ctx, cfg.Extractor.FFmpegPath, installFFmpeg)
	if err != nil {
		return err
	}
	if err := ff.ExportPath(); err != nil {
		return err
	}

	ytdlp := extractor.NewYTDLP(cfg.Extractor, logger)
	if cfg.Extractor.AutoInstall && cfg.Extractor.Executable == "" {
		path, err := extractor.Install(ctx)
		if err != nil {
			return err
		}
		ytdlp.SetExecutable(path)
	}
	profile := extractor.NewProfile(cfg.Extractor)

	onRetry := func(attempt, _ int, err error, delay time.Duration) {
		fmt.Fprintf(os.Stderr, "Attempt %d failed (%v). Retrying in %s...\n", attempt, err, delay)
	}

	fmt.Fprintln(os.Stderr, "Fetching available formats...")
	cat, err := catalog.NewService(ytdlp, profile, cfg.Catalog, cfg.Retry, logger).
		ListFormats(ctx, url, c.Platform, onRetry)
	if err != nil {
		return fmt.Errorf("fetch video information: %w", err)
	}

	fmt.Printf("%s\n\n", cat.Title)
	printFormats(os.Stdout, cat)
	if listOnly {
		return nil
	}

	if formatID == "" {
		formatID, err = promptFormat(cat)
		if err != nil {
			return err
		}
	} else if _, ok := cat.Label(formatID); !ok {
		return fmt.Errorf("format %q is not offered for this video", formatID)
	}

	bar := newProgressBar(os.Stderr)
	dl := downloader.New(ytdlp, profile, cfg.Download, cfg.Retry, logger)
	result, err := dl.Download(ctx, downloader.Request{
		URL:      url,
		Platform: c.Platform,
		FormatID: formatID,
		Progress: bar.Update,
		OnRetry:  onRetry,
	})
	bar.Done()
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	dest := filepath.Join(outDir, result.Filename)
	if err := os.WriteFile(dest, result.Content, 0644); err != nil {
		return fmt.Errorf("save file: %w", err)
	}

	fmt.Printf("Saved %s (%s)\n", dest, humanize.IBytes(uint64(result.Size())))
	return nil
}

func printFormats(w io.Writer, cat *domain.Catalog) {
	for i, f := range cat.Formats {
		fmt.Fprintf(w, "%3d) %-32s [%s]\n", i+1, f.Label, f.ID)
	}
	fmt.Fprintln(w)
}

// promptFormat asks for a choice on an interactive terminal and falls back
// to the first format otherwise.
func promptFormat(cat *domain.Catalog) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return cat.Formats[0].ID, nil
	}

	fmt.Fprint(os.Stderr, "Select format [1]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read selection: %w", err)
	}
	return pickFormat(cat, line)
}

// pickFormat resolves a format id or a menu number, in that order. Empty
// input picks the first entry.
func pickFormat(cat *domain.Catalog, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return cat.Formats[0].ID, nil
	}
	if _, ok := cat.Label(input); ok {
		return input, nil
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(cat.Formats) {
			return "", fmt.Errorf("choose a number between 1 and %d", len(cat.Formats))
		}
		return cat.Formats[n-1].ID, nil
	}
	return "", fmt.Errorf("unknown format %q", input)
}
