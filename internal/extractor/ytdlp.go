package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
)

// progressInterval throttles progress callbacks from yt-dlp.
const progressInterval = 250 * time.Millisecond

// YTDLP implements Extractor by driving the yt-dlp binary.
type YTDLP struct {
	executable string
	logger     *slog.Logger
}

// NewYTDLP creates a yt-dlp backed extractor.
func NewYTDLP(cfg config.ExtractorConfig, logger *slog.Logger) *YTDLP {
	return &YTDLP{
		executable: cfg.Executable,
		logger:     logger,
	}
}

// Install makes sure a yt-dlp binary is available, downloading the latest
// release when none is found. It returns the resolved executable path.
func Install(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("install yt-dlp: %w", err)
	}
	return resolved.Executable, nil
}

// InstallFFmpeg downloads an ffmpeg build into the yt-dlp cache and
// returns the path of the binary.
func InstallFFmpeg(ctx context.Context) (string, error) {
	resolved, err := ytdlp.InstallFFmpeg(ctx, nil)
	if err != nil {
		return "", err
	}
	return resolved.Executable, nil
}

// SetExecutable overrides the yt-dlp binary used for later calls.
func (y *YTDLP) SetExecutable(path string) {
	y.executable = path
}

// Check reports whether the yt-dlp binary can be found.
func (y *YTDLP) Check(_ context.Context) error {
	name := y.executable
	if name == "" {
		name = "yt-dlp"
	}
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("yt-dlp not found: %w", err)
	}
	return nil
}

// Probe implements Extractor.
func (y *YTDLP) Probe(ctx context.Context, url string, opts Options) (*domain.Metadata, error) {
	cmd := y.command(opts).
		SkipDownload().
		PrintJSON()

	start := time.Now()
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, classifyError(err, stderrOf(res))
	}

	info, err := parseInfo(res.Stdout)
	if err != nil {
		return nil, err
	}

	y.logger.Debug("probe finished",
		"url", url,
		"formats", len(info.Formats),
		"duration", time.Since(start),
	)
	return info, nil
}

// Fetch implements Extractor.
func (y *YTDLP) Fetch(ctx context.Context, url string, opts Options, progress func(domain.ProgressUpdate)) (*domain.Metadata, error) {
	cmd := y.command(opts).PrintJSON()

	if progress != nil {
		cmd = cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			progress(domain.ProgressUpdate{
				State:      domain.ProgressState(update.Status),
				BytesDone:  int64(update.DownloadedBytes),
				BytesTotal: int64(update.TotalBytes),
			})
		})
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, classifyError(err, stderrOf(res))
	}

	return parseInfo(res.Stdout)
}

func (y *YTDLP) command(opts Options) *ytdlp.Command {
	cmd := ytdlp.New().NoPlaylist()

	if y.executable != "" {
		cmd = cmd.SetExecutable(y.executable)
	}
	if opts.Quiet {
		cmd = cmd.Quiet().NoWarnings()
	}
	if opts.Format != "" {
		cmd = cmd.Format(opts.Format)
	}
	if opts.OutputTemplate != "" {
		cmd = cmd.Output(opts.OutputTemplate)
	}
	if opts.UserAgent != "" {
		cmd = cmd.UserAgent(opts.UserAgent)
	}
	if opts.SocketTimeout > 0 {
		cmd = cmd.SocketTimeout(opts.SocketTimeout.Seconds())
	}
	if opts.NoCheckCertificates {
		cmd = cmd.NoCheckCertificates()
	}
	if args := opts.ExtractorArgs(); args != "" {
		cmd = cmd.ExtractorArgs(args)
	}
	if opts.ExtractAudio {
		cmd = cmd.ExtractAudio().
			AudioFormat(opts.AudioFormat).
			AudioQuality(opts.AudioQuality)
	}
	return cmd
}

func stderrOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}

// infoJSON is the subset of yt-dlp's info dict we rely on.
type infoJSON struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Filename string       `json:"_filename"`
	AltName  string       `json:"filename"`
	Formats  []formatJSON `json:"formats"`
}

type formatJSON struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         float64 `json:"height"`
	FPS            float64 `json:"fps"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

// parseInfo decodes the last info JSON line printed by yt-dlp. Progress or
// log lines interleaved on stdout are skipped.
func parseInfo(stdout string) (*domain.Metadata, error) {
	var (
		info  infoJSON
		found bool
	)

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var candidate infoJSON
		if err := json.Unmarshal([]byte(line), &candidate); err != nil {
			continue
		}
		if candidate.ID == "" && candidate.Title == "" {
			continue
		}
		info = candidate
		found = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read yt-dlp output: %w", err)
	}
	if !found {
		return nil, domain.ErrNoMetadata
	}

	md := &domain.Metadata{
		Title:    info.Title,
		Filename: info.Filename,
		Formats:  make([]domain.RawFormat, 0, len(info.Formats)),
	}
	if md.Filename == "" {
		md.Filename = info.AltName
	}
	for _, f := range info.Formats {
		md.Formats = append(md.Formats, domain.RawFormat{
			FormatID:       f.FormatID,
			Ext:            f.Ext,
			VCodec:         f.VCodec,
			ACodec:         f.ACodec,
			Height:         int(f.Height),
			FPS:            f.FPS,
			Filesize:       int64(f.Filesize),
			FilesizeApprox: int64(f.FilesizeApprox),
		})
	}
	return md, nil
}
