package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/store"
)

// VideoCompositorConfig tunes the ffmpeg caption-video compositor.
type VideoCompositorConfig struct {
	FFmpegPath      string
	FontPath        string
	BackgroundColor string
	FrameSize       string
	FontSize        int
	Timeout         time.Duration
	// VocabularyCap limits vocabulary videos per section; negative means all
	// items.
	VocabularyCap int
}

// VideoCompositor renders one caption video per audio artifact: the German
// text centered on a solid background over the synthesized audio track. Each
// render is a separate ffmpeg process; a failed render is reported and the run
// continues.
type VideoCompositor struct {
	audio  *store.LocalStore
	video  *store.LocalStore
	config VideoCompositorConfig
}

// NewVideoCompositor verifies the ffmpeg binary up front; a missing binary is
// a fatal precondition, not a per-artifact failure.
func NewVideoCompositor(audio, video *store.LocalStore, config VideoCompositorConfig) (*VideoCompositor, error) {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.BackgroundColor == "" {
		config.BackgroundColor = "0x005696"
	}
	if config.FrameSize == "" {
		config.FrameSize = "1280x720"
	}
	if config.FontSize <= 0 {
		config.FontSize = 48
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	if config.VocabularyCap == 0 {
		config.VocabularyCap = 3
	}

	resolved, err := exec.LookPath(config.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found at %q, install it or set FFMPEG_PATH: %w", config.FFmpegPath, err)
	}
	config.FFmpegPath = resolved

	return &VideoCompositor{audio: audio, video: video, config: config}, nil
}

// Compose renders text over the audio artifact at audioKey into the video
// artifact at videoKey. Skips when the output already exists or when the audio
// prerequisite is missing.
func (c *VideoCompositor) Compose(ctx context.Context, text, audioKey, videoKey string) (Outcome, error) {
	exists, err := c.video.Exists(ctx, videoKey)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%s: existence check: %w", videoKey, err)
	}
	if exists {
		return OutcomeSkipped, nil
	}

	audioExists, err := c.audio.Exists(ctx, audioKey)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%s: audio check: %w", audioKey, err)
	}
	if !audioExists {
		// No prerequisite yet; a later run picks it up after audio generation.
		return OutcomeSkipped, nil
	}

	outputPath := c.video.Path(videoKey)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return OutcomeFailed, fmt.Errorf("%s: create output directory: %w", videoKey, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.config.FFmpegPath, c.args(text, c.audio.Path(audioKey), outputPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		// Remove a partial output so the next run retries instead of skipping.
		_ = os.Remove(outputPath)
		return OutcomeFailed, fmt.Errorf("%s: ffmpeg: %w: %s", videoKey, err, lastLine(out))
	}
	return OutcomeGenerated, nil
}

func (c *VideoCompositor) args(text, audioPath, outputPath string) []string {
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontfile='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawText(text), c.config.FontPath, c.config.FontSize)
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%s", c.config.BackgroundColor, c.config.FrameSize),
		"-i", audioPath,
		"-vf", drawtext,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
}

// ComposeSection renders videos for every dialogue line and the first few
// vocabulary items of one section, recording outcomes in stats.
func (c *VideoCompositor) ComposeSection(ctx context.Context, section *models.Section, stats *models.RunStats) []error {
	logCtx := slog.With("sectionId", section.ID)
	var failures []error

	record := func(outcome Outcome, err error) {
		switch outcome {
		case OutcomeGenerated:
			stats.AddGenerated()
		case OutcomeSkipped:
			stats.AddSkipped()
		case OutcomeFailed:
			stats.AddFailed()
			failures = append(failures, err)
			logCtx.Error("Video composition failed.", "error", err)
		}
	}

	for _, dialogue := range section.Dialogues {
		for l, line := range dialogue.Lines {
			audioKey := DialogueLineAudioKey(section.ID, dialogue.ID, l+1)
			videoKey := DialogueLineVideoKey(section.ID, dialogue.ID, l+1)
			record(c.Compose(ctx, line.GermanText, audioKey, videoKey))
		}
	}

	limit := c.config.VocabularyCap
	if limit < 0 || limit > len(section.Vocabulary) {
		limit = len(section.Vocabulary)
	}
	for _, item := range section.Vocabulary[:limit] {
		audioKey := VocabAudioKey(section.ID, item.ID)
		videoKey := VocabVideoKey(section.ID, item.ID)
		record(c.Compose(ctx, item.GermanTerm, audioKey, videoKey))
	}
	return failures
}

// escapeDrawText escapes text for ffmpeg's drawtext filter argument.
func escapeDrawText(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `'\\\''`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(text)
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
