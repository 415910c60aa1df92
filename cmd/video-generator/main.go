// Command video-generator renders caption videos for every dialogue line and
// leading vocabulary items, pairing each staged audio artifact with its German
// text on a solid background via ffmpeg. A missing ffmpeg binary is fatal; a
// failed render is not.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meddeutsch/contentflow/internal/gcp"
	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/services"
	"github.com/meddeutsch/contentflow/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(context.Background()); err != nil {
		slog.Error("Video generation aborted.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	contentDir := gcp.GetEnv("CONTENT_DIR", "content/sections")
	stagingDir := gcp.GetEnv("STAGING_DIR", "assets")

	audioStore := store.NewLocalStore(filepath.Join(stagingDir, "audio"))
	videoStore := store.NewLocalStore(filepath.Join(stagingDir, "video"))

	compositor, err := services.NewVideoCompositor(audioStore, videoStore, services.VideoCompositorConfig{
		FFmpegPath: gcp.GetEnv("FFMPEG_PATH", "ffmpeg"),
		FontPath:   gcp.GetEnv("FONT_PATH", "/System/Library/Fonts/Helvetica.ttc"),
	})
	if err != nil {
		return err
	}

	corpus := services.Corpus{Root: contentDir}
	sections, malformed, err := corpus.ReadSections()
	if err != nil {
		return err
	}
	for _, e := range malformed {
		slog.Warn("Skipping malformed section.", "error", e)
	}
	slog.Info("Corpus loaded.", "sections", len(sections))

	stats := &models.RunStats{}
	for _, sf := range sections {
		for _, ferr := range compositor.ComposeSection(ctx, sf.Section, stats) {
			if services.IsContextErr(ferr) {
				return ferr
			}
			slog.Warn("Render failed.", "sectionId", sf.Section.ID, "error", ferr)
		}
	}

	slog.Info("Video generation complete.", "summary", stats.Summary(), "malformedSections", len(malformed))
	return nil
}
