// Command audio-generator synthesizes pronunciation audio for every vocabulary
// item and dialogue line in the corpus, staging the MP3 artifacts locally and
// annotating audioUrl on each item whose artifact exists. Re-running only
// performs the missing work.
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
		slog.Error("Audio generation aborted.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	contentDir := gcp.GetEnv("CONTENT_DIR", "content/sections")
	stagingDir := gcp.GetEnv("STAGING_DIR", "assets")

	creds, credPath, err := gcp.DiscoverCredentials(".")
	if err != nil {
		return err
	}
	slog.Info("Using credentials.", "path", credPath)

	speech, err := gcp.NewSpeechClient(ctx, creds)
	if err != nil {
		return err
	}
	defer speech.Close()

	audioStore := store.NewLocalStore(filepath.Join(stagingDir, "audio"))
	generator := services.NewAudioGenerator(speech, audioStore, services.DefaultVoicePolicy(), services.AudioGeneratorConfig{
		Concurrency: gcp.GetEnvInt("AUDIO_CONCURRENCY", 4),
	})

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
		modified, failures := generator.GenerateSection(ctx, sf.Section, stats)
		for _, ferr := range failures {
			if services.IsContextErr(ferr) {
				return ferr
			}
			slog.Warn("Artifact generation failed.", "sectionId", sf.Section.ID, "error", ferr)
		}
		if modified {
			if err := corpus.WriteSection(sf); err != nil {
				slog.Error("Failed to rewrite section document.", "sectionId", sf.Section.ID, "error", err)
			}
		}
	}

	slog.Info("Audio generation complete.", "summary", stats.Summary(), "malformedSections", len(malformed))
	return nil
}
