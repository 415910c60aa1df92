// Command content-translator reconciles the per-language translations of every
// section's learning objectives and grammar focus, rewriting the section
// documents in place. Accepted translations from previous runs are preserved;
// only missing or unacceptable entries are retranslated.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/meddeutsch/contentflow/internal/gcp"
	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/services"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(context.Background()); err != nil {
		slog.Error("Content translation aborted.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	contentDir := gcp.GetEnv("CONTENT_DIR", "content/sections")
	languages := models.TargetLanguages
	if env := gcp.GetEnv("TARGET_LANGUAGES", ""); env != "" {
		languages = strings.Split(env, ",")
	}

	creds, credPath, err := gcp.DiscoverCredentials(".")
	if err != nil {
		return err
	}
	slog.Info("Using credentials.", "path", credPath)

	translator, err := gcp.NewTranslateClient(ctx, models.SourceLanguage, creds)
	if err != nil {
		return err
	}
	defer translator.Close()

	reconciler := services.NewTranslationReconciler(translator, services.DefaultAcceptabilityPolicy(), services.ReconcilerConfig{
		Languages:       languages,
		MinCallInterval: time.Duration(gcp.GetEnvInt("TRANSLATION_MIN_INTERVAL_MS", 200)) * time.Millisecond,
	})

	corpus := services.Corpus{Root: contentDir}
	sections, malformed, err := corpus.ReadSections()
	if err != nil {
		return err
	}
	for _, e := range malformed {
		slog.Warn("Skipping malformed section.", "error", e)
	}
	slog.Info("Corpus loaded.", "sections", len(sections), "languages", languages)

	var translated, failed int
	for _, sf := range sections {
		modified, failures := reconciler.ReconcileSection(ctx, sf.Section)
		failed += len(failures)
		for _, ferr := range failures {
			if services.IsContextErr(ferr) {
				return ferr
			}
			slog.Warn("Translation entry failed.", "sectionId", sf.Section.ID, "error", ferr)
		}
		if modified {
			if err := corpus.WriteSection(sf); err != nil {
				slog.Error("Failed to rewrite section document.", "sectionId", sf.Section.ID, "error", err)
				continue
			}
			translated++
		}
	}

	slog.Info("Content translation complete.",
		"sectionsTranslated", translated, "entryFailures", failed, "malformedSections", len(malformed))
	return nil
}
