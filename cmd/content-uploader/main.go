// Command content-uploader syncs the content tree into Firestore: one root
// document per section plus its vocabulary, dialogues and exercises
// sub-collections, each sub-collection committed atomically. A failed commit
// is reported with section and sub-collection context and retried on the next
// run; it never blocks sibling sections.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/meddeutsch/contentflow/internal/gcp"
	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/services"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(context.Background()); err != nil {
		slog.Error("Content upload aborted.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	contentDir := gcp.GetEnv("CONTENT_DIR", "content/sections")
	projectID := gcp.GetEnv("PROJECT_ID", gcp.GetEnv("GCP_PROJECT", ""))
	collection := gcp.GetEnv("SECTIONS_COLLECTION", "sections")

	creds, credPath, err := gcp.DiscoverCredentials(".")
	if err != nil {
		return err
	}
	slog.Info("Using credentials.", "path", credPath)

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID, creds)
	if err != nil {
		return err
	}
	defer firestoreClient.Close()

	writer := services.NewFirestoreSectionWriter(firestoreClient, collection)
	synchronizer := services.NewTreeSynchronizer(writer, services.SynchronizerConfig{
		BatchSize: gcp.GetEnvInt("UPLOAD_BATCH_SIZE", 10),
	})

	corpus := services.Corpus{Root: contentDir}
	sectionFiles, malformed, err := corpus.ReadSections()
	if err != nil {
		return err
	}
	for _, e := range malformed {
		slog.Warn("Skipping malformed section.", "error", e)
	}

	sections := make([]*models.Section, len(sectionFiles))
	for i, sf := range sectionFiles {
		sections[i] = sf.Section
	}
	slog.Info("Corpus loaded.", "sections", len(sections))

	failures := synchronizer.Sync(ctx, sections)
	for _, ferr := range failures {
		slog.Error("Sync failed, section will be retried next run.", "error", ferr)
	}

	slog.Info("Content upload complete.",
		"sections", len(sections), "failures", len(failures), "malformedSections", len(malformed))
	return nil
}
