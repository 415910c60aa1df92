// Command audio-uploader promotes staged audio artifacts into the Cloud
// Storage bucket under the audio/ prefix. Objects already present are skipped,
// so an interrupted upload resumes where it stopped.
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
		slog.Error("Audio upload aborted.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	stagingDir := gcp.GetEnv("STAGING_DIR", "assets")
	bucketName := gcp.GetEnv("STORAGE_BUCKET", "german-med.firebasestorage.app")

	creds, credPath, err := gcp.DiscoverCredentials(".")
	if err != nil {
		return err
	}
	slog.Info("Using credentials.", "path", credPath)

	storageClient, err := gcp.NewStorageClient(ctx, creds)
	if err != nil {
		return err
	}
	defer storageClient.Close()

	staged := store.NewLocalStore(filepath.Join(stagingDir, "audio"))
	durable := store.NewGCSStore(storageClient, bucketName, "audio")
	promoter := services.NewArtifactPromoter(staged, durable, services.PromoterConfig{
		Concurrency:  gcp.GetEnvInt("UPLOAD_CONCURRENCY", 8),
		Suffix:       ".mp3",
		ContentType:  "audio/mpeg",
		CacheControl: "public, max-age=31536000",
	})

	stats := &models.RunStats{}
	failures, err := promoter.Promote(ctx, "sections/", stats)
	if err != nil {
		return err
	}
	for _, ferr := range failures {
		slog.Error("Upload failed.", "error", ferr)
	}

	slog.Info("Audio upload complete.", "summary", stats.Summary())
	return nil
}
