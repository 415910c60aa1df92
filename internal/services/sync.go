package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"

	"github.com/meddeutsch/contentflow/internal/models"
)

// SubDoc is one document in a section's sub-collection, in commit order.
type SubDoc struct {
	ID   string
	Data map[string]any
}

// SubCollectionError reports a failed commit with enough context to retry that
// section alone on a subsequent run.
type SubCollectionError struct {
	SectionID     string
	SubCollection string
	Err           error
}

func (e *SubCollectionError) Error() string {
	return fmt.Sprintf("section %s: %s: %v", e.SectionID, e.SubCollection, e.Err)
}

func (e *SubCollectionError) Unwrap() error { return e.Err }

// SectionWriter is the destination-store capability the synchronizer is
// written against. CommitSubCollection must be atomic: either every document
// of the sub-collection lands or none do.
type SectionWriter interface {
	SetRoot(ctx context.Context, sectionID string, doc map[string]any) error
	CommitSubCollection(ctx context.Context, sectionID, name string, docs []SubDoc) error
}

// FirestoreSectionWriter commits to the sections collection using one write
// batch per sub-collection.
type FirestoreSectionWriter struct {
	client     *firestore.Client
	collection string
	timeout    time.Duration
}

func NewFirestoreSectionWriter(client *firestore.Client, collection string) *FirestoreSectionWriter {
	return &FirestoreSectionWriter{client: client, collection: collection, timeout: time.Minute}
}

func (w *FirestoreSectionWriter) SetRoot(ctx context.Context, sectionID string, doc map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if _, err := w.client.Collection(w.collection).Doc(sectionID).Set(ctx, doc); err != nil {
		return fmt.Errorf("set root document: %w", err)
	}
	return nil
}

func (w *FirestoreSectionWriter) CommitSubCollection(ctx context.Context, sectionID, name string, docs []SubDoc) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	batch := w.client.Batch()
	parent := w.client.Collection(w.collection).Doc(sectionID)
	for _, doc := range docs {
		batch.Set(parent.Collection(name).Doc(doc.ID), doc.Data)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch of %d: %w", len(docs), err)
	}
	return nil
}

// SynchronizerConfig tunes the tree synchronizer.
type SynchronizerConfig struct {
	// BatchSize is how many sections one parallel group holds. Groups run
	// sequentially so peak store concurrency stays predictable.
	BatchSize int
}

// TreeSynchronizer writes the annotated content tree into the destination
// store: per section a root document plus the vocabulary, dialogues and
// exercises sub-collections, each sub-collection in its own atomic batch. A
// partial failure never corrupts a sibling sub-collection or another section.
type TreeSynchronizer struct {
	writer SectionWriter
	config SynchronizerConfig
}

func NewTreeSynchronizer(writer SectionWriter, config SynchronizerConfig) *TreeSynchronizer {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	return &TreeSynchronizer{writer: writer, config: config}
}

// Sync persists sections in sequential groups of BatchSize with intra-group
// parallelism. All failures are collected and returned; none aborts the run.
func (s *TreeSynchronizer) Sync(ctx context.Context, sections []*models.Section) []error {
	var mu sync.Mutex
	var failures []error

	total := (len(sections) + s.config.BatchSize - 1) / s.config.BatchSize
	for start := 0; start < len(sections); start += s.config.BatchSize {
		if ctx.Err() != nil {
			return append(failures, ctx.Err())
		}
		end := min(start+s.config.BatchSize, len(sections))
		group := sections[start:end]

		eg, gctx := errgroup.WithContext(ctx)
		for _, section := range group {
			eg.Go(func() error {
				for _, err := range s.syncSection(gctx, section) {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = eg.Wait()
		slog.Info("Section group committed.", "group", start/s.config.BatchSize+1, "groups", total)
	}
	return failures
}

// syncSection writes one section's root document and its three sub-collections.
// Each write is independent; failures are reported per sub-collection.
func (s *TreeSynchronizer) syncSection(ctx context.Context, section *models.Section) []error {
	root, subs, err := SplitSection(section)
	if err != nil {
		return []error{&SubCollectionError{SectionID: section.ID, SubCollection: "root", Err: err}}
	}

	var failures []error
	if err := s.writer.SetRoot(ctx, section.ID, root); err != nil {
		failures = append(failures, &SubCollectionError{SectionID: section.ID, SubCollection: "root", Err: err})
	}
	for _, name := range []string{"vocabulary", "dialogues", "exercises"} {
		if err := s.writer.CommitSubCollection(ctx, section.ID, name, subs[name]); err != nil {
			failures = append(failures, &SubCollectionError{SectionID: section.ID, SubCollection: name, Err: err})
		}
	}
	if len(failures) == 0 {
		slog.Info("Section synced.", "sectionId", section.ID,
			"vocabulary", len(subs["vocabulary"]), "dialogues", len(subs["dialogues"]), "exercises", len(subs["exercises"]))
	}
	return failures
}

// SplitSection separates a section into its root document (every field except
// the three ordered sequences) and the sub-collection documents, preserving
// order.
func SplitSection(section *models.Section) (map[string]any, map[string][]SubDoc, error) {
	root, err := docValue(section)
	if err != nil {
		return nil, nil, err
	}
	delete(root, "vocabulary")
	delete(root, "dialogues")
	delete(root, "exercises")

	subs := map[string][]SubDoc{}
	for _, item := range section.Vocabulary {
		data, err := docValue(item)
		if err != nil {
			return nil, nil, fmt.Errorf("vocabulary %s: %w", item.ID, err)
		}
		subs["vocabulary"] = append(subs["vocabulary"], SubDoc{ID: item.ID, Data: data})
	}
	for _, dialogue := range section.Dialogues {
		data, err := docValue(dialogue)
		if err != nil {
			return nil, nil, fmt.Errorf("dialogue %s: %w", dialogue.ID, err)
		}
		subs["dialogues"] = append(subs["dialogues"], SubDoc{ID: dialogue.ID, Data: data})
	}
	for i, exercise := range section.Exercises {
		subs["exercises"] = append(subs["exercises"], SubDoc{ID: exercise.DocID(i), Data: map[string]any(exercise)})
	}
	return root, subs, nil
}

// docValue converts a model value to the generic map shape the document store
// accepts, via its JSON form so preserved unknown fields survive.
func docValue(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
