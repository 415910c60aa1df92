package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/meddeutsch/contentflow/internal/models"
)

// fakeWriter records committed documents and can fail selected commits.
type fakeWriter struct {
	mu    sync.Mutex
	roots map[string]map[string]any
	subs  map[string][]SubDoc // keyed "sectionID/name"
	// failOn holds "sectionID/name" commit keys that must fail.
	failOn map[string]bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		roots:  map[string]map[string]any{},
		subs:   map[string][]SubDoc{},
		failOn: map[string]bool{},
	}
}

func (w *fakeWriter) SetRoot(_ context.Context, sectionID string, doc map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn[sectionID+"/root"] {
		return errors.New("root write refused")
	}
	w.roots[sectionID] = doc
	return nil
}

func (w *fakeWriter) CommitSubCollection(_ context.Context, sectionID, name string, docs []SubDoc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn[sectionID+"/"+name] {
		return errors.New("commit refused")
	}
	w.subs[sectionID+"/"+name] = docs
	return nil
}

func sectionWithContent(id string) *models.Section {
	return &models.Section{
		ID:    id,
		Title: models.LocalizedText{"en": "Greetings"},
		Vocabulary: []models.VocabularyItem{
			{ID: "v1", GermanTerm: "Hallo", AudioURL: "assets/audio/sections/" + id + "/vocabulary/v1.mp3"},
			{ID: "v2", GermanTerm: "Tschüss"},
		},
		Dialogues: []models.Dialogue{{
			ID: "d1",
			Lines: []models.DialogueLine{
				{Speaker: "Dr. Schmidt", GermanText: "Guten Tag."},
				{Speaker: "Patient Müller", GermanText: "Guten Tag, Herr Doktor."},
			},
		}},
		Exercises: []models.Exercise{{"id": "e1", "type": "multiple_choice"}},
	}
}

func TestSplitSectionSeparatesSubCollections(t *testing.T) {
	root, subs, err := SplitSection(sectionWithContent("section_01"))
	if err != nil {
		t.Fatalf("SplitSection: %v", err)
	}

	for _, seq := range []string{"vocabulary", "dialogues", "exercises"} {
		if _, ok := root[seq]; ok {
			t.Fatalf("root document still carries %s", seq)
		}
	}
	if root["id"] != "section_01" {
		t.Fatalf("root id = %v", root["id"])
	}
	if len(subs["vocabulary"]) != 2 || len(subs["dialogues"]) != 1 || len(subs["exercises"]) != 1 {
		t.Fatalf("sub-collection sizes: vocab=%d dialogues=%d exercises=%d",
			len(subs["vocabulary"]), len(subs["dialogues"]), len(subs["exercises"]))
	}

	// Dialogue lines stay ordered inside their dialogue document.
	lines, ok := subs["dialogues"][0].Data["lines"].([]any)
	if !ok || len(lines) != 2 {
		t.Fatalf("dialogue lines = %v", subs["dialogues"][0].Data["lines"])
	}
	first, ok := lines[0].(map[string]any)
	if !ok || first["germanText"] != "Guten Tag." {
		t.Fatalf("line order lost: %v", lines[0])
	}

	if subs["vocabulary"][0].Data["audioUrl"] != "assets/audio/sections/section_01/vocabulary/v1.mp3" {
		t.Fatalf("audioUrl missing from vocabulary doc: %v", subs["vocabulary"][0].Data)
	}
}

func TestSplitSectionPreservesUnknownFields(t *testing.T) {
	section := sectionWithContent("section_01")
	section.Extra = map[string]json.RawMessage{"phase": json.RawMessage(`"phase_1"`)}

	root, _, err := SplitSection(section)
	if err != nil {
		t.Fatalf("SplitSection: %v", err)
	}
	if root["phase"] != "phase_1" {
		t.Fatalf("unknown root field dropped: %v", root["phase"])
	}
}

func TestSyncIsolatesSubCollectionFailure(t *testing.T) {
	writer := newFakeWriter()
	writer.failOn["section_02/vocabulary"] = true

	sections := []*models.Section{
		sectionWithContent("section_01"),
		sectionWithContent("section_02"),
		sectionWithContent("section_03"),
	}
	syncer := NewTreeSynchronizer(writer, SynchronizerConfig{BatchSize: 2})

	failures := syncer.Sync(context.Background(), sections)
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly one", failures)
	}
	var subErr *SubCollectionError
	if !errors.As(failures[0], &subErr) {
		t.Fatalf("failure type %T", failures[0])
	}
	if subErr.SectionID != "section_02" || subErr.SubCollection != "vocabulary" {
		t.Fatalf("failure context = %s/%s", subErr.SectionID, subErr.SubCollection)
	}

	// The failed section's other sub-collections and its root still committed.
	if writer.roots["section_02"] == nil {
		t.Fatalf("section_02 root missing")
	}
	if writer.subs["section_02/dialogues"] == nil || writer.subs["section_02/exercises"] == nil {
		t.Fatalf("sibling sub-collections of the failed section missing")
	}
	// Other sections in and out of the failed group are untouched.
	for _, id := range []string{"section_01", "section_03"} {
		for _, name := range []string{"vocabulary", "dialogues", "exercises"} {
			if writer.subs[id+"/"+name] == nil {
				t.Fatalf("%s/%s missing", id, name)
			}
		}
	}
}

func TestSyncCommitsAllSectionsAcrossGroups(t *testing.T) {
	writer := newFakeWriter()
	var sections []*models.Section
	for i := 1; i <= 25; i++ {
		sections = append(sections, sectionWithContent(fmt.Sprintf("section_%02d", i)))
	}

	failures := NewTreeSynchronizer(writer, SynchronizerConfig{BatchSize: 10}).Sync(context.Background(), sections)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(writer.roots) != 25 {
		t.Fatalf("roots committed = %d, want 25", len(writer.roots))
	}
}
