package services

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestReadSectionsMissingRoot(t *testing.T) {
	corpus := Corpus{Root: filepath.Join(t.TempDir(), "nope")}
	_, _, err := corpus.ReadSections()
	if !errors.Is(err, ErrCorpusNotFound) {
		t.Fatalf("err = %v, want ErrCorpusNotFound", err)
	}
}

func TestReadSectionsSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "section_02.json", `{"id": "section_02"}`)
	writeFile(t, dir, "section_01_greetings.json", `{"id": "section_01"}`)
	writeFile(t, dir, "notes.txt", "not a section")

	sections, malformed, err := Corpus{Root: dir}.ReadSections()
	if err != nil {
		t.Fatalf("ReadSections: %v", err)
	}
	if len(malformed) != 0 {
		t.Fatalf("malformed = %v", malformed)
	}
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Section.ID != "section_01" || sections[1].Section.ID != "section_02" {
		t.Fatalf("order: %s, %s", sections[0].Section.ID, sections[1].Section.ID)
	}
}

func TestReadSectionsSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "section_01.json", `{"id": "section_01"}`)
	writeFile(t, dir, "section_02.json", `{broken`)
	writeFile(t, dir, "section_03.json", `{"title": {"en": "no id"}}`)

	sections, malformed, err := Corpus{Root: dir}.ReadSections()
	if err != nil {
		t.Fatalf("ReadSections: %v", err)
	}
	if len(sections) != 1 || sections[0].Section.ID != "section_01" {
		t.Fatalf("surviving sections: %v", sections)
	}
	if len(malformed) != 2 {
		t.Fatalf("malformed = %d, want 2", len(malformed))
	}
	var msErr *MalformedSectionError
	if !errors.As(malformed[0], &msErr) || msErr.File != "section_02.json" {
		t.Fatalf("first malformed error: %v", malformed[0])
	}
}

func TestWriteSectionPreservesUnknownContent(t *testing.T) {
	dir := t.TempDir()
	original := `{
    "id": "section_01",
    "phase": "phase_1",
    "title": {"en": "Greetings"},
    "vocabulary": [
        {"id": "v1", "germanTerm": "Hallo", "english": "hello", "pronunciation": "HAH-loh"}
    ]
}`
	writeFile(t, dir, "section_01.json", original)

	corpus := Corpus{Root: dir}
	sections, _, err := corpus.ReadSections()
	if err != nil {
		t.Fatalf("ReadSections: %v", err)
	}

	sf := sections[0]
	sf.Section.Vocabulary[0].AudioURL = "assets/audio/sections/section_01/vocabulary/v1.mp3"
	if err := corpus.WriteSection(sf); err != nil {
		t.Fatalf("WriteSection: %v", err)
	}

	data, err := os.ReadFile(sf.Path)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("rewritten file is not valid JSON: %v", err)
	}
	if doc["phase"] != "phase_1" {
		t.Fatalf("top-level unknown field dropped: %v", doc["phase"])
	}
	vocab := doc["vocabulary"].([]any)[0].(map[string]any)
	if vocab["pronunciation"] != "HAH-loh" || vocab["english"] != "hello" {
		t.Fatalf("item unknown fields dropped: %v", vocab)
	}
	if vocab["audioUrl"] != "assets/audio/sections/section_01/vocabulary/v1.mp3" {
		t.Fatalf("annotation missing: %v", vocab["audioUrl"])
	}
}
