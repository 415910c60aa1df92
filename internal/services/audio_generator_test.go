package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/meddeutsch/contentflow/internal/models"
)

func newTestGenerator(synth SpeechSynthesizer, artifacts *memStore) *AudioGenerator {
	return NewAudioGenerator(synth, artifacts, DefaultVoicePolicy(), AudioGeneratorConfig{Concurrency: 2})
}

func TestGenerateIsIdempotent(t *testing.T) {
	artifacts := newMemStore()
	synth := &fakeSynth{}
	gen := newTestGenerator(synth, artifacts)
	key := VocabAudioKey("section_01", "v01_01")

	outcome, err := gen.Generate(context.Background(), "der Arzt", key, clinicianVoice)
	if err != nil || outcome != OutcomeGenerated {
		t.Fatalf("first run: outcome=%v err=%v", outcome, err)
	}
	first := bytes.Clone(artifacts.objects[key])

	for i := 0; i < 2; i++ {
		outcome, err = gen.Generate(context.Background(), "der Arzt", key, clinicianVoice)
		if err != nil || outcome != OutcomeSkipped {
			t.Fatalf("rerun %d: outcome=%v err=%v", i, outcome, err)
		}
	}
	if len(synth.calls) != 1 {
		t.Fatalf("synthesizer called %d times, want 1", len(synth.calls))
	}
	if !bytes.Equal(artifacts.objects[key], first) {
		t.Fatalf("artifact bytes changed across reruns")
	}
}

func TestGenerateRejectsEmptyText(t *testing.T) {
	gen := newTestGenerator(&fakeSynth{}, newMemStore())
	outcome, err := gen.Generate(context.Background(), "", "sections/s/vocabulary/v1.mp3", clinicianVoice)
	if outcome != OutcomeFailed || err == nil {
		t.Fatalf("outcome=%v err=%v, want failed", outcome, err)
	}
}

func TestGenerateFailureDoesNotWrite(t *testing.T) {
	artifacts := newMemStore()
	synth := &fakeSynth{failOn: "kaputt"}
	gen := newTestGenerator(synth, artifacts)
	key := VocabAudioKey("section_01", "v01_02")

	outcome, err := gen.Generate(context.Background(), "kaputt", key, clinicianVoice)
	if outcome != OutcomeFailed || err == nil {
		t.Fatalf("outcome=%v err=%v, want failed", outcome, err)
	}
	if _, ok := artifacts.objects[key]; ok {
		t.Fatalf("failed generation left an artifact behind")
	}
}

func testSection() *models.Section {
	return &models.Section{
		ID: "section_01",
		Vocabulary: []models.VocabularyItem{
			{ID: "v01_01", GermanTerm: "das Krankenhaus"},
			{ID: "v01_02", GermanTerm: "die Schwester"},
		},
		Dialogues: []models.Dialogue{{
			ID: "d01_01",
			Lines: []models.DialogueLine{
				{Speaker: "Dr. Schmidt", GermanText: "Guten Morgen, Frau Müller."},
				{Speaker: "Patient Müller", GermanText: "Guten Morgen, Herr Doktor."},
			},
		}},
	}
}

func TestGenerateSectionResumesAfterPartialRun(t *testing.T) {
	artifacts := newMemStore()
	// One vocabulary artifact survives from an earlier run.
	existingKey := VocabAudioKey("section_01", "v01_01")
	artifacts.objects[existingKey] = []byte("existing")

	section := testSection()
	synth := &fakeSynth{}
	gen := newTestGenerator(synth, artifacts)
	stats := &models.RunStats{}

	modified, failures := gen.GenerateSection(context.Background(), section, stats)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if !modified {
		t.Fatalf("expected audioUrl annotations to modify the section")
	}
	if stats.Skipped() != 1 || stats.Generated() != 3 || stats.Failed() != 0 {
		t.Fatalf("stats = %s, want generated=3 skipped=1 failed=0", stats.Summary())
	}
	if got := string(artifacts.objects[existingKey]); got != "existing" {
		t.Fatalf("pre-existing artifact was overwritten: %q", got)
	}

	// Every item now references its artifact, including the skipped one.
	if section.Vocabulary[0].AudioURL != AudioURL(existingKey) {
		t.Fatalf("skipped item audioUrl = %q", section.Vocabulary[0].AudioURL)
	}
	for l := range section.Dialogues[0].Lines {
		want := AudioURL(DialogueLineAudioKey("section_01", "d01_01", l+1))
		if got := section.Dialogues[0].Lines[l].AudioURL; got != want {
			t.Fatalf("line %d audioUrl = %q, want %q", l+1, got, want)
		}
	}
}

func TestGenerateSectionVoiceFollowsSpeaker(t *testing.T) {
	artifacts := newMemStore()
	section := testSection()
	gen := newTestGenerator(&fakeSynth{}, artifacts)

	_, failures := gen.GenerateSection(context.Background(), section, &models.RunStats{})
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}

	// The fake synthesizer embeds the voice name in the payload.
	line1 := artifacts.objects[DialogueLineAudioKey("section_01", "d01_01", 1)]
	line2 := artifacts.objects[DialogueLineAudioKey("section_01", "d01_01", 2)]
	if !bytes.Contains(line1, []byte("de-DE-Neural2-B")) {
		t.Fatalf("clinician line used voice payload %q", line1)
	}
	if !bytes.Contains(line2, []byte("de-DE-Neural2-C")) {
		t.Fatalf("patient line used voice payload %q", line2)
	}
}

func TestGenerateSectionIsolatesFailures(t *testing.T) {
	artifacts := newMemStore()
	section := testSection()
	synth := &fakeSynth{failOn: "die Schwester"}
	gen := newTestGenerator(synth, artifacts)
	stats := &models.RunStats{}

	_, failures := gen.GenerateSection(context.Background(), section, stats)
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly one", failures)
	}
	if stats.Failed() != 1 || stats.Generated() != 3 {
		t.Fatalf("stats = %s, want generated=3 failed=1", stats.Summary())
	}
	// The failed item keeps no audioUrl, so the next run retries it.
	if section.Vocabulary[1].AudioURL != "" {
		t.Fatalf("failed item was annotated: %q", section.Vocabulary[1].AudioURL)
	}
	if section.Vocabulary[0].AudioURL == "" {
		t.Fatalf("sibling item missing annotation")
	}
}
