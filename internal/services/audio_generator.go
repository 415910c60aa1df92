package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/store"
)

// Outcome classifies one generation attempt.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeGenerated
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeGenerated:
		return "generated"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SpeechSynthesizer is the external speech backend, consumed at its interface
// boundary only.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice models.VoiceParams) ([]byte, error)
}

// AudioGeneratorConfig tunes the generator.
type AudioGeneratorConfig struct {
	// Concurrency bounds parallel synthesis calls across distinct artifacts.
	Concurrency int
	// CallTimeout bounds one synthesis call plus its store write.
	CallTimeout time.Duration
}

// AudioGenerator derives speech audio for vocabulary items and dialogue lines.
// Generation is idempotent: an artifact already present in the store is never
// regenerated, which is what makes repeated runs over a growing corpus cheap
// and safe to resume.
type AudioGenerator struct {
	synth  SpeechSynthesizer
	store  store.ArtifactStore
	policy VoicePolicy
	config AudioGeneratorConfig
}

func NewAudioGenerator(synth SpeechSynthesizer, artifacts store.ArtifactStore, policy VoicePolicy, config AudioGeneratorConfig) *AudioGenerator {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 60 * time.Second
	}
	return &AudioGenerator{synth: synth, store: artifacts, policy: policy, config: config}
}

// Generate produces the artifact at key from text, unless it already exists.
// A failure is returned for the caller to aggregate; it never aborts the
// enclosing batch. Safe to call concurrently across distinct keys.
func (g *AudioGenerator) Generate(ctx context.Context, text, key string, voice models.VoiceParams) (Outcome, error) {
	if text == "" {
		return OutcomeFailed, fmt.Errorf("%s: empty source text", key)
	}

	exists, err := g.store.Exists(ctx, key)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%s: existence check: %w", key, err)
	}
	if exists {
		return OutcomeSkipped, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
	defer cancel()

	audio, err := g.synth.Synthesize(callCtx, text, voice)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%s: synthesize: %w", key, err)
	}
	writeOpts := store.WriteOptions{ContentType: "audio/mpeg", CacheControl: "public, max-age=31536000"}
	if err := g.store.Write(callCtx, key, audio, writeOpts); err != nil {
		return OutcomeFailed, fmt.Errorf("%s: write: %w", key, err)
	}
	return OutcomeGenerated, nil
}

// GenerateSection derives audio for every vocabulary item and dialogue line of
// one section with bounded parallelism, records outcomes in stats, and
// annotates audioUrl on each item whose artifact is confirmed present. It
// returns the per-artifact failures and whether any annotation changed the
// section.
func (g *AudioGenerator) GenerateSection(ctx context.Context, section *models.Section, stats *models.RunStats) (bool, []error) {
	logCtx := slog.With("sectionId", section.ID)
	logCtx.Info("Generating section audio.",
		"vocabulary", len(section.Vocabulary), "dialogues", len(section.Dialogues))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.Concurrency)

	type result struct {
		outcome Outcome
		err     error
	}
	vocabResults := make([]result, len(section.Vocabulary))

	for i := range section.Vocabulary {
		eg.Go(func() error {
			item := &section.Vocabulary[i]
			key := VocabAudioKey(section.ID, item.ID)
			outcome, err := g.Generate(gctx, item.GermanTerm, key, g.policy.Vocabulary)
			vocabResults[i] = result{outcome, err}
			return nil
		})
	}

	lineResults := make([][]result, len(section.Dialogues))
	for d := range section.Dialogues {
		lineResults[d] = make([]result, len(section.Dialogues[d].Lines))
		for l := range section.Dialogues[d].Lines {
			eg.Go(func() error {
				dialogue := &section.Dialogues[d]
				line := &dialogue.Lines[l]
				key := DialogueLineAudioKey(section.ID, dialogue.ID, l+1)
				voice := g.policy.ForSpeaker(line.Speaker)
				outcome, err := g.Generate(gctx, line.GermanText, key, voice)
				lineResults[d][l] = result{outcome, err}
				return nil
			})
		}
	}

	// Workers only record outcomes; Wait's error can only be a context error.
	if err := eg.Wait(); err != nil {
		return false, []error{err}
	}

	var failures []error
	modified := false
	record := func(r result, key string, annotate func(url string)) {
		switch r.outcome {
		case OutcomeGenerated:
			stats.AddGenerated()
		case OutcomeSkipped:
			stats.AddSkipped()
		case OutcomeFailed:
			stats.AddFailed()
			failures = append(failures, r.err)
			logCtx.Error("Audio generation failed.", "key", key, "error", r.err)
			return
		}
		// Generated or skipped both mean the artifact exists in the store, so
		// the document field may now reference it.
		annotate(AudioURL(key))
	}

	for i := range section.Vocabulary {
		item := &section.Vocabulary[i]
		record(vocabResults[i], VocabAudioKey(section.ID, item.ID), func(url string) {
			if item.AudioURL != url {
				item.AudioURL = url
				modified = true
			}
		})
	}
	for d := range section.Dialogues {
		dialogue := &section.Dialogues[d]
		for l := range dialogue.Lines {
			line := &dialogue.Lines[l]
			record(lineResults[d][l], DialogueLineAudioKey(section.ID, dialogue.ID, l+1), func(url string) {
				if line.AudioURL != url {
					line.AudioURL = url
					modified = true
				}
			})
		}
	}
	return modified, failures
}

// IsContextErr reports whether err is a cancellation rather than a real
// per-artifact failure, so callers can stop cleanly between sections.
func IsContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
