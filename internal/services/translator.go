package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/meddeutsch/contentflow/internal/models"
)

// Translator is the external translation backend, consumed at its interface
// boundary only.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// AcceptabilityPolicy decides whether a previously stored translation may be
// preserved. It is a policy table: a list of known-bad signatures left over
// from earlier faulty runs, plus the rule that a "translation" identical to
// its source text was never translated at all.
type AcceptabilityPolicy struct {
	// DenylistSubstrings mark untranslated boilerplate that leaked through a
	// previous run.
	DenylistSubstrings []string
	// DenylistPrefixes mark entries that are verbatim source-language
	// boilerplate.
	DenylistPrefixes []string
}

// DefaultAcceptabilityPolicy carries the signatures observed in the corpus
// after the faulty template-based translation runs.
func DefaultAcceptabilityPolicy() AcceptabilityPolicy {
	return AcceptabilityPolicy{
		DenylistSubstrings: []string{"appropriately", "German"},
		DenylistPrefixes:   []string{"**Formal vs."},
	}
}

// Acceptable reports whether an existing target-language entry may be
// preserved for the given source entry.
func (p AcceptabilityPolicy) Acceptable(existing, source string) bool {
	if existing == "" {
		return false
	}
	if existing == source {
		return false
	}
	for _, sig := range p.DenylistSubstrings {
		if strings.Contains(existing, sig) {
			return false
		}
	}
	for _, prefix := range p.DenylistPrefixes {
		if strings.HasPrefix(existing, prefix) {
			return false
		}
	}
	return true
}

// ReconcilerConfig tunes the translation reconciler.
type ReconcilerConfig struct {
	// Languages are the target language codes to maintain.
	Languages []string
	// MinCallInterval spaces external translation calls to respect rate
	// limits. Zero disables spacing (tests).
	MinCallInterval time.Duration
	// CallTimeout bounds one translation call.
	CallTimeout time.Duration
}

// TranslationReconciler merges freshly generated translations with previously
// stored ones. Accepted entries are preserved verbatim; everything else is
// regenerated. The source-language entry is authoritative and never touched.
type TranslationReconciler struct {
	translator Translator
	policy     AcceptabilityPolicy
	config     ReconcilerConfig
	limiter    *rate.Limiter
}

func NewTranslationReconciler(translator Translator, policy AcceptabilityPolicy, config ReconcilerConfig) *TranslationReconciler {
	if len(config.Languages) == 0 {
		config.Languages = models.TargetLanguages
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	limit := rate.Inf
	if config.MinCallInterval > 0 {
		limit = rate.Every(config.MinCallInterval)
	}
	return &TranslationReconciler{
		translator: translator,
		policy:     policy,
		config:     config,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// translate performs one rate-limited, timeout-bounded call. On failure it
// falls back to the source text, which the equals-source rule flags as
// unacceptable so a future run retries the entry.
func (r *TranslationReconciler) translate(ctx context.Context, text, lang string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return text, err
	}
	callCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	defer cancel()

	translated, err := r.translator.Translate(callCtx, text, lang)
	if err != nil {
		return text, fmt.Errorf("translate %q to %s: %w", truncate(text, 40), lang, err)
	}
	return translated, nil
}

// ReconcileList reconciles a multi-entry field entry-by-entry, by positional
// index. Indices beyond the new source length are dropped; new indices are
// always translated, never assumed acceptable. Returns the merged set, whether
// it differs from existing, and the per-entry failures.
func (r *TranslationReconciler) ReconcileList(ctx context.Context, source []string, existing models.LocalizedList) (models.LocalizedList, bool, []error) {
	merged := models.LocalizedList{models.SourceLanguage: source}
	var failures []error

	for _, lang := range r.config.Languages {
		entries := make([]string, len(source))
		for i, src := range source {
			if prev := existing[lang]; i < len(prev) && r.policy.Acceptable(prev[i], src) {
				entries[i] = prev[i]
				continue
			}
			translated, err := r.translate(ctx, src, lang)
			if err != nil {
				failures = append(failures, err)
			}
			entries[i] = translated
		}
		merged[lang] = entries
	}
	return merged, !listsEqual(merged, existing), failures
}

// ReconcileText reconciles a single prose field across target languages.
func (r *TranslationReconciler) ReconcileText(ctx context.Context, source string, existing models.LocalizedText) (models.LocalizedText, bool, []error) {
	merged := models.LocalizedText{models.SourceLanguage: source}
	// Entries outside the source/target set (e.g. the German original of a
	// grammar note) pass through untouched.
	for lang, text := range existing {
		if lang != models.SourceLanguage && !r.isTarget(lang) {
			merged[lang] = text
		}
	}
	var failures []error

	for _, lang := range r.config.Languages {
		if prev, ok := existing[lang]; ok && r.policy.Acceptable(prev, source) {
			merged[lang] = prev
			continue
		}
		translated, err := r.translate(ctx, source, lang)
		if err != nil {
			failures = append(failures, err)
		}
		merged[lang] = translated
	}
	return merged, !textsEqual(merged, existing), failures
}

// ReconcileSection reconciles the translated textContent fields of one
// section. Reports whether the in-memory section changed.
func (r *TranslationReconciler) ReconcileSection(ctx context.Context, section *models.Section) (bool, []error) {
	if section.TextContent == nil {
		return false, nil
	}
	logCtx := slog.With("sectionId", section.ID)

	modified := false
	var failures []error

	if objectives := section.TextContent.LearningObjectives.Source(); len(objectives) > 0 {
		logCtx.Info("Reconciling learning objectives.", "entries", len(objectives))
		merged, changed, errs := r.ReconcileList(ctx, objectives, section.TextContent.LearningObjectives)
		failures = append(failures, errs...)
		if changed {
			section.TextContent.LearningObjectives = merged
			modified = true
		}
	}

	if grammar := section.TextContent.GrammarFocus.Source(); grammar != "" {
		logCtx.Info("Reconciling grammar focus.", "chars", len(grammar))
		merged, changed, errs := r.ReconcileText(ctx, grammar, section.TextContent.GrammarFocus)
		failures = append(failures, errs...)
		if changed {
			section.TextContent.GrammarFocus = merged
			modified = true
		}
	}

	for _, err := range failures {
		logCtx.Error("Translation failed, source text kept for retry.", "error", err)
	}
	return modified, failures
}

func (r *TranslationReconciler) isTarget(lang string) bool {
	for _, l := range r.config.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func listsEqual(a, b models.LocalizedList) bool {
	if len(a) != len(b) {
		return false
	}
	for lang, entries := range a {
		other, ok := b[lang]
		if !ok || len(other) != len(entries) {
			return false
		}
		for i := range entries {
			if entries[i] != other[i] {
				return false
			}
		}
	}
	return true
}

func textsEqual(a, b models.LocalizedText) bool {
	if len(a) != len(b) {
		return false
	}
	for lang, text := range a {
		if b[lang] != text {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
