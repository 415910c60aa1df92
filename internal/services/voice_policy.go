package services

import (
	"strings"

	"github.com/meddeutsch/contentflow/internal/models"
)

// VoiceRule maps a speaker marker to a voice. Matching is case-insensitive
// substring containment, evaluated in order.
type VoiceRule struct {
	Marker string
	Voice  models.VoiceParams
}

// VoicePolicy is the explicit, overridable speaker-to-voice mapping. It is a
// policy table, not logic: the dialogue voice is chosen purely from the
// speaker text, never from the line's position, so the same speaker sounds the
// same everywhere.
type VoicePolicy struct {
	Rules      []VoiceRule
	Default    models.VoiceParams
	Vocabulary models.VoiceParams
}

// Clinician and default voices for the German corpus. Rate 0.9 keeps speech
// slightly slower for learners.
var (
	clinicianVoice = models.VoiceParams{
		LanguageCode: "de-DE",
		VoiceName:    "de-DE-Neural2-B",
		Gender:       "MALE",
		SpeakingRate: 0.9,
	}
	patientVoice = models.VoiceParams{
		LanguageCode: "de-DE",
		VoiceName:    "de-DE-Neural2-C",
		Gender:       "FEMALE",
		SpeakingRate: 0.9,
	}
)

// DefaultVoicePolicy selects the clinician voice for speakers carrying a
// clinician role marker and the patient voice for everyone else. Vocabulary
// terms always use the clinician voice.
func DefaultVoicePolicy() VoicePolicy {
	return VoicePolicy{
		Rules: []VoiceRule{
			{Marker: "dr.", Voice: clinicianVoice},
			{Marker: "doktor", Voice: clinicianVoice},
			{Marker: "arzt", Voice: clinicianVoice},
			{Marker: "ärztin", Voice: clinicianVoice},
		},
		Default:    patientVoice,
		Vocabulary: clinicianVoice,
	}
}

// ForSpeaker returns the voice for a dialogue line's speaker text.
func (p VoicePolicy) ForSpeaker(speaker string) models.VoiceParams {
	lower := strings.ToLower(speaker)
	for _, rule := range p.Rules {
		if strings.Contains(lower, rule.Marker) {
			return rule.Voice
		}
	}
	return p.Default
}
