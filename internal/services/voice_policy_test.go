package services

import "testing"

func TestVoicePolicySpeakerSelection(t *testing.T) {
	policy := DefaultVoicePolicy()

	cases := []struct {
		speaker string
		want    string
	}{
		{"Dr. Schmidt", "de-DE-Neural2-B"},
		{"Oberarzt Bauer", "de-DE-Neural2-B"},
		{"Assistenzarzt Klein", "de-DE-Neural2-B"},
		{"DOKTOR WEBER", "de-DE-Neural2-B"},
		{"Patient Müller", "de-DE-Neural2-C"},
		{"Schwester Weber", "de-DE-Neural2-C"},
		{"", "de-DE-Neural2-C"},
	}
	for _, tc := range cases {
		voice := policy.ForSpeaker(tc.speaker)
		if voice.VoiceName != tc.want {
			t.Fatalf("ForSpeaker(%q) = %s, want %s", tc.speaker, voice.VoiceName, tc.want)
		}
	}
}

func TestVoicePolicyOverride(t *testing.T) {
	policy := DefaultVoicePolicy()
	policy.Rules = append([]VoiceRule{{Marker: "schwester", Voice: clinicianVoice}}, policy.Rules...)

	if got := policy.ForSpeaker("Schwester Weber"); got.VoiceName != clinicianVoice.VoiceName {
		t.Fatalf("override rule ignored, got %s", got.VoiceName)
	}
}

func TestVocabularyVoiceIsSlowedForLearners(t *testing.T) {
	policy := DefaultVoicePolicy()
	if policy.Vocabulary.SpeakingRate != 0.9 {
		t.Fatalf("vocabulary speaking rate = %v, want 0.9", policy.Vocabulary.SpeakingRate)
	}
	if policy.Vocabulary.LanguageCode != "de-DE" {
		t.Fatalf("vocabulary language = %s", policy.Vocabulary.LanguageCode)
	}
}
