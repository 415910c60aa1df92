package models

// VoiceParams selects the synthesis voice for one artifact.
type VoiceParams struct {
	LanguageCode string
	VoiceName    string
	Gender       string // "MALE" or "FEMALE"
	SpeakingRate float64
	Pitch        float64
}
