package services

import "fmt"

// Artifact keys are the deterministic addresses of derived media. The same key
// is used as the blob path, the idempotence check, and the join key that
// re-attaches an artifact to its document field, so these functions are the
// single place the scheme is defined.
//
// Audio keys resolve under the audio staging root and the bucket's audio/
// prefix; video keys under the video equivalents.

// AudioURLBase is the path prefix recorded in audioUrl fields, matching where
// the app bundles the promoted audio assets.
const AudioURLBase = "assets/audio"

// VocabAudioKey addresses the pronunciation audio for one vocabulary item.
func VocabAudioKey(sectionID, vocabID string) string {
	return fmt.Sprintf("sections/%s/vocabulary/%s.mp3", sectionID, vocabID)
}

// DialogueLineAudioKey addresses the audio for one dialogue line. lineIndex is
// 1-based and must match the line's position in its dialogue at generation
// time.
func DialogueLineAudioKey(sectionID, dialogueID string, lineIndex int) string {
	return fmt.Sprintf("sections/%s/dialogues/%s_line%d.mp3", sectionID, dialogueID, lineIndex)
}

// VocabVideoKey addresses the caption video for one vocabulary item.
func VocabVideoKey(sectionID, vocabID string) string {
	return fmt.Sprintf("sections/%s/vocabulary/%s.mp4", sectionID, vocabID)
}

// DialogueLineVideoKey addresses the caption video for one dialogue line.
func DialogueLineVideoKey(sectionID, dialogueID string, lineIndex int) string {
	return fmt.Sprintf("sections/%s/dialogues/%s_line%d.mp4", sectionID, dialogueID, lineIndex)
}

// AudioURL is the document-field form of an audio artifact key.
func AudioURL(key string) string {
	return AudioURLBase + "/" + key
}
