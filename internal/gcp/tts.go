package gcp

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/meddeutsch/contentflow/internal/models"
)

// SpeechClient wraps the Cloud Text-to-Speech API behind the plain
// (text, voice) -> bytes contract the audio generator consumes.
type SpeechClient struct {
	client *texttospeech.Client
}

// NewSpeechClient creates the Text-to-Speech client.
func NewSpeechClient(ctx context.Context, opts ...option.ClientOption) (*SpeechClient, error) {
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &SpeechClient{client: client}, nil
}

// Synthesize renders text as MP3 audio with the given voice parameters.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, voice models.VoiceParams) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.VoiceName,
			SsmlGender:   ssmlGender(voice.Gender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  voice.SpeakingRate,
			Pitch:         voice.Pitch,
		},
	}

	resp, err := c.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	return resp.AudioContent, nil
}

func (c *SpeechClient) Close() error {
	return c.client.Close()
}

func ssmlGender(gender string) texttospeechpb.SsmlVoiceGender {
	switch gender {
	case "MALE":
		return texttospeechpb.SsmlVoiceGender_MALE
	case "FEMALE":
		return texttospeechpb.SsmlVoiceGender_FEMALE
	default:
		return texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED
	}
}
