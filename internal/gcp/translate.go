package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// TranslateClient wraps the Translation API v2 behind the plain
// (text, targetLanguage) -> text contract the reconciler consumes.
type TranslateClient struct {
	client *translate.Client
	source language.Tag
}

// NewTranslateClient creates the Translation API client. sourceLang is the
// corpus source language code ("en").
func NewTranslateClient(ctx context.Context, sourceLang string, opts ...option.ClientOption) (*TranslateClient, error) {
	source, err := language.Parse(sourceLang)
	if err != nil {
		return nil, fmt.Errorf("invalid source language %q: %w", sourceLang, err)
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate client: %w", err)
	}
	return &TranslateClient{client: client, source: source}, nil
}

// Translate translates text into the target language.
func (c *TranslateClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	target, err := language.Parse(targetLang)
	if err != nil {
		return "", fmt.Errorf("invalid target language %q: %w", targetLang, err)
	}

	translations, err := c.client.Translate(ctx, []string{text}, target, &translate.Options{
		Source: c.source,
		Format: translate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", targetLang, err)
	}
	if len(translations) == 0 || translations[0].Text == "" {
		return "", fmt.Errorf("translate to %s: empty response", targetLang)
	}
	return translations[0].Text, nil
}

func (c *TranslateClient) Close() error {
	return c.client.Close()
}
