package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/store"
)

// memStore is an in-memory ArtifactStore for tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// writeErr, when set for a key, fails writes to that key.
	writeErr map[string]error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, writeErr: map[string]error{}}
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("read %s: not found", key)
	}
	return data, nil
}

func (s *memStore) Write(_ context.Context, key string, data []byte, _ store.WriteOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr[key]; err != nil {
		return err
	}
	s.objects[key] = data
	s.writes++
	return nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// fakeSynth is a deterministic SpeechSynthesizer that records its calls.
type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	// failOn, when matching the input text, fails the call.
	failOn string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, voice models.VoiceParams) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && text == f.failOn {
		return nil, fmt.Errorf("synthesis backend rejected %q", text)
	}
	f.calls = append(f.calls, text)
	return []byte("mp3:" + voice.VoiceName + ":" + text), nil
}

// fakeTranslator prefixes translations with the target language and can fail
// for a configured language.
type fakeTranslator struct {
	mu       sync.Mutex
	calls    int
	failLang string
}

func (f *fakeTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if targetLang == f.failLang {
		return "", fmt.Errorf("quota exceeded for %s", targetLang)
	}
	f.calls++
	return "[" + targetLang + "] " + text, nil
}
