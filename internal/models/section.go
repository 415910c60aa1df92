package models

import (
	"encoding/json"
	"fmt"
)

// Section is one lesson unit, backed by a single JSON document in the corpus.
// The pipeline only models the fields it reads or writes; everything else in
// the document is carried through Extra so an in-place rewrite never drops
// content it does not understand.
type Section struct {
	ID          string           `json:"id"`
	Title       LocalizedText    `json:"title,omitempty"`
	TextContent *TextContent     `json:"textContent,omitempty"`
	Vocabulary  []VocabularyItem `json:"vocabulary,omitempty"`
	Dialogues   []Dialogue       `json:"dialogues,omitempty"`
	Exercises   []Exercise       `json:"exercises,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// TextContent holds the prose fields the translator maintains per language.
type TextContent struct {
	LearningObjectives LocalizedList `json:"learningObjectives,omitempty"`
	GrammarFocus       LocalizedText `json:"grammarFocus,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// VocabularyItem is one term. ID is unique within its section.
type VocabularyItem struct {
	ID           string        `json:"id"`
	GermanTerm   string        `json:"germanTerm"`
	Translations LocalizedText `json:"translations,omitempty"`
	AudioURL     string        `json:"audioUrl,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Dialogue is an ordered conversation. Line identity is positional: the 1-based
// index of a line in Lines is the join key for its derived artifacts.
type Dialogue struct {
	ID    string         `json:"id"`
	Lines []DialogueLine `json:"lines"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DialogueLine is one utterance. Speaker text drives voice selection; position
// drives artifact naming.
type DialogueLine struct {
	Speaker      string        `json:"speaker"`
	SpeakerRole  string        `json:"speakerRole,omitempty"`
	GermanText   string        `json:"germanText"`
	Translations LocalizedText `json:"translations,omitempty"`
	AudioURL     string        `json:"audioUrl,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Exercise is opaque to the pipeline beyond its id, which names its document in
// the exercises sub-collection.
type Exercise map[string]any

// DocID returns the exercise's document id, or a positional fallback when the
// source document omits one.
func (e Exercise) DocID(index int) string {
	if id, ok := e["id"].(string); ok && id != "" {
		return id
	}
	return fmt.Sprintf("exercise_%02d", index+1)
}

// unmarshalWithExtra decodes data into known (a tag-aliased struct) and returns
// every top-level key not claimed by the struct.
func unmarshalWithExtra(data []byte, known any, knownKeys []string) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range knownKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// marshalWithExtra merges the struct's own fields with the preserved unknown
// keys. Known fields win on collision.
func marshalWithExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

var sectionKeys = []string{"id", "title", "textContent", "vocabulary", "dialogues", "exercises"}

func (s *Section) UnmarshalJSON(data []byte) error {
	type alias Section
	var a alias
	extra, err := unmarshalWithExtra(data, &a, sectionKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = Section(a)
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	type alias Section
	return marshalWithExtra(alias(s), s.Extra)
}

var textContentKeys = []string{"learningObjectives", "grammarFocus"}

func (t *TextContent) UnmarshalJSON(data []byte) error {
	type alias TextContent
	var a alias
	extra, err := unmarshalWithExtra(data, &a, textContentKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*t = TextContent(a)
	return nil
}

func (t TextContent) MarshalJSON() ([]byte, error) {
	type alias TextContent
	return marshalWithExtra(alias(t), t.Extra)
}

var vocabularyKeys = []string{"id", "germanTerm", "translations", "audioUrl"}

func (v *VocabularyItem) UnmarshalJSON(data []byte) error {
	type alias VocabularyItem
	var a alias
	extra, err := unmarshalWithExtra(data, &a, vocabularyKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*v = VocabularyItem(a)
	return nil
}

func (v VocabularyItem) MarshalJSON() ([]byte, error) {
	type alias VocabularyItem
	return marshalWithExtra(alias(v), v.Extra)
}

var dialogueKeys = []string{"id", "lines"}

func (d *Dialogue) UnmarshalJSON(data []byte) error {
	type alias Dialogue
	var a alias
	extra, err := unmarshalWithExtra(data, &a, dialogueKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*d = Dialogue(a)
	return nil
}

func (d Dialogue) MarshalJSON() ([]byte, error) {
	type alias Dialogue
	return marshalWithExtra(alias(d), d.Extra)
}

var dialogueLineKeys = []string{"speaker", "speakerRole", "germanText", "translations", "audioUrl"}

func (l *DialogueLine) UnmarshalJSON(data []byte) error {
	type alias DialogueLine
	var a alias
	extra, err := unmarshalWithExtra(data, &a, dialogueLineKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*l = DialogueLine(a)
	return nil
}

func (l DialogueLine) MarshalJSON() ([]byte, error) {
	type alias DialogueLine
	return marshalWithExtra(alias(l), l.Extra)
}
