package models

import (
	"encoding/json"
	"sort"
)

// SourceLanguage is the authoritative language for textContent fields. Entries in
// other languages are derived from it and may be regenerated; the source entry
// itself is never overwritten by the pipeline.
const SourceLanguage = "en"

// TargetLanguages are the languages the content translator maintains alongside
// the source entry.
var TargetLanguages = []string{"bn", "hi", "ur", "tr"}

// LocalizedText maps a language code to a translated string. Older corpus files
// store some of these fields as a bare string; that shape decodes as the
// source-language entry.
type LocalizedText map[string]string

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = LocalizedText{SourceLanguage: s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = LocalizedText(m)
	return nil
}

// Source returns the authoritative entry, falling back to the German entry for
// fields that predate the multilingual format.
func (t LocalizedText) Source() string {
	if s, ok := t[SourceLanguage]; ok && s != "" {
		return s
	}
	return t["de"]
}

// LocalizedList maps a language code to an ordered list of translated strings.
// A bare JSON array decodes as the source-language entry.
type LocalizedList map[string][]string

func (l *LocalizedList) UnmarshalJSON(data []byte) error {
	var entries []string
	if err := json.Unmarshal(data, &entries); err == nil {
		*l = LocalizedList{SourceLanguage: entries}
		return nil
	}
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*l = LocalizedList(m)
	return nil
}

// Source returns the authoritative list.
func (l LocalizedList) Source() []string {
	return l[SourceLanguage]
}

// Languages returns the language codes present, sorted for deterministic logs.
func (l LocalizedList) Languages() []string {
	codes := make([]string, 0, len(l))
	for code := range l {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
