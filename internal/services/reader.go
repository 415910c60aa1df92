package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meddeutsch/contentflow/internal/models"
)

// ErrCorpusNotFound is returned when the corpus root directory does not exist.
// It is a fatal precondition for every tool.
var ErrCorpusNotFound = errors.New("corpus root not found")

// MalformedSectionError reports one section document that could not be read
// into the Section shape. The corpus run continues past it.
type MalformedSectionError struct {
	File string
	Err  error
}

func (e *MalformedSectionError) Error() string {
	return fmt.Sprintf("malformed section %s: %v", e.File, e.Err)
}

func (e *MalformedSectionError) Unwrap() error { return e.Err }

// SectionFile pairs a parsed section with the file it came from, so the
// annotating tools can rewrite it in place.
type SectionFile struct {
	Path    string
	Section *models.Section
}

// Corpus reads and writes the section documents under a root directory.
type Corpus struct {
	Root string
}

// ReadSections returns every section under the corpus root in stable,
// filename-sorted order, which keeps run-to-run numbering and artifact keys
// reproducible. Malformed files are collected and skipped, never fatal; only a
// missing root aborts.
func (c Corpus) ReadSections() ([]SectionFile, []error, error) {
	entries, err := os.ReadDir(c.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, c.Root)
		}
		return nil, nil, fmt.Errorf("failed to read corpus root %s: %w", c.Root, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var sections []SectionFile
	var malformed []error
	for _, name := range names {
		path := filepath.Join(c.Root, name)
		section, err := readSectionFile(path)
		if err != nil {
			malformed = append(malformed, &MalformedSectionError{File: name, Err: err})
			continue
		}
		sections = append(sections, SectionFile{Path: path, Section: section})
	}
	return sections, malformed, nil
}

func readSectionFile(path string) (*models.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var section models.Section
	if err := json.Unmarshal(data, &section); err != nil {
		return nil, err
	}
	if section.ID == "" {
		return nil, errors.New("missing id field")
	}
	return &section, nil
}

// WriteSection rewrites a section document in place, pretty-printed, after
// artifact paths or translations were added to the in-memory graph.
func (c Corpus) WriteSection(sf SectionFile) error {
	data, err := json.MarshalIndent(sf.Section, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal section %s: %w", sf.Section.ID, err)
	}
	if err := os.WriteFile(sf.Path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", sf.Path, err)
	}
	return nil
}
