// Package prompt renders generation prompts from a retrieval context. The
// builder is pure: identical inputs produce byte-identical prompts.
package prompt

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"grantwright/internal/types"
)

// Baked-in section instructions. Compiled into the binary so the builder has
// no filesystem dependency.
//
//go:embed templates/sections.yaml
var embeddedTemplates embed.FS

// Corpus maps section kinds to their instruction sentences.
type Corpus struct {
	instructions map[types.SectionKind]string
}

type corpusFile struct {
	Sections []struct {
		Name        string `yaml:"name"`
		Instruction string `yaml:"instruction"`
	} `yaml:"sections"`
}

var defaultCorpus = mustLoadEmbedded()

func mustLoadEmbedded() *Corpus {
	data, err := embeddedTemplates.ReadFile("templates/sections.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded template corpus missing: %v", err))
	}
	c, err := parseCorpus(data)
	if err != nil {
		panic(fmt.Sprintf("embedded template corpus invalid: %v", err))
	}
	return c
}

func parseCorpus(data []byte) (*Corpus, error) {
	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse template corpus: %w", err)
	}
	instructions := make(map[types.SectionKind]string, len(file.Sections))
	for _, s := range file.Sections {
		if s.Name == "" || s.Instruction == "" {
			return nil, fmt.Errorf("template corpus entry missing name or instruction")
		}
		instructions[types.SectionKind(s.Name)] = s.Instruction
	}
	return &Corpus{instructions: instructions}, nil
}

// DefaultCorpus returns the baked-in instruction corpus.
func DefaultCorpus() *Corpus {
	return defaultCorpus
}

// LoadCorpus reads a user-provided YAML corpus. Sections not present in the
// file keep their baked-in instructions.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template corpus %s: %w", path, err)
	}
	loaded, err := parseCorpus(data)
	if err != nil {
		return nil, err
	}
	merged := make(map[types.SectionKind]string, len(defaultCorpus.instructions))
	for k, v := range defaultCorpus.instructions {
		merged[k] = v
	}
	for k, v := range loaded.instructions {
		merged[k] = v
	}
	return &Corpus{instructions: merged}, nil
}

// Instruction resolves the instruction for a section kind, falling back to
// the custom instruction for unknown kinds.
func (c *Corpus) Instruction(section types.SectionKind) string {
	if inst, ok := c.instructions[section]; ok {
		return inst
	}
	return c.instructions[types.SectionCustom]
}
