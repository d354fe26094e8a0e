package agent

import (
	"fmt"
	"strings"
)

// PromptBuilder helps construct dynamic prompts for agents. Sections are
// rendered in the order they were first added
type PromptBuilder struct {
	systemPrompt string
	sections     []*promptSection
}

type promptSection struct {
	title string
	keys  []string // set for key/value sections
	lines []string
}

// FactsSection is the section AddFact writes to
const FactsSection = "Key Facts"

// NewPromptBuilder creates a new prompt builder with a base system prompt
func NewPromptBuilder(systemPrompt string) *PromptBuilder {
	return &PromptBuilder{
		systemPrompt: systemPrompt,
		sections:     make([]*promptSection, 0),
	}
}

func (pb *PromptBuilder) section(title string) *promptSection {
	for _, s := range pb.sections {
		if s.title == title {
			return s
		}
	}

	s := &promptSection{title: title}
	pb.sections = append(pb.sections, s)
	return s
}

// AddFact adds a key-value fact to the prompt. Re-adding a key replaces its
// value in place
func (pb *PromptBuilder) AddFact(key, value string) *PromptBuilder {
	s := pb.section(FactsSection)
	line := fmt.Sprintf("%s: %s", key, value)

	for i, k := range s.keys {
		if k == key {
			s.lines[i] = line
			return pb
		}
	}

	s.keys = append(s.keys, key)
	s.lines = append(s.lines, line)
	return pb
}

// AddSection appends bullet lines under a titled section
func (pb *PromptBuilder) AddSection(title string, lines ...string) *PromptBuilder {
	s := pb.section(title)
	s.lines = append(s.lines, lines...)
	return pb
}

// Build constructs the final prompt
func (pb *PromptBuilder) Build() string {
	parts := []string{pb.systemPrompt}

	for _, s := range pb.sections {
		if len(s.lines) == 0 {
			continue
		}

		parts = append(parts, fmt.Sprintf("\n## %s:", s.title))
		for _, line := range s.lines {
			parts = append(parts, "- "+line)
		}
	}

	return strings.Join(parts, "\n")
}
