package loader

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the optional YAML block at the top of a schema file.
// Unknown fields cause parse errors.
type Frontmatter struct {
	// DependsOn lists objects every statement in the file depends on,
	// for references the extractor cannot see (function bodies, triggers).
	DependsOn []string `yaml:"depends_on"`
	// Skip excludes the whole file from the merge.
	Skip bool `yaml:"skip"`
	// Description is free text, shown by `graph`.
	Description string `yaml:"description"`
}

// FrontmatterResult holds the result of frontmatter extraction.
type FrontmatterResult struct {
	Config  *Frontmatter
	SQL     string // SQL content with the frontmatter block blanked out
	HasYAML bool   // Whether frontmatter was found
}

// frontmatterPattern matches a leading /*--- ... ---*/ block
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

// ExtractFrontmatter extracts YAML frontmatter from SQL content.
// The block is replaced by the same number of newlines so line numbers in
// later errors still point into the original file.
func ExtractFrontmatter(content string) (*FrontmatterResult, error) {
	result := &FrontmatterResult{
		Config: &Frontmatter{},
		SQL:    content,
	}

	loc := frontmatterPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return result, nil
	}

	result.HasYAML = true
	block := content[loc[0]:loc[1]]
	yamlContent := content[loc[2]:loc[3]]
	result.SQL = strings.Repeat("\n", strings.Count(block, "\n")) + content[loc[1]:]

	config, err := parseFrontmatterYAML(yamlContent)
	if err != nil {
		return nil, err
	}

	result.Config = config
	return result, nil
}

var knownFields = map[string]bool{
	"depends_on":  true,
	"skip":        true,
	"description": true,
}

// parseFrontmatterYAML parses YAML content with strict field validation.
func parseFrontmatterYAML(yamlContent string) (*Frontmatter, error) {
	var rawMap map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &rawMap); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	var config Frontmatter
	if err := yaml.Unmarshal([]byte(yamlContent), &config); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("failed to parse frontmatter: %v", err),
		}
	}

	for i, dep := range config.DependsOn {
		config.DependsOn[i] = strings.TrimSpace(dep)
		if config.DependsOn[i] == "" {
			return nil, &FrontmatterParseError{
				Message: fmt.Sprintf("depends_on[%d] is empty", i),
			}
		}
	}

	return &config, nil
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter (allowed: depends_on, skip, description)", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
