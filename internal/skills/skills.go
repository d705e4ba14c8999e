// Package skills loads agentskills.io-compatible SKILL.md files from the
// workspace skills directory and renders their progressive-disclosure
// metadata for the system prompt (spec.md §4.6).
//
// Grounded on original_source/src/skills/mod.rs.
package skills

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/superhq-ai/neko/internal/neko"
)

// Skill is one loaded SKILL.md.
type Skill struct {
	Name          string
	Description   string
	License       string
	Compatibility string
	Metadata      map[string]string
	AllowedTools  []string
	Instructions  string
	Path          string // directory containing SKILL.md
}

type frontmatter struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	License       string            `yaml:"license"`
	Compatibility string            `yaml:"compatibility"`
	Metadata      map[string]string `yaml:"metadata"`
	AllowedTools  string            `yaml:"allowed-tools"`
}

// Load parses one SKILL.md file in full, including its body instructions.
func Load(path string, readFile func(string) ([]byte, error)) (Skill, error) {
	content, err := readFile(path)
	if err != nil {
		return Skill{}, neko.Wrap(neko.KindIO, err, "read %s", path)
	}
	fm, body, err := splitFrontmatter(string(content), path)
	if err != nil {
		return Skill{}, err
	}

	if err := validateSkillName(fm.Name); err != nil {
		return Skill{}, err
	}

	var allowed []string
	if fm.AllowedTools != "" {
		allowed = strings.Fields(fm.AllowedTools)
	}

	return Skill{
		Name:          fm.Name,
		Description:   fm.Description,
		License:       fm.License,
		Compatibility: fm.Compatibility,
		Metadata:      fm.Metadata,
		AllowedTools:  allowed,
		Instructions:  strings.TrimSpace(body),
		Path:          filepath.Dir(path),
	}, nil
}

// LoadMetadata parses just the name/description/path, skipping the body.
// LoadSkills does not use it: it loads every skill in full, and PromptXML
// renders only the name, description and location of each.
func LoadMetadata(path string, readFile func(string) ([]byte, error)) (name, description, dir string, err error) {
	content, readErr := readFile(path)
	if readErr != nil {
		return "", "", "", neko.Wrap(neko.KindIO, readErr, "read %s", path)
	}
	fm, _, splitErr := splitFrontmatter(string(content), path)
	if splitErr != nil {
		return "", "", "", splitErr
	}
	return fm.Name, fm.Description, filepath.Dir(path), nil
}

func splitFrontmatter(content, path string) (frontmatter, string, error) {
	if !strings.HasPrefix(content, "---") {
		return frontmatter{}, "", neko.New(neko.KindConfig, "skill at %s missing YAML frontmatter", path)
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return frontmatter{}, "", neko.New(neko.KindConfig, "skill at %s has invalid frontmatter format", path)
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return frontmatter{}, "", neko.Wrap(neko.KindConfig, err, "parse skill YAML at %s", path)
	}
	return fm, parts[2], nil
}

func validateSkillName(name string) error {
	if name == "" || len(name) > 64 {
		return neko.New(neko.KindConfig, "skill name must be 1-64 characters")
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return neko.New(neko.KindConfig, "skill name must not start or end with '-'")
	}
	if strings.Contains(name, "--") {
		return neko.New(neko.KindConfig, "skill name must not contain consecutive hyphens")
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return neko.New(neko.KindConfig, "skill name may only contain lowercase letters, digits, and hyphens")
		}
	}
	return nil
}

// LoadSkills discovers and loads every SKILL.md under workspace/skills.
// Malformed skills are logged and skipped, matching the original's
// warn-and-continue behaviour.
func LoadSkills(workspace string, log *slog.Logger) ([]Skill, error) {
	if log == nil {
		log = slog.Default()
	}
	skillsDir := filepath.Join(workspace, "skills")
	if _, err := os.Stat(skillsDir); err != nil {
		return nil, nil
	}

	var out []Skill
	err := filepath.WalkDir(skillsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != "SKILL.md" {
			return nil
		}
		skill, err := Load(path, os.ReadFile)
		if err != nil {
			log.Warn("failed to load skill", "path", path, "error", err)
			return nil
		}
		out = append(out, skill)
		return nil
	})
	if err != nil {
		return nil, neko.Wrap(neko.KindIO, err, "walk skills dir")
	}
	return out, nil
}

// PromptXML renders skills as the <available_skills> block injected into
// the system prompt (spec.md §4.6 progressive disclosure).
func PromptXML(skills []Skill) string {
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range skills {
		fmt.Fprintf(&b, "  <skill>\n    <name>%s</name>\n    <description>%s</description>\n    <location>%s/SKILL.md</location>\n  </skill>\n",
			s.Name, s.Description, s.Path)
	}
	b.WriteString("</available_skills>")
	return b.String()
}
