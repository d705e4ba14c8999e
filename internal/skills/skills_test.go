package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSkillName(t *testing.T) {
	require.NoError(t, validateSkillName("pdf-processing"))
	require.NoError(t, validateSkillName("data-analysis"))
	require.NoError(t, validateSkillName("myskill"))

	require.Error(t, validateSkillName(""))
	require.Error(t, validateSkillName("-bad"))
	require.Error(t, validateSkillName("bad-"))
	require.Error(t, validateSkillName("bad--name"))
	require.Error(t, validateSkillName("Bad"))
}

func TestLoad_ParsesFrontmatterAndBody(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "test-skill")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))

	content := `---
name: test-skill
description: A test skill for unit testing.
license: MIT
metadata:
  author: test
  version: "1.0"
allowed-tools: exec read_file
---

# Test Skill

Do the test thing.
`
	path := filepath.Join(skillDir, "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	skill, err := Load(path, os.ReadFile)
	require.NoError(t, err)
	require.Equal(t, "test-skill", skill.Name)
	require.Equal(t, "A test skill for unit testing.", skill.Description)
	require.Equal(t, "MIT", skill.License)
	require.Equal(t, []string{"exec", "read_file"}, skill.AllowedTools)
	require.Contains(t, skill.Instructions, "Do the test thing")
	require.Equal(t, "test", skill.Metadata["author"])
}

func TestLoad_RejectsMissingFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte("# no frontmatter"), 0o644))

	_, err := Load(path, os.ReadFile)
	require.Error(t, err)
}

func TestLoadSkills_DiscoversUnderWorkspace(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "skills", "my-skill")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"),
		[]byte("---\nname: my-skill\ndescription: Does stuff.\n---\n\nInstructions here.\n"), 0o644))

	loaded, err := LoadSkills(dir, nil)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "my-skill", loaded[0].Name)
}

func TestLoadSkills_NoSkillsDirReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	loaded, err := LoadSkills(dir, nil)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestPromptXML(t *testing.T) {
	list := []Skill{{Name: "test", Description: "Test skill", Path: "/skills/test"}}
	xml := PromptXML(list)
	require.Contains(t, xml, "<available_skills>")
	require.Contains(t, xml, "<name>test</name>")
	require.Contains(t, xml, "<description>Test skill</description>")

	require.Equal(t, "", PromptXML(nil))
}
