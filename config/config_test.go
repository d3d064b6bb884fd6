package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestLoadMissingFileReturnsEmptyConfigNoError(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, &Config{}, c)
}

func TestLoadParsesKnownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taut.yaml", `
include:
  - "^suite/"
exclude:
  - "^suite/slow"
generate:
  - "foo//1"
color: false
unicode: true
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"^suite/"}, c.Include)
	require.Equal(t, []string{"^suite/slow"}, c.Exclude)
	require.Equal(t, []string{"foo//1"}, c.Generate)
	require.NotNil(t, c.Color)
	require.False(t, *c.Color)
	require.NotNil(t, c.Unicode)
	require.True(t, *c.Unicode)
	require.Nil(t, c.Progress)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taut.yaml", "include: [unterminated\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadFindsCandidateFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { require.NoError(t, os.Chdir(cwd)) }()

	require.NoError(t, os.Chdir(dir))
	writeFile(t, dir, ".taut.yaml", "unicode: false\n")

	c, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, c.Unicode)
	require.False(t, *c.Unicode)
}

func TestMergeBoolPrefersChangedFlag(t *testing.T) {
	fromFile := boolPtr(false)
	require.True(t, MergeBool(true, true, fromFile, false))
}

func TestMergeBoolFallsBackToFileWhenFlagUnchanged(t *testing.T) {
	fromFile := boolPtr(true)
	require.True(t, MergeBool(false, false, fromFile, false))
}

func TestMergeBoolFallsBackToDefaultWhenNeitherSet(t *testing.T) {
	require.True(t, MergeBool(false, false, nil, true))
}

func TestMergeStringsPrependsFileEntries(t *testing.T) {
	got := MergeStrings([]string{"cli1"}, []string{"file1", "file2"})
	require.Equal(t, []string{"file1", "file2", "cli1"}, got)
}

func TestMergeStringsEmptyFileReturnsFlagsUnchanged(t *testing.T) {
	got := MergeStrings([]string{"cli1"}, nil)
	require.Equal(t, []string{"cli1"}, got)
}

func boolPtr(b bool) *bool { return &b }
