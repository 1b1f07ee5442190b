package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckConfig_Valid(t *testing.T) {
	out, err := runCommand(t, "", "check-config", testhelpers.ConfigPath(t))
	require.NoError(t, err)

	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "version:          2026.10.1")
	assert.Contains(t, out, `category "general" has no rule set`)
}

func TestCheckConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: broken\ncategories: []\n"), 0o600))

	_, err := runCommand(t, "", "check-config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "categories")
}

func TestClassify_SingleRequestFromStdin(t *testing.T) {
	out, err := runCommand(t, `{"id": "cli-1", "payload": {"location_id": "A-01-B-03"}}`,
		"--catalog", testhelpers.ConfigPath(t), "classify")
	require.NoError(t, err)

	var record domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record), out)
	assert.Equal(t, "cli-1", record.RequestID)
	assert.Equal(t, domain.StateCompleted, record.State)
	assert.Equal(t, "locations", record.Bundle.Primary.Category)
}

func TestClassify_BatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")
	body := `[
		{"id": "a", "payload": {"location_id": "A-01-B-03"}},
		{"id": "b", "payload": {}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := runCommand(t, "", "--catalog", testhelpers.ConfigPath(t), "classify", "--file", path)
	require.NoError(t, err)

	var records []domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records), out)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].RequestID)
	assert.Equal(t, "general", records[1].Bundle.Primary.Category)
	assert.Equal(t, domain.StateManualReview, records[1].State)
}

func TestClassify_BlankTextIsRejected(t *testing.T) {
	out, err := runCommand(t, "", "--catalog", testhelpers.ConfigPath(t), "classify", "--text", " ", "--id", "t-1")
	require.ErrorIs(t, err, domain.ErrInputRejected)

	var record domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record), out)
	assert.Equal(t, domain.StateFailed, record.State)
}

func TestClassify_NoInput(t *testing.T) {
	_, err := runCommand(t, "  ", "--catalog", testhelpers.ConfigPath(t), "classify")
	assert.ErrorContains(t, err, "no requests given")
}
