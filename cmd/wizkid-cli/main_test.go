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

	"wizkid-search/internal/models"
	answerquery "wizkid-search/internal/workers/search/answer-query"
)

func TestClassifyCommand(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"wizkid-cli", "classify", "pharmacy", "near", "me"})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "local", got["intent"])
}

func TestClassifyCommand_RequiresQuestion(t *testing.T) {
	err := newApp(&bytes.Buffer{}).Run([]string{"wizkid-cli", "classify"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")
}

func TestAskCommand_LocalWithoutLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signals:
  backend: none
pipeline:
  locate_by_network: false
`), 0o600))

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"wizkid-cli", "--config", path, "ask", "doctor", "near", "me"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var status, final models.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &status))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &final))
	assert.Equal(t, models.EventStatus, status.Type)
	assert.Equal(t, answerquery.StatusNeedLocation, status.Msg)
	assert.Equal(t, models.EventFinal, final.Type)
	require.NotNil(t, final.Snapshot)
	assert.Equal(t, answerquery.NeedLocationMarkdown, final.Snapshot.Markdown)
	assert.Equal(t, models.ConfidenceLow, final.Snapshot.Confidence)
}

func TestAskCommand_MissingConfigFile(t *testing.T) {
	err := newApp(&bytes.Buffer{}).Run([]string{"wizkid-cli", "--config", "/nonexistent/config.yaml", "ask", "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestRegistryCommand(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"wizkid-cli", "registry", "--path", "../../configs/activity-registry.json"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 8)
	assert.Contains(t, out.String(), "answer-query\t")
}

func TestRegistryCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"activities":[]}`), 0o600))

	err := newApp(&bytes.Buffer{}).Run([]string{"wizkid-cli", "registry", "--path", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no activities")
}
