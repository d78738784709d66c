package instance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dracor-org/stabledracor/internal/model"
	"github.com/dracor-org/stabledracor/internal/stack"
)

// TestStateCarriesProvenanceAcrossInstances walks the two-step
// workflow: one instance imports a play at a pinned commit and saves
// its state, a second instance restores that state. The manifest of the
// second instance, and with it the labels of a frozen image, must still
// carry the identity and the commit pin.
func TestStateCarriesProvenanceAcrossInstances(t *testing.T) {
	gh := newFakeGitHub(t, "dracor-org", "tatdracor", "abc123def456")
	gh.teiFiles["askarov-auylym-yrlary.xml"] = "<TEI>play</TEI>"

	local := newFakeDracor(t)
	path := filepath.Join(t.TempDir(), "state.json")

	first := New(local.client(), WithName("snapshot"), WithGitHubClient(gh.client()))
	_, err := first.AddPlayFromRepo(context.Background(), "tat", "dracor-org", "tatdracor",
		"askarov-auylym-yrlary", "abc123def456")
	require.NoError(t, err)
	require.NoError(t, first.SaveState(path))

	st, err := LoadState(path)
	require.NoError(t, err)
	require.NotNil(t, st)

	second := New(local.client(), WithState(st))
	assert.Equal(t, first.ID(), second.ID(), "identity must survive into the next run")
	assert.Equal(t, "snapshot", second.Name())

	m := second.Manifest(context.Background())
	record := m.Corpora["tat"]
	require.NotNil(t, record)
	require.NotEmpty(t, record.Sources, "provenance must survive into the next run")

	labels := stack.BuildLabels(m)
	commits := 0
	for key, value := range labels {
		if strings.HasSuffix(key, ".commit") {
			commits++
			assert.Equal(t, "abc123def456", value)
		}
	}
	assert.Equal(t, 1, commits, "frozen image labels must pin the source commit")
}

func TestLoadStateMissingFile(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestLoadStateInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := LoadState(path)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBadInput, cliErr.Code)
}

// TestWithStatePrecedence verifies that configured name and description
// win over the saved ones, while the saved ID always sticks.
func TestWithStatePrecedence(t *testing.T) {
	st := &State{System: model.SystemInfo{ID: "fixed-id", Name: "saved-name"}}

	i := New(nil, WithName("config-name"), WithState(st))
	assert.Equal(t, "fixed-id", i.ID())
	assert.Equal(t, "config-name", i.Name())

	i = New(nil, WithState(st))
	assert.Equal(t, "saved-name", i.Name())
}
