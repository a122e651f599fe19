package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(id string) Activity {
	return Activity{ID: id, DisplayName: id, TaskType: id, Category: "search"}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		reg     ActivityRegistry
		wantErr string
	}{
		{"valid", ActivityRegistry{Activities: []Activity{activity("a"), activity("b")}}, ""},
		{"empty", ActivityRegistry{}, "no activities"},
		{"duplicate id", ActivityRegistry{Activities: []Activity{activity("a"), activity("a")}}, "duplicate activity ID: a"},
		{"missing task type", ActivityRegistry{Activities: []Activity{{ID: "a", DisplayName: "A", Category: "search"}}}, "missing required field: TaskType"},
		{"shared task type", ActivityRegistry{Activities: []Activity{
			activity("a"),
			{ID: "b", DisplayName: "B", TaskType: "a", Category: "search"},
		}}, "duplicate task type: a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLookupAndMissing(t *testing.T) {
	reg := ActivityRegistry{Activities: []Activity{activity("rank-results"), activity("classify-intent")}}

	a, ok := reg.Lookup("rank-results")
	require.True(t, ok)
	assert.Equal(t, "rank-results", a.ID)

	_, ok = reg.Lookup("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"answer-query", "zeta"}, reg.Missing([]string{"zeta", "classify-intent", "answer-query"}))
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.0.0","activities":[
		{"id":"classify-intent","displayName":"Classify Intent","category":"search","taskType":"classify-intent","implementationStatus":"completed","timeout":"5s"}
	]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Activities, 1)
	assert.Equal(t, "completed", reg.Activities[0].Status)
	assert.NoError(t, reg.Validate())

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestShippedRegistryIsValid(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)
	assert.NoError(t, reg.Validate())
}
