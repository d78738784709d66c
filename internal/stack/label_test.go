package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dracor-org/stabledracor/internal/model"
)

func testManifest() *model.Manifest {
	return &model.Manifest{
		Version: model.ManifestVersion,
		System: model.SystemInfo{
			ID:          "f81d4fae-7dec-11d0-a765-00a0c91e6bf6",
			Name:        "my-system",
			Description: "test fixture",
			Timestamp:   "2026-08-29T12:00:00Z",
		},
		Services: map[string]*model.Service{
			"api": {
				Container: "abc123",
				Image:     "dracor/dracor-api",
				Version:   "1.0.2",
				ExistDB:   "6.0.1",
			},
			"frontend": {
				Container: "def456",
				Image:     "dracor/dracor-frontend",
			},
		},
		Corpora: map[string]*model.CorpusRecord{
			"tat": {
				CorpusName: "tat",
				Timestamp:  "2026-08-29T12:01:00Z",
				NumOfPlays: 3,
				Sources: map[string]*model.Source{
					"github": {
						Type:       model.SourceRepository,
						CorpusName: "tat",
						URL:        "https://github.com/dracor-org/tatdracor",
						Commit:     "0d952cfd01e2f1f2ca57fdb071e7ee7028fcddb5",
						Timestamp:  "2026-08-29T12:01:00Z",
						NumOfPlays: 3,
						Exclude: &model.IDList{
							Type: "slug",
							IDs:  []string{"broken-play", "other-play"},
						},
					},
				},
			},
		},
	}
}

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels(testManifest())

	assert.Equal(t, model.ManifestVersion, labels["org.dracor.stable-dracor.version"])
	assert.Equal(t, "f81d4fae-7dec-11d0-a765-00a0c91e6bf6", labels["org.dracor.stable-dracor.system.id"])
	assert.Equal(t, "my-system", labels["org.dracor.stable-dracor.system.name"])

	assert.Equal(t, "api,frontend", labels["org.dracor.stable-dracor.services"],
		"service list should be sorted for deterministic labels")
	assert.Equal(t, "1.0.2", labels["org.dracor.stable-dracor.services.api.version"])
	assert.Equal(t, "6.0.1", labels["org.dracor.stable-dracor.services.api.existdb"])

	assert.Equal(t, "tat", labels["org.dracor.stable-dracor.corpora"])
	assert.Equal(t, "3", labels["org.dracor.stable-dracor.corpora.tat.num-of-plays"])
	assert.Equal(t, "github", labels["org.dracor.stable-dracor.corpora.tat.sources"])
	assert.Equal(t, "repository", labels["org.dracor.stable-dracor.corpora.tat.sources.github.type"])
	assert.Equal(t, "0d952cfd01e2f1f2ca57fdb071e7ee7028fcddb5",
		labels["org.dracor.stable-dracor.corpora.tat.sources.github.commit"])
	assert.Equal(t, "broken-play,other-play",
		labels["org.dracor.stable-dracor.corpora.tat.sources.github.exclude.ids"])

	_, exists := labels["org.dracor.stable-dracor.services.frontend.version"]
	assert.False(t, exists, "empty fields should not produce labels")
}

func TestParseLabelsRoundTrip(t *testing.T) {
	original := testManifest()

	parsed, err := ParseLabels(BuildLabels(original))
	require.NoError(t, err)

	assert.Equal(t, original.Version, parsed.Version)
	assert.Equal(t, original.System, parsed.System)
	assert.Equal(t, original.Corpora, parsed.Corpora)

	// Container IDs are runtime state and intentionally not encoded,
	// so compare services field by field.
	require.Len(t, parsed.Services, 2)
	assert.Equal(t, original.Services["api"].Image, parsed.Services["api"].Image)
	assert.Equal(t, original.Services["api"].Version, parsed.Services["api"].Version)
	assert.Equal(t, original.Services["api"].ExistDB, parsed.Services["api"].ExistDB)
	assert.Empty(t, parsed.Services["api"].Container)
}

func TestParseLabelsIgnoresForeignLabels(t *testing.T) {
	labels := BuildLabels(testManifest())
	labels["com.docker.compose.project"] = "something"
	labels["maintainer"] = "someone"

	parsed, err := ParseLabels(labels)
	require.NoError(t, err)
	assert.Equal(t, "my-system", parsed.System.Name)
}

func TestParseLabelsNoManifest(t *testing.T) {
	_, err := ParseLabels(map[string]string{"maintainer": "someone"})
	assert.Error(t, err, "an image without manifest labels should be rejected")
}

func TestLabelsToChanges(t *testing.T) {
	changes := LabelsToChanges(map[string]string{
		"org.dracor.stable-dracor.version":     "v1",
		"org.dracor.stable-dracor.system.name": `with "quotes"`,
	})

	require.Len(t, changes, 2)
	assert.Equal(t, `LABEL org.dracor.stable-dracor.system.name="with \"quotes\""`, changes[0],
		"keys should be sorted and quotes escaped")
	assert.Equal(t, `LABEL org.dracor.stable-dracor.version="v1"`, changes[1])
}

func TestSplitImageTag(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		wantImage string
		wantTag   string
	}{
		{"with tag", "dracor/dracor-api:v1.0.2", "dracor/dracor-api", "v1.0.2"},
		{"without tag", "dracor/dracor-api", "dracor/dracor-api", ""},
		{"registry port without tag", "localhost:5000/dracor/dracor-api", "localhost:5000/dracor/dracor-api", ""},
		{"registry port with tag", "localhost:5000/dracor/dracor-api:v1", "localhost:5000/dracor/dracor-api", "v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image, tag := splitImageTag(tt.ref)
			assert.Equal(t, tt.wantImage, image)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}

func TestImageService(t *testing.T) {
	tests := []struct {
		image string
		want  model.ServiceName
		found bool
	}{
		{"dracor/dracor-api:v1.0.2", model.ServiceAPI, true},
		{"dracor/stable-dracor:mysystem", model.ServiceAPI, true},
		{"dracor/dracor-frontend", model.ServiceFrontend, true},
		{"dracor/dracor-metrics:latest", model.ServiceMetrics, true},
		{"dracor/dracor-fuseki", model.ServiceTriplestore, true},
		{"postgres:16", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			got, found := imageService(tt.image)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
