package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dracor-org/stabledracor/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stabledracor.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithComments(t *testing.T) {
	path := writeConfig(t, `{
		// the name ends up in the manifest and the frozen image tag
		"name": "my-system",
		"description": "German drama snapshot",
		"api": {
			"url": "http://localhost:8088/api/",
			"password": "secret", // admin password after setup
		},
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-system", cfg.Name)
	assert.Equal(t, "German drama snapshot", cfg.Description)
	assert.Equal(t, "http://localhost:8088/api/", cfg.API.URL)
	assert.Equal(t, "secret", cfg.API.Password)
	assert.Equal(t, "admin", cfg.API.Username,
		"defaults should survive for fields the file does not set")
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err, "a missing default config file is not an error")
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.jsonc"))
	require.Error(t, err, "an explicitly named config file must exist")

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBadInput, cliErr.Code)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"name": `)

	_, err := Load(path)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBadInput, cliErr.Code)
}

func TestServiceImages(t *testing.T) {
	cfg := &Config{Images: map[string]string{
		"api":      "dracor/stable-dracor:v1",
		"frontend": "dracor/dracor-frontend:2.0.0",
	}}

	images, err := cfg.ServiceImages()
	require.NoError(t, err)
	assert.Equal(t, "dracor/stable-dracor:v1", images[model.ServiceAPI])
	assert.Equal(t, "dracor/dracor-frontend:2.0.0", images[model.ServiceFrontend])
}

func TestServiceImagesUnknownService(t *testing.T) {
	cfg := &Config{Images: map[string]string{"webapp": "nginx"}}

	_, err := cfg.ServiceImages()
	require.Error(t, err, "unknown service names in the images map should be rejected")
}

func TestComposeProject(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit project", Config{Project: "p1", Name: "n1"}, "p1"},
		{"falls back to name", Config{Name: "n1"}, "n1"},
		{"default", Config{}, "stabledracor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ComposeProject())
		})
	}
}
