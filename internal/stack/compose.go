// compose.go generates the Docker Compose configuration for a DraCor
// stack and runs it via the docker compose plugin.
//
// The generated file declares the four canonical services with the
// fixed port mappings and startup dependency order of the upstream
// system:
//
//	triplestore (3030), metrics (8030) → api (8080) → frontend (8088)
//
// The frontend proxies the API, so the API base URL advertised to
// clients is http://localhost:8088/api even though the api container
// itself listens on 8080.
package stack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dracor-org/stabledracor/internal/model"
)

// composeFile is the structure serialized to YAML. Only the fields the
// generated configuration needs are modeled.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

// composeService is a single service definition in the compose file.
type composeService struct {
	Image       string   `yaml:"image"`
	Environment []string `yaml:"environment,omitempty"`
	Ports       []string `yaml:"ports,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
}

// HostPort returns the fixed host port a service is published on.
func HostPort(name model.ServiceName) int {
	switch name {
	case model.ServiceAPI:
		return 8080
	case model.ServiceFrontend:
		return 8088
	case model.ServiceMetrics:
		return 8030
	case model.ServiceTriplestore:
		return 3030
	default:
		return 0
	}
}

// portMapping returns the "host:container" publish spec for a service.
// All services use identical host and container ports except the
// frontend, whose nginx listens on 80.
func portMapping(name model.ServiceName) string {
	if name == model.ServiceFrontend {
		return fmt.Sprintf("%d:80", HostPort(name))
	}
	p := HostPort(name)
	return fmt.Sprintf("%d:%d", p, p)
}

// GenerateCompose builds the compose file for a stack. The images map
// selects the image per service; services missing from the map get
// their canonical default image. This is how a frozen
// dracor/stable-dracor image is substituted for the stock api image
// when reproducing a system.
//
// Returns the YAML bytes with a header comment naming the system.
func GenerateCompose(systemName string, images map[model.ServiceName]string) ([]byte, error) {
	cf := composeFile{Services: make(map[string]composeService)}

	for _, name := range model.AllServices() {
		image := images[name]
		if image == "" {
			image = name.DefaultImage()
		}

		svc := composeService{
			Image: image,
			Ports: []string{portMapping(name)},
		}

		switch name {
		case model.ServiceAPI:
			svc.Environment = []string{
				"DRACOR_API_BASE=http://localhost:8088/api",
				"EXIST_PASSWORD=",
			}
			svc.DependsOn = []string{
				model.ServiceTriplestore.String(),
				model.ServiceMetrics.String(),
			}
		case model.ServiceFrontend:
			svc.Environment = []string{
				"DRACOR_API=http://api:8080/exist/restxq",
			}
			svc.DependsOn = []string{model.ServiceAPI.String()}
		case model.ServiceTriplestore:
			svc.Environment = []string{
				"ADMIN_PASSWORD=qwerty",
			}
		}

		cf.Services[name.String()] = svc
	}

	yamlBytes, err := yaml.Marshal(&cf)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose file: %w", err)
	}

	title := "# Stable DraCor system"
	if systemName != "" {
		title = fmt.Sprintf("# Stable DraCor system %q", systemName)
	}

	return []byte(title + "\n" + string(yamlBytes)), nil
}

// WriteComposeFile writes compose file bytes to the given path,
// creating parent directories as needed.
func WriteComposeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for compose file: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write compose file %s: %w", path, err)
	}
	return nil
}

// DownloadCompose fetches a compose file from a URL. Used when a stack
// is started from a published configuration instead of a local file.
func DownloadCompose(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download compose file from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download compose file from %s: server returned status code %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ComposeUpFile starts the stack from a compose file on disk:
// "docker compose -p <project> -f <file> up -d". The -d flag runs
// containers detached so the CLI doesn't block.
func ComposeUpFile(ctx context.Context, projectName, composePath string) error {
	args := []string{"compose", "-p", projectName, "-f", composePath, "up", "-d"}
	return runCompose(ctx, args, nil)
}

// ComposeUpBytes starts the stack from in-memory compose file content,
// passed to docker compose on stdin via "-f -". This avoids a temp file
// when the configuration was generated or downloaded.
func ComposeUpBytes(ctx context.Context, projectName string, content []byte) error {
	args := []string{"compose", "-p", projectName, "-f", "-", "up", "-d"}
	return runCompose(ctx, args, content)
}

// ComposeDown stops and removes the stack's containers and networks:
// "docker compose -p <project> down".
func ComposeDown(ctx context.Context, projectName string) error {
	args := []string{"compose", "-p", projectName, "down"}
	return runCompose(ctx, args, nil)
}

// runCompose executes a docker compose command as a child process,
// optionally feeding compose file content on stdin.
//
// The compose plugin is invoked as "docker compose" rather than the
// legacy standalone "docker-compose" binary. Both stdout and stderr are
// captured for error reporting; failures most commonly indicate Docker
// daemon problems, hence ExitDockerNotRunning.
func runCompose(ctx context.Context, args []string, stdin []byte) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("docker compose failed: %s", strings.TrimSpace(string(output))),
			err,
		)
	}

	return nil
}
