// instance.go defines the Instance type and the stack lifecycle
// operations: starting the services with docker compose, attaching to
// already running containers, waiting for the API to come up, and
// stopping the stack again.
package instance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dracor-org/stabledracor/internal/dracor"
	"github.com/dracor-org/stabledracor/internal/github"
	"github.com/dracor-org/stabledracor/internal/model"
	"github.com/dracor-org/stabledracor/internal/stack"
)

const (
	// defaultAPIRetries and defaultAPIRetryDelay control the startup
	// wait loop. The eXist database needs a while to initialize on
	// first boot, so the defaults allow for almost a minute.
	defaultAPIRetries    = 10
	defaultAPIRetryDelay = 5 * time.Second
)

// Instance represents one local DraCor system and the clients used to
// manage and populate it.
type Instance struct {
	id          string
	name        string
	description string
	project     string

	api    *dracor.Client
	gh     *github.Client
	docker *stack.Client

	images     map[model.ServiceName]string
	dataFolder string
	logf       func(format string, args ...any)

	apiRetries    int
	apiRetryDelay time.Duration

	services map[model.ServiceName]*model.Service
	corpora  map[string]*model.CorpusRecord
}

// Option configures an Instance.
type Option func(*Instance)

// WithName sets the system name used in the manifest, the compose
// project and frozen image tags.
func WithName(name string) Option {
	return func(i *Instance) { i.name = name }
}

// WithDescription sets the free text description recorded in the
// manifest.
func WithDescription(description string) Option {
	return func(i *Instance) { i.description = description }
}

// WithID overrides the generated instance ID. Mainly for tests and for
// reproducing a system from an existing manifest.
func WithID(id string) Option {
	return func(i *Instance) { i.id = id }
}

// WithProject sets the docker compose project name.
func WithProject(project string) Option {
	return func(i *Instance) { i.project = project }
}

// WithGitHubClient sets the client used for repository imports.
func WithGitHubClient(gh *github.Client) Option {
	return func(i *Instance) { i.gh = gh }
}

// WithDockerClient sets the Docker client. Without one, only the API
// population operations are available.
func WithDockerClient(docker *stack.Client) Option {
	return func(i *Instance) { i.docker = docker }
}

// WithImages overrides the images used for individual services when the
// stack is started.
func WithImages(images map[model.ServiceName]string) Option {
	return func(i *Instance) { i.images = images }
}

// WithDataFolder overrides the repository folder the TEI files live in.
// Almost all corpus repositories use "tei".
func WithDataFolder(folder string) Option {
	return func(i *Instance) { i.dataFolder = folder }
}

// WithLogf sets the sink for progress and warning messages.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(i *Instance) { i.logf = logf }
}

// WithWaitPolicy overrides the API startup wait loop. Used by tests to
// avoid multi-second sleeps.
func WithWaitPolicy(retries int, delay time.Duration) Option {
	return func(i *Instance) {
		i.apiRetries = retries
		i.apiRetryDelay = delay
	}
}

// New creates an Instance talking to the given local API. A fresh UUID
// identifies the instance unless WithID is used.
func New(api *dracor.Client, opts ...Option) *Instance {
	i := &Instance{
		id:            uuid.NewString(),
		api:           api,
		dataFolder:    github.DefaultDataFolder,
		logf:          func(string, ...any) {},
		apiRetries:    defaultAPIRetries,
		apiRetryDelay: defaultAPIRetryDelay,
		services:      make(map[model.ServiceName]*model.Service),
		corpora:       make(map[string]*model.CorpusRecord),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.project == "" {
		i.project = "stabledracor"
	}
	return i
}

// ID returns the instance identifier.
func (i *Instance) ID() string { return i.id }

// Name returns the system name, which may be empty.
func (i *Instance) Name() string { return i.name }

// API returns the client for the local API.
func (i *Instance) API() *dracor.Client { return i.api }

// Services returns the currently known services, keyed by name.
func (i *Instance) Services() map[model.ServiceName]*model.Service {
	return i.services
}

// requireDocker guards operations that need the Docker daemon.
func (i *Instance) requireDocker() error {
	if i.docker == nil {
		return model.NewCLIError(
			model.ExitDockerNotRunning,
			"this operation requires a Docker connection",
		)
	}
	return nil
}

// ComposeFile generates the compose configuration for this instance,
// applying any configured image overrides.
func (i *Instance) ComposeFile() ([]byte, error) {
	return stack.GenerateCompose(i.name, i.images)
}

// Run starts the full stack and waits until the API answers. Host port
// conflicts are reported before compose is invoked so the user gets a
// clear message instead of a compose failure halfway through.
func (i *Instance) Run(ctx context.Context) error {
	if err := i.requireDocker(); err != nil {
		return err
	}
	if err := stack.CheckPorts(); err != nil {
		return err
	}

	composeContent, err := i.ComposeFile()
	if err != nil {
		return err
	}

	i.logf("starting stack as compose project %q", i.project)
	if err := stack.ComposeUpBytes(ctx, i.project, composeContent); err != nil {
		return err
	}

	if err := i.Attach(ctx); err != nil {
		return err
	}
	return i.WaitForAPI(ctx)
}

// Attach discovers running DraCor containers and registers them as this
// instance's services. Used both after Run and standalone, when the
// stack was started outside this tool.
func (i *Instance) Attach(ctx context.Context) error {
	if err := i.requireDocker(); err != nil {
		return err
	}

	services, err := stack.DetectServices(ctx, i.docker, i.logf)
	if err != nil {
		return err
	}
	i.services = services
	return nil
}

// WaitForAPI polls the /info endpoint until the API responds or the
// retry budget is exhausted. On success the reported version and
// eXist-DB version are recorded on the api service.
func (i *Instance) WaitForAPI(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= i.apiRetries; attempt++ {
		info, err := i.api.Info(ctx)
		if err == nil {
			i.logf("API is up, version %s", info.Version)
			if svc, ok := i.services[model.ServiceAPI]; ok {
				svc.Version = info.Version
				svc.ExistDB = info.ExistDB
			}
			return nil
		}
		lastErr = err

		if attempt < i.apiRetries {
			i.logf("API not ready (attempt %d/%d), retrying in %s", attempt, i.apiRetries, i.apiRetryDelay)
			select {
			case <-time.After(i.apiRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return model.WrapCLIError(
		model.ExitAPIUnreachable,
		fmt.Sprintf("API did not come up after %d attempts", i.apiRetries),
		lastErr,
	)
}

// Stop takes the whole stack down with docker compose.
func (i *Instance) Stop(ctx context.Context) error {
	if err := i.requireDocker(); err != nil {
		return err
	}
	i.logf("stopping compose project %q", i.project)
	return stack.ComposeDown(ctx, i.project)
}

// StopService stops the container backing a single service. The service
// must have been discovered with Attach or Run first.
func (i *Instance) StopService(ctx context.Context, name model.ServiceName) error {
	if err := i.requireDocker(); err != nil {
		return err
	}

	svc, ok := i.services[name]
	if !ok {
		return model.NewCLIError(
			model.ExitBadInput,
			fmt.Sprintf("no running container known for service %s", name),
		)
	}

	i.logf("stopping %s container %s", name, svc.Container)
	if err := stack.StopContainer(ctx, i.docker, svc.Container); err != nil {
		return err
	}
	delete(i.services, name)
	return nil
}

// sourceKey turns an arbitrary identifier (a hostname, an owner/repo
// pair) into a name safe for use as a dotted label key segment.
func sourceKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// registerCorpus records a corpus in the instance bookkeeping, creating
// the record on first use.
func (i *Instance) registerCorpus(corpusname string) *model.CorpusRecord {
	if record, ok := i.corpora[corpusname]; ok {
		return record
	}
	record := &model.CorpusRecord{
		CorpusName: corpusname,
		Timestamp:  model.Timestamp(time.Now()),
		Sources:    make(map[string]*model.Source),
	}
	i.corpora[corpusname] = record
	return record
}

// registerSource attaches a provenance record to a corpus, keyed by a
// sanitized source name. An existing source of the same name is
// replaced.
func (i *Instance) registerSource(corpusname, source string, src *model.Source) {
	record := i.registerCorpus(corpusname)
	record.Sources[sourceKey(source)] = src
}
