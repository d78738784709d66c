package model

import (
	"fmt"
	"strings"
	"time"
)

// ManifestVersion is the version string recorded in every manifest.
// It identifies the label schema used when a manifest is encoded into
// Docker image labels, so that future schema changes can be detected.
const ManifestVersion = "v1"

// ServiceName identifies one of the canonical services that make up a
// DraCor system. A full stack consists of four services:
//
//	triplestore, metrics → api → frontend
//
// The arrow indicates startup dependency order as declared in the
// generated compose file.
type ServiceName string

const (
	// ServiceAPI is the eXist-DB based document API service.
	ServiceAPI ServiceName = "api"

	// ServiceFrontend is the web frontend service.
	ServiceFrontend ServiceName = "frontend"

	// ServiceMetrics is the corpus metrics service.
	ServiceMetrics ServiceName = "metrics"

	// ServiceTriplestore is the Fuseki triple store service.
	ServiceTriplestore ServiceName = "triplestore"
)

// String returns the string representation of ServiceName.
func (s ServiceName) String() string {
	return string(s)
}

// IsValid checks whether the ServiceName is one of the four canonical
// services.
func (s ServiceName) IsValid() bool {
	switch s {
	case ServiceAPI, ServiceFrontend, ServiceMetrics, ServiceTriplestore:
		return true
	default:
		return false
	}
}

// ParseServiceName converts a string to a ServiceName.
// Returns an error if the string does not match any canonical service.
func ParseServiceName(s string) (ServiceName, error) {
	name := ServiceName(strings.ToLower(s))
	if !name.IsValid() {
		return "", fmt.Errorf("invalid service name: %q (valid: api, frontend, metrics, triplestore)", s)
	}
	return name, nil
}

// AllServices lists the canonical services in a stable order.
// The order matters for deterministic compose file generation and
// manifest label output.
func AllServices() []ServiceName {
	return []ServiceName{ServiceAPI, ServiceFrontend, ServiceMetrics, ServiceTriplestore}
}

// DefaultImage returns the canonical Docker image repository for a
// service. Running containers are matched against these prefixes when
// detecting an already-running stack.
func (s ServiceName) DefaultImage() string {
	switch s {
	case ServiceAPI:
		return "dracor/dracor-api"
	case ServiceFrontend:
		return "dracor/dracor-frontend"
	case ServiceMetrics:
		return "dracor/dracor-metrics"
	case ServiceTriplestore:
		return "dracor/dracor-fuseki"
	default:
		return ""
	}
}

// Service holds runtime information about one registered service of the
// local system. Services are registered either when the stack is started
// or when a running container matching a canonical image is detected.
type Service struct {
	// Container is the Docker container ID running this service.
	Container string `json:"container"`

	// Image is the image name/tag the container was created from.
	Image string `json:"image,omitempty"`

	// Version is the reported software version. Only populated for the
	// api service, from the /info endpoint.
	Version string `json:"version,omitempty"`

	// ExistDB is the eXist-DB version reported by the api service.
	ExistDB string `json:"existdb,omitempty"`
}

// SourceType classifies where the contents of a corpus came from.
type SourceType string

const (
	// SourceAPI marks plays copied from a running DraCor API.
	SourceAPI SourceType = "api"

	// SourceRepository marks plays loaded from a Git hosting repository
	// at a pinned commit.
	SourceRepository SourceType = "repository"

	// SourceFiles marks plays imported from a local directory.
	SourceFiles SourceType = "files"
)

// IDList records a set of play identifiers together with the identifier
// scheme used. It is attached to a corpus source to document which plays
// were deliberately excluded (or included) during an import.
type IDList struct {
	// Type is the identifier scheme, currently always "slug"
	// (the playname derived from the TEI file name).
	Type string `json:"type"`

	// IDs is the list of play identifiers.
	IDs []string `json:"ids"`
}

// Source documents the provenance of (part of) a corpus: where the plays
// were fetched from, at which point in time, and which plays were skipped.
// A corpus can have several sources, keyed by source name in CorpusRecord.
type Source struct {
	// Type classifies the source (api, repository, files).
	Type SourceType `json:"type,omitempty"`

	// CorpusName is the corpus identifier in the source system, if the
	// source is another DraCor instance.
	CorpusName string `json:"corpusname,omitempty"`

	// URL points at the source: the corpus endpoint of the source API,
	// or the repository on the Git host.
	URL string `json:"url,omitempty"`

	// Commit pins the repository state the plays were taken from.
	// Only set for repository sources.
	Commit string `json:"commit,omitempty"`

	// Timestamp records when the import from this source happened,
	// in RFC 3339 format.
	Timestamp string `json:"timestamp,omitempty"`

	// NumOfPlays is the number of plays successfully imported from
	// this source.
	NumOfPlays int `json:"num_of_plays,omitempty"`

	// Exclude lists plays that were deliberately skipped or failed to
	// import. Nil if nothing was excluded.
	Exclude *IDList `json:"exclude,omitempty"`

	// Include lists plays that were selectively imported. Nil unless an
	// include filter was used.
	Include *IDList `json:"include,omitempty"`
}

// ExcludeID appends a play identifier to the source's exclude list,
// creating the list on first use. Identifiers already present are not
// duplicated.
func (s *Source) ExcludeID(idType, id string) {
	if s.Exclude == nil {
		s.Exclude = &IDList{Type: idType}
	}
	for _, existing := range s.Exclude.IDs {
		if existing == id {
			return
		}
	}
	s.Exclude.IDs = append(s.Exclude.IDs, id)
}

// CorpusRecord tracks a corpus that was created in the local system,
// together with its sources. This is the client-side bookkeeping the
// downstream API does not provide: it makes the loaded state of a system
// reconstructible from its manifest alone.
type CorpusRecord struct {
	// CorpusName is the corpus identifier in the local system.
	CorpusName string `json:"corpusname"`

	// Timestamp records when the corpus was registered, RFC 3339.
	Timestamp string `json:"timestamp,omitempty"`

	// NumOfPlays is the play count reported by the local metrics,
	// filled in when the manifest is assembled.
	NumOfPlays int `json:"num_of_plays,omitempty"`

	// Sources maps source names to their provenance records.
	Sources map[string]*Source `json:"sources,omitempty"`
}

// SystemInfo identifies a stabledracor system instance.
type SystemInfo struct {
	// ID is the unique identifier generated when the instance was created.
	ID string `json:"id"`

	// Name is the optional user-supplied instance name.
	Name string `json:"name,omitempty"`

	// Description is the optional user-supplied description.
	Description string `json:"description,omitempty"`

	// Timestamp records when the manifest was assembled, RFC 3339.
	Timestamp string `json:"timestamp,omitempty"`
}

// Manifest describes a complete DraCor system: its identity, services and
// loaded corpora. A manifest is assembled from the live system state and
// encoded into image labels when the system is frozen with `freeze`.
type Manifest struct {
	Version  string                   `json:"version"`
	System   SystemInfo               `json:"system"`
	Services map[string]*Service      `json:"services,omitempty"`
	Corpora  map[string]*CorpusRecord `json:"corpora,omitempty"`
}

// ContainerInfo describes a Docker container in terms the rest of the
// application cares about, decoupled from the Docker SDK types.
type ContainerInfo struct {
	// ID is the full container ID.
	ID string

	// Name is the container name without the leading "/" the Docker
	// API prepends.
	Name string

	// Image is the image reference the container was created from,
	// e.g. "dracor/dracor-api:v1.0.2" or "dracor/dracor-fuseki".
	Image string

	// State is the short Docker state string, e.g. "running".
	State string

	// ComposeProject is the value of the com.docker.compose.project
	// label, empty for containers not started by compose.
	ComposeProject string

	// ComposeService is the value of the com.docker.compose.service
	// label.
	ComposeService string
}

// PlaySlug derives the play identifier from a TEI file name by stripping
// the ".xml" extension. File names without the extension are returned
// unchanged:
//
//	PlaySlug("lessing-emilia-galotti.xml") → "lessing-emilia-galotti"
func PlaySlug(filename string) string {
	return strings.TrimSuffix(filename, ".xml")
}

// Timestamp formats a time in the RFC 3339 format used throughout
// manifests and labels. UTC is forced so that manifests are identical
// regardless of the host machine's timezone.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ExitCode defines standard CLI exit codes. These codes allow scripts
// and CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 2

	// ExitAPIUnreachable indicates the local DraCor API did not become
	// reachable within the wait budget.
	ExitAPIUnreachable ExitCode = 3

	// ExitUpstreamFailed indicates a remote system (source API, Git host)
	// returned a non-success status.
	ExitUpstreamFailed ExitCode = 4

	// ExitBadInput indicates invalid user input (unknown service name,
	// missing corpus name, malformed config file).
	ExitBadInput ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
