package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default endpoints and conventions of the DraCor corpus repositories.
const (
	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com/"

	// DefaultRawBaseURL is the host serving raw blob content.
	DefaultRawBaseURL = "https://raw.githubusercontent.com"

	// DefaultOwner is the GitHub organization owning the canonical
	// corpus repositories.
	DefaultOwner = "dracor-org"

	// DefaultDataFolder is the repository folder containing the TEI
	// files, by convention "tei" in all corpus repositories.
	DefaultDataFolder = "tei"

	// TokenEnv is the environment variable an access token is read from.
	TokenEnv = "GITHUB_TOKEN"
)

// defaultTimeout bounds every request to the Git host.
const defaultTimeout = 60 * time.Second

// RequestError is returned when the Git host answers with a non-success
// status code. It mirrors the upstream-failure error of the DraCor API
// client: no retries, no transient/permanent distinction, just the code.
type RequestError struct {
	StatusCode int
	URL        string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s was not successful: server returned status code %d", e.URL, e.StatusCode)
}

// Client talks to one Git host. The zero value is not usable; create
// clients with NewClient, which picks up GITHUB_TOKEN automatically.
type Client struct {
	apiBaseURL string
	rawBaseURL string
	token      string
	http       *http.Client

	// logf receives diagnostic messages (rate limit warnings,
	// truncated tree listings). Defaults to a no-op.
	logf func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the access token explicitly, overriding GITHUB_TOKEN.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithBaseURLs overrides the API and raw-content endpoints.
// Tests use this to point the client at httptest servers.
func WithBaseURLs(apiBaseURL, rawBaseURL string) Option {
	return func(c *Client) {
		c.apiBaseURL = apiBaseURL
		c.rawBaseURL = rawBaseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogf sets the diagnostic log callback.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Client) { c.logf = logf }
}

// NewClient creates a Git hosting client. If GITHUB_TOKEN is set in the
// environment, requests are authenticated with it.
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiBaseURL: DefaultAPIBaseURL,
		rawBaseURL: DefaultRawBaseURL,
		token:      os.Getenv(TokenEnv),
		http:       &http.Client{Timeout: defaultTimeout},
		logf:       func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RawFileURL builds the raw-content download URL for a file at a commit:
//
//	https://raw.githubusercontent.com/{owner}/{repo}/{commit}/{folder}/{file}
func (c *Client) RawFileURL(owner, repo, commit, folder, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", c.rawBaseURL, owner, repo, commit, folder, filename)
}

// FetchRaw downloads the raw content of a file at a commit.
func (c *Client) FetchRaw(ctx context.Context, owner, repo, commit, folder, filename string) ([]byte, error) {
	return c.get(ctx, c.RawFileURL(owner, repo, commit, folder, filename))
}

// commitResponse is the subset of the commits API response the client
// needs: the commit SHA and the tree reference.
type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Tree treeRef `json:"tree"`
	} `json:"commit"`
}

type treeRef struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

// treeResponse is a Git tree listing. Truncated indicates the listing
// was cut off by the API, which would mean missing plays.
type treeResponse struct {
	SHA       string      `json:"sha"`
	Truncated bool        `json:"truncated"`
	Tree      []treeEntry `json:"tree"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	URL  string `json:"url"`
}

// blobResponse is a Git blob; content is base64-encoded by the API.
type blobResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// LatestCommit resolves the most recent commit SHA on the default
// branch of a repository. The commits API returns newest first.
func (c *Client) LatestCommit(ctx context.Context, owner, repo string) (string, error) {
	url := fmt.Sprintf("%srepos/%s/%s/commits", c.apiBaseURL, owner, repo)

	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var commits []commitResponse
	if err := json.Unmarshal(body, &commits); err != nil {
		return "", fmt.Errorf("failed to decode commit listing for %s/%s: %w", owner, repo, err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("repository %s/%s has no commits", owner, repo)
	}

	return commits[0].SHA, nil
}

// rootTree fetches the tree of the repository root at a commit.
func (c *Client) rootTree(ctx context.Context, owner, repo, commit string) (*treeResponse, error) {
	url := fmt.Sprintf("%srepos/%s/%s/commits/%s", c.apiBaseURL, owner, repo, commit)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var cr commitResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to decode commit %s of %s/%s: %w", commit, owner, repo, err)
	}

	return c.tree(ctx, cr.Commit.Tree.URL)
}

// tree fetches and decodes a tree object by its API URL.
func (c *Client) tree(ctx context.Context, url string) (*treeResponse, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var tr treeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode tree at %s: %w", url, err)
	}
	return &tr, nil
}

// ListDataFiles returns the file names in the data folder of a
// repository at a commit. Directories inside the data folder are
// skipped; only blobs are plays.
//
// Nested data folder paths are not supported — the corpus repository
// convention is a single "tei" folder in the repository root.
func (c *Client) ListDataFiles(ctx context.Context, owner, repo, commit, folder string) ([]string, error) {
	if strings.Contains(folder, "/") {
		return nil, fmt.Errorf("nested data folder %q is not supported (expected a folder in the repository root)", folder)
	}

	root, err := c.rootTree(ctx, owner, repo, commit)
	if err != nil {
		return nil, err
	}
	if root.Truncated {
		c.logf("tree listing of %s/%s root folder is truncated; some entries are missing", owner, repo)
	}

	var folderEntry *treeEntry
	for i := range root.Tree {
		if root.Tree[i].Path == folder && root.Tree[i].Type == "tree" {
			folderEntry = &root.Tree[i]
			break
		}
	}
	if folderEntry == nil {
		return nil, fmt.Errorf("repository %s/%s has no %q folder at commit %s", owner, repo, folder, commit)
	}

	dataTree, err := c.tree(ctx, folderEntry.URL)
	if err != nil {
		return nil, err
	}
	if dataTree.Truncated {
		c.logf("tree listing of %s/%s/%s is truncated; some plays are missing", owner, repo, folder)
	}

	filenames := make([]string, 0, len(dataTree.Tree))
	for _, entry := range dataTree.Tree {
		if entry.Type == "blob" {
			filenames = append(filenames, entry.Path)
		}
	}
	return filenames, nil
}

// CorpusXML fetches and decodes the corpus.xml file from the repository
// root at a commit. Returns a *RequestError with status 404 semantics
// left to the caller if the repository has no corpus.xml.
func (c *Client) CorpusXML(ctx context.Context, owner, repo, commit string) ([]byte, error) {
	root, err := c.rootTree(ctx, owner, repo, commit)
	if err != nil {
		return nil, err
	}

	var blobURL string
	for _, entry := range root.Tree {
		if entry.Path == "corpus.xml" && entry.Type == "blob" {
			blobURL = entry.URL
			break
		}
	}
	if blobURL == "" {
		return nil, fmt.Errorf("repository %s/%s has no corpus.xml at commit %s", owner, repo, commit)
	}

	body, err := c.get(ctx, blobURL)
	if err != nil {
		return nil, err
	}

	var blob blobResponse
	if err := json.Unmarshal(body, &blob); err != nil {
		return nil, fmt.Errorf("failed to decode corpus.xml blob: %w", err)
	}

	// The blobs API base64-encodes content, with embedded newlines that
	// the standard decoder rejects unless stripped.
	raw := strings.ReplaceAll(blob.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to base64-decode corpus.xml: %w", err)
	}
	return decoded, nil
}

// repoResponse is the subset of the repository listing the client needs.
type repoResponse struct {
	Name string `json:"name"`
}

// ListRepos lists the repository names of an organization. Used to
// discover available corpus repositories.
func (c *Client) ListRepos(ctx context.Context, owner string) ([]string, error) {
	url := fmt.Sprintf("%sorgs/%s/repos?per_page=100", c.apiBaseURL, owner)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var repos []repoResponse
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, fmt.Errorf("failed to decode repository listing for %s: %w", owner, err)
	}

	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.Name)
	}
	return names, nil
}

// get executes an authenticated GET and reads the full body. Non-2xx
// responses become a *RequestError. Rate limit exhaustion is reported
// through the log callback so notebook-style batch imports can see why
// requests start failing.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GET request for %s: %w", url, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	c.checkRateLimit(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{StatusCode: resp.StatusCode, URL: url}
	}

	return body, nil
}

// checkRateLimit inspects the rate limit headers and warns when the
// remaining budget runs low. Unauthorized clients get only 60 requests
// per hour, which a corpus import can easily exhaust.
func (c *Client) checkRateLimit(h http.Header) {
	remainingStr := h.Get("X-RateLimit-Remaining")
	if remainingStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return
	}

	switch {
	case remaining == 0:
		if c.token == "" {
			c.logf("GitHub API rate limit of %s reached; set %s to raise the limit", h.Get("X-RateLimit-Limit"), TokenEnv)
		} else {
			c.logf("GitHub API rate limit of %s reached", h.Get("X-RateLimit-Limit"))
		}
	case remaining < 5:
		c.logf("approaching GitHub API rate limit: %d requests remaining", remaining)
	}
}
