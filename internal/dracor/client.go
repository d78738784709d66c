package dracor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Well-known DraCor API base URLs. Production is the default source for
// corpus copies; the local URL is where a freshly assembled stack
// exposes its API (the frontend container proxies /api on port 8088).
const (
	ProductionURL = "https://dracor.org/api/"
	StagingURL    = "https://staging.dracor.org/api/"
	LocalURL      = "http://localhost:8088/api/"
)

// Default credentials of a fresh local eXist-DB instance. Write
// operations against a local stack use these unless overridden.
const (
	DefaultUsername = "admin"
	DefaultPassword = ""
)

// defaultTimeout bounds every request. TEI documents are small (tens to
// hundreds of kilobytes), but a cold eXist-DB can be slow to answer the
// first requests after startup.
const defaultTimeout = 60 * time.Second

// StatusError is the single error kind for upstream call failures: the
// server answered, but with a non-success status code. The status code
// is carried so callers can branch on specific conditions (404 for a
// missing corpus, 409 for a duplicate one).
type StatusError struct {
	// StatusCode is the HTTP status code the server returned.
	StatusCode int

	// URL is the request URL that failed.
	URL string
}

// Error satisfies the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s was not successful: server returned status code %d", e.URL, e.StatusCode)
}

// IsStatus reports whether err is (or wraps) a *StatusError with the
// given code. This is the branching helper used by the instance layer
// for 404/409 handling.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// BuildRequestURL constructs a DraCor API request URL from the base URL
// and the optional corpus name, play name and method suffix:
//
//	corpus + play + method → {base}corpora/{corpus}/play/{play}/{method}
//	corpus + play          → {base}corpora/{corpus}/play/{play}
//	corpus + method        → {base}corpora/{corpus}/{method}
//	corpus                 → {base}corpora/{corpus}
//	method only            → {base}{method}
//	nothing                → {base}info
//
// A trailing slash is appended to the base URL if missing. A play name
// without a corpus name is invalid and falls through to {base}info,
// matching the upstream API's addressing scheme where plays are always
// nested under a corpus.
func BuildRequestURL(baseURL, corpusname, playname, method string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	switch {
	case corpusname != "" && playname != "":
		if method != "" {
			return fmt.Sprintf("%scorpora/%s/play/%s/%s", baseURL, corpusname, playname, method)
		}
		return fmt.Sprintf("%scorpora/%s/play/%s", baseURL, corpusname, playname)

	case corpusname != "":
		if method != "" {
			return fmt.Sprintf("%scorpora/%s/%s", baseURL, corpusname, method)
		}
		return fmt.Sprintf("%scorpora/%s", baseURL, corpusname)

	case method != "" && playname == "":
		return baseURL + method

	default:
		return baseURL + "info"
	}
}

// Client is a DraCor API client bound to one base URL. The zero value is
// not usable; create clients with NewClient.
//
// The client is safe for concurrent use: it holds only immutable
// configuration and the shared *http.Client.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets the Basic auth credentials used for write
// operations (PUT, POST, DELETE). Read operations are never
// authenticated.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the underlying HTTP client. Tests use this to
// point the client at an httptest server with a short timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the API at baseURL. Credentials default
// to the local instance's admin user; override with WithCredentials when
// talking to anything else.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		username: DefaultUsername,
		password: DefaultPassword,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL this client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get sends a GET request built from the corpus/play/method triple and
// returns the raw response body. A non-2xx status yields a *StatusError.
func (c *Client) Get(ctx context.Context, corpusname, playname, method string) ([]byte, error) {
	url := BuildRequestURL(c.baseURL, corpusname, playname, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GET request for %s: %w", url, err)
	}

	return c.do(req)
}

// GetJSON sends a GET request and decodes the JSON response body into
// target.
func (c *Client) GetJSON(ctx context.Context, corpusname, playname, method string, target any) error {
	body, err := c.Get(ctx, corpusname, playname, method)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	return nil
}

// Info fetches the /info endpoint. This doubles as the connectivity
// check for a local instance: the endpoint answers without
// authentication once eXist-DB has finished booting.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.GetJSON(ctx, "", "", "info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Corpora lists all corpora of the instance. When withMetrics is true
// the per-corpus play counts are included, which the manifest assembly
// uses.
func (c *Client) Corpora(ctx context.Context, withMetrics bool) ([]Corpus, error) {
	method := "corpora"
	if withMetrics {
		method = "corpora?include=metrics"
	}

	var corpora []Corpus
	if err := c.GetJSON(ctx, "", "", method, &corpora); err != nil {
		return nil, err
	}
	return corpora, nil
}

// Corpus fetches a single corpus including its play list.
func (c *Client) Corpus(ctx context.Context, corpusname string) (*Corpus, error) {
	var corpus Corpus
	if err := c.GetJSON(ctx, corpusname, "", "", &corpus); err != nil {
		return nil, err
	}
	return &corpus, nil
}

// CorpusExists checks whether a corpus with the exact name exists,
// by scanning the /corpora listing.
func (c *Client) CorpusExists(ctx context.Context, corpusname string) (bool, error) {
	corpora, err := c.Corpora(ctx, false)
	if err != nil {
		return false, err
	}
	for i := range corpora {
		if corpora[i].Name == corpusname {
			return true, nil
		}
	}
	return false, nil
}

// Play fetches the metadata of a single play.
func (c *Client) Play(ctx context.Context, corpusname, playname string) (*PlayMeta, error) {
	var play PlayMeta
	if err := c.GetJSON(ctx, corpusname, playname, "", &play); err != nil {
		return nil, err
	}
	return &play, nil
}

// TEI fetches the TEI-XML source document of a play as raw bytes.
func (c *Client) TEI(ctx context.Context, corpusname, playname string) ([]byte, error) {
	return c.Get(ctx, corpusname, playname, "tei")
}

// PutTEI stores a TEI document as a play in the target corpus. This is
// an authenticated admin operation with Content-Type application/xml.
// The play is created if it does not exist, overwritten otherwise.
func (c *Client) PutTEI(ctx context.Context, corpusname, playname string, tei []byte) error {
	url := BuildRequestURL(c.baseURL, corpusname, playname, "tei")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(tei))
	if err != nil {
		return fmt.Errorf("failed to build PUT request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(c.username, c.password)

	_, err = c.do(req)
	return err
}

// CreateCorpus creates a new corpus via the authenticated admin POST to
// /corpora. The server answers 409 if a corpus with the same name
// already exists, which callers detect via IsStatus(err, 409).
func (c *Client) CreateCorpus(ctx context.Context, metadata *CorpusMetadata) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode corpus metadata: %w", err)
	}

	url := BuildRequestURL(c.baseURL, "", "", "corpora")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build POST request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	_, err = c.do(req)
	return err
}

// Delete removes a corpus, or a single play when playname is non-empty.
// Authenticated admin operation. A 404 response means the target did not
// exist, detectable via IsStatus(err, 404).
func (c *Client) Delete(ctx context.Context, corpusname, playname string) error {
	url := BuildRequestURL(c.baseURL, corpusname, playname, "")

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build DELETE request for %s: %w", url, err)
	}
	req.SetBasicAuth(c.username, c.password)

	_, err = c.do(req)
	return err
}

// do executes the request and reads the full body. Any status outside
// the 2xx range becomes a *StatusError carrying the code; there is no
// retry and no distinction between transient and permanent failures.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	return body, nil
}
