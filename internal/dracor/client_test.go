package dracor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildRequestURL verifies the URL concatenation scheme for all
// combinations of corpus name, play name and method.
func TestBuildRequestURL(t *testing.T) {
	const base = "https://dracor.org/api/"

	testCases := []struct {
		name       string
		corpusname string
		playname   string
		method     string
		expected   string
	}{
		{
			name:     "nothing set falls back to info",
			expected: "https://dracor.org/api/info",
		},
		{
			name:     "method only",
			method:   "corpora",
			expected: "https://dracor.org/api/corpora",
		},
		{
			name:       "corpus only",
			corpusname: "tat",
			expected:   "https://dracor.org/api/corpora/tat",
		},
		{
			name:     "play and method without corpus fall back to info",
			playname: "orphan-play",
			method:   "tei",
			expected: "https://dracor.org/api/info",
		},
		{
			name:       "corpus and method",
			corpusname: "ger",
			method:     "metadata",
			expected:   "https://dracor.org/api/corpora/ger/metadata",
		},
		{
			name:       "corpus and play",
			corpusname: "ger",
			playname:   "lessing-emilia-galotti",
			expected:   "https://dracor.org/api/corpora/ger/play/lessing-emilia-galotti",
		},
		{
			name:       "corpus play and method",
			corpusname: "ger",
			playname:   "lessing-emilia-galotti",
			method:     "tei",
			expected:   "https://dracor.org/api/corpora/ger/play/lessing-emilia-galotti/tei",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			url := BuildRequestURL(base, tc.corpusname, tc.playname, tc.method)
			assert.Equal(t, tc.expected, url)
		})
	}
}

// TestBuildRequestURL_TrailingSlash verifies that a base URL without a
// trailing slash gets one before concatenation.
func TestBuildRequestURL_TrailingSlash(t *testing.T) {
	url := BuildRequestURL("http://localhost:8088/api", "tat", "", "")
	assert.Equal(t, "http://localhost:8088/api/corpora/tat", url)
}

// TestGet_StatusError verifies that a non-2xx response surfaces as a
// *StatusError carrying the status code.
func TestGet_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")
	_, err := c.Get(context.Background(), "tat", "", "")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se, "error should be a StatusError")
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

// TestInfo verifies decoding of the /info endpoint.
func TestInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/info", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Info{
			Name:    "DraCor API",
			Version: "1.0.2",
			ExistDB: "6.2.0",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")
	info, err := c.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.2", info.Version)
	assert.Equal(t, "6.2.0", info.ExistDB)
}

// TestCorpora verifies listing corpora with and without metrics.
func TestCorpora(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/corpora", r.URL.Path)

		corpora := []Corpus{
			{CorpusMetadata: CorpusMetadata{Name: "ger", Title: "German Drama Corpus"}},
			{CorpusMetadata: CorpusMetadata{Name: "tat", Title: "Tatar Drama Corpus"}},
		}
		if r.URL.Query().Get("include") == "metrics" {
			corpora[0].Metrics = &CorpusMetrics{Plays: 600}
			corpora[1].Metrics = &CorpusMetrics{Plays: 3}
		}
		_ = json.NewEncoder(w).Encode(corpora)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")

	plain, err := c.Corpora(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, plain, 2)
	assert.Nil(t, plain[0].Metrics)

	withMetrics, err := c.Corpora(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, withMetrics[1].Metrics)
	assert.Equal(t, 3, withMetrics[1].Metrics.Plays)
}

// TestCorpusExists verifies the exact-name matching against the corpora
// listing.
func TestCorpusExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Corpus{
			{CorpusMetadata: CorpusMetadata{Name: "ger"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")

	exists, err := c.CorpusExists(context.Background(), "ger")
	require.NoError(t, err)
	assert.True(t, exists)

	// "ge" is a prefix of "ger" but not an exact match.
	exists, err = c.CorpusExists(context.Background(), "ge")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestPutTEI verifies the authenticated TEI write: method, path, Basic
// auth, content type and body must all match.
func TestPutTEI(t *testing.T) {
	tei := []byte(`<?xml version="1.0"?><TEI xmlns="http://www.tei-c.org/ns/1.0"/>`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/corpora/tat/play/lessing-emilia-galotti/tei", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "PUT must be authenticated")
		assert.Equal(t, "admin", user)
		assert.Equal(t, "", pass)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, tei, body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")
	err := c.PutTEI(context.Background(), "tat", "lessing-emilia-galotti", tei)
	require.NoError(t, err)
}

// TestCreateCorpus_Conflict verifies that a 409 from the corpus creation
// endpoint is detectable through IsStatus.
func TestCreateCorpus_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/corpora", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")
	err := c.CreateCorpus(context.Background(), &CorpusMetadata{Name: "tat", Title: "Tatar Drama Corpus"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))
}

// TestDelete verifies corpus and play deletion paths.
func TestDelete(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path

		_, _, ok := r.BasicAuth()
		assert.True(t, ok, "DELETE must be authenticated")
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")

	require.NoError(t, c.Delete(context.Background(), "tat", ""))
	assert.Equal(t, "/api/corpora/tat", gotPath)

	require.NoError(t, c.Delete(context.Background(), "tat", "qwerty"))
	assert.Equal(t, "/api/corpora/tat/play/qwerty", gotPath)
}

// TestTEI verifies that TEI content is returned as raw bytes rather
// than being run through the JSON decoder.
func TestTEI(t *testing.T) {
	tei := `<?xml version="1.0"?><TEI xmlns="http://www.tei-c.org/ns/1.0"/>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/corpora/ger/play/lessing-emilia-galotti/tei", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(tei))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")
	body, err := c.TEI(context.Background(), "ger", "lessing-emilia-galotti")
	require.NoError(t, err)
	assert.Equal(t, tei, string(body))
}
