package instance

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dracor-org/stabledracor/internal/dracor"
)

// fakeDracor is an in-memory stand-in for a local DraCor API, covering
// the endpoints the instance operations touch.
type fakeDracor struct {
	t       *testing.T
	corpora map[string]*fakeCorpus
	server  *httptest.Server

	// failInfo makes the first n /info requests answer 503, simulating
	// the eXist boot phase.
	failInfo int
}

type fakeCorpus struct {
	meta  dracor.CorpusMetadata
	plays map[string][]byte
}

func newFakeDracor(t *testing.T) *fakeDracor {
	t.Helper()
	f := &fakeDracor{
		t:       t,
		corpora: make(map[string]*fakeCorpus),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDracor) client() *dracor.Client {
	return dracor.NewClient(f.server.URL+"/api/",
		dracor.WithCredentials(dracor.DefaultUsername, dracor.DefaultPassword))
}

func (f *fakeDracor) addCorpus(name, title string) *fakeCorpus {
	c := &fakeCorpus{
		meta:  dracor.CorpusMetadata{Name: name, Title: title},
		plays: make(map[string][]byte),
	}
	f.corpora[name] = c
	return c
}

func (f *fakeDracor) addPlay(corpusname, playname string, tei []byte) {
	f.corpora[corpusname].plays[playname] = tei
}

func (f *fakeDracor) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "info":
		if f.failInfo > 0 {
			f.failInfo--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]string{
			"name":    "DraCor API",
			"version": "1.0.2",
			"existdb": "6.0.1",
		})

	case len(parts) == 1 && parts[0] == "corpora":
		f.handleCorpora(w, r)

	case len(parts) == 2 && parts[0] == "corpora":
		f.handleCorpus(w, r, parts[1])

	case len(parts) >= 4 && parts[0] == "corpora" && parts[2] == "play":
		method := ""
		if len(parts) == 5 {
			method = parts[4]
		}
		f.handlePlay(w, r, parts[1], parts[3], method)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDracor) handleCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		withMetrics := r.URL.Query().Get("include") == "metrics"
		list := make([]map[string]any, 0, len(f.corpora))
		for name, c := range f.corpora {
			entry := map[string]any{"name": name, "title": c.meta.Title}
			if withMetrics {
				entry["metrics"] = map[string]int{"plays": len(c.plays)}
			}
			list = append(list, entry)
		}
		writeJSON(w, list)

	case http.MethodPost:
		var meta dracor.CorpusMetadata
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, exists := f.corpora[meta.Name]; exists {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.corpora[meta.Name] = &fakeCorpus{meta: meta, plays: make(map[string][]byte)}
		writeJSON(w, meta)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeDracor) handleCorpus(w http.ResponseWriter, r *http.Request, corpusname string) {
	c, ok := f.corpora[corpusname]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		dramas := make([]map[string]string, 0, len(c.plays))
		for playname := range c.plays {
			dramas = append(dramas, map[string]string{"name": playname})
		}
		writeJSON(w, map[string]any{
			"name":        c.meta.Name,
			"title":       c.meta.Title,
			"description": c.meta.Description,
			"repository":  c.meta.Repository,
			"dramas":      dramas,
		})

	case http.MethodDelete:
		delete(f.corpora, corpusname)
		writeJSON(w, map[string]string{"name": corpusname})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeDracor) handlePlay(w http.ResponseWriter, r *http.Request, corpusname, playname, method string) {
	c, ok := f.corpora[corpusname]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case r.Method == http.MethodPut && method == "tei":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.plays[playname] = body
		writeJSON(w, map[string]string{"name": playname})

	case r.Method == http.MethodGet && method == "tei":
		tei, ok := c.plays[playname]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write(tei)

	case r.Method == http.MethodDelete && method == "":
		if _, ok := c.plays[playname]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(c.plays, playname)
		writeJSON(w, map[string]string{"name": playname})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
