package instance

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dracor-org/stabledracor/internal/github"
	"github.com/dracor-org/stabledracor/internal/model"
)

const testCorpusXML = `<?xml version="1.0" encoding="UTF-8"?>
<teiCorpus xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>
    <fileDesc>
      <titleStmt>
        <title>Tatar Drama Corpus</title>
      </titleStmt>
      <publicationStmt>
        <idno type="URI">https://dracor.org/tat</idno>
      </publicationStmt>
    </fileDesc>
    <encodingDesc>
      <projectDesc>
        <p>A corpus of
          Tatar drama.</p>
      </projectDesc>
    </encodingDesc>
  </teiHeader>
</teiCorpus>`

// fakeGitHub serves the REST API and raw-content endpoints for a single
// repository at a single commit.
type fakeGitHub struct {
	api   *httptest.Server
	raw   *httptest.Server
	owner string
	repo  string

	commit    string
	corpusXML string
	teiFiles  map[string]string
}

func newFakeGitHub(t *testing.T, owner, repo, commit string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		owner:    owner,
		repo:     repo,
		commit:   commit,
		teiFiles: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("/repos/%s/%s/commits", owner, repo), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"sha": f.commit}})
	})
	mux.HandleFunc(fmt.Sprintf("/repos/%s/%s/commits/", owner, repo), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"sha": f.commit,
			"commit": map[string]any{
				"tree": map[string]string{"sha": "root", "url": f.api.URL + "/trees/root"},
			},
		})
	})
	mux.HandleFunc("/trees/root", func(w http.ResponseWriter, r *http.Request) {
		tree := []map[string]string{
			{"path": "README.md", "type": "blob", "url": f.api.URL + "/blobs/readme"},
			{"path": "tei", "type": "tree", "url": f.api.URL + "/trees/tei"},
		}
		if f.corpusXML != "" {
			tree = append(tree, map[string]string{
				"path": "corpus.xml", "type": "blob", "url": f.api.URL + "/blobs/corpus",
			})
		}
		writeJSON(w, map[string]any{"sha": "root", "tree": tree})
	})
	mux.HandleFunc("/trees/tei", func(w http.ResponseWriter, r *http.Request) {
		tree := make([]map[string]string, 0, len(f.teiFiles))
		for name := range f.teiFiles {
			tree = append(tree, map[string]string{"path": name, "type": "blob"})
		}
		writeJSON(w, map[string]any{"sha": "tei", "tree": tree})
	})
	mux.HandleFunc("/blobs/corpus", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"content":  base64.StdEncoding.EncodeToString([]byte(f.corpusXML)),
			"encoding": "base64",
		})
	})
	f.api = httptest.NewServer(mux)
	t.Cleanup(f.api.Close)

	f.raw = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, content := range f.teiFiles {
			if r.URL.Path == fmt.Sprintf("/%s/%s/%s/tei/%s", owner, repo, f.commit, name) {
				w.Write([]byte(content))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(f.raw.Close)

	return f
}

func (f *fakeGitHub) client() *github.Client {
	return github.NewClient(
		github.WithBaseURLs(f.api.URL+"/", f.raw.URL),
		github.WithToken(""),
	)
}

func TestCorpusMetadataFromXML(t *testing.T) {
	metadata, err := corpusMetadataFromXML([]byte(testCorpusXML))
	require.NoError(t, err)

	assert.Equal(t, "tat", metadata.Name, "corpus name comes from the URI idno's last path segment")
	assert.Equal(t, "Tatar Drama Corpus", metadata.Title)
	assert.Equal(t, "A corpus of Tatar drama.", metadata.Description,
		"description whitespace should be normalized")
}

func TestCorpusMetadataFromXMLWithoutIdno(t *testing.T) {
	_, err := corpusMetadataFromXML([]byte(`<teiCorpus><teiHeader/></teiCorpus>`))
	assert.Error(t, err, "a corpus.xml without a URI idno cannot name the corpus")
}

func TestWellFormedXML(t *testing.T) {
	assert.NoError(t, wellFormedXML([]byte(`<TEI><text>ok</text></TEI>`)))
	assert.Error(t, wellFormedXML([]byte(`<TEI><text>broken</TEI>`)))
}

func TestAddPlayFromRepo(t *testing.T) {
	gh := newFakeGitHub(t, "dracor-org", "tatdracor", "abc123def456")
	gh.teiFiles["askarov-auylym-yrlary.xml"] = "<TEI>play</TEI>"

	local := newFakeDracor(t)
	i := New(local.client(), WithGitHubClient(gh.client()))

	// The .xml extension is optional in the filename argument.
	playname, err := i.AddPlayFromRepo(context.Background(), "tat", "dracor-org", "tatdracor",
		"askarov-auylym-yrlary", "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, "askarov-auylym-yrlary", playname)

	require.Contains(t, local.corpora, "tat", "corpus should be created on the fly")
	assert.Equal(t, []byte("<TEI>play</TEI>"), local.corpora["tat"].plays["askarov-auylym-yrlary"])

	record := i.corpora["tat"]
	require.NotNil(t, record)
	src := record.Sources["dracor-org-tatdracor"]
	require.NotNil(t, src)
	assert.Equal(t, model.SourceRepository, src.Type)
	assert.Equal(t, "abc123def456", src.Commit)
	require.NotNil(t, src.Include)
	assert.Equal(t, []string{"askarov-auylym-yrlary"}, src.Include.IDs)
}

func TestAddPlayFromRepoResolvesLatestCommit(t *testing.T) {
	gh := newFakeGitHub(t, "dracor-org", "tatdracor", "abc123def456")
	gh.teiFiles["some-play.xml"] = "<TEI/>"

	local := newFakeDracor(t)
	i := New(local.client(), WithGitHubClient(gh.client()))

	_, err := i.AddPlayFromRepo(context.Background(), "tat", "dracor-org", "tatdracor", "some-play.xml", "")
	require.NoError(t, err)

	src := i.corpora["tat"].Sources["dracor-org-tatdracor"]
	require.NotNil(t, src)
	assert.Equal(t, "abc123def456", src.Commit,
		"an empty commit should be pinned to the repository's latest commit")
}

func TestAddCorpusFromRepo(t *testing.T) {
	gh := newFakeGitHub(t, "dracor-org", "tatdracor", "abc123def456")
	gh.corpusXML = testCorpusXML
	gh.teiFiles["play-one.xml"] = "<TEI>1</TEI>"
	gh.teiFiles["play-two.xml"] = "<TEI>2</TEI>"
	gh.teiFiles["broken.xml"] = "<TEI>unclosed"

	local := newFakeDracor(t)
	i := New(local.client(), WithGitHubClient(gh.client()))

	corpusname, imported, err := i.AddCorpusFromRepo(context.Background(),
		"dracor-org", "tatdracor", "abc123def456", []string{"play-two"})
	require.NoError(t, err)
	assert.Equal(t, "tat", corpusname, "corpus name comes from corpus.xml")
	assert.Equal(t, 1, imported, "one play excluded, one malformed, one imported")

	require.Contains(t, local.corpora, "tat")
	assert.Equal(t, "Tatar Drama Corpus", local.corpora["tat"].meta.Title)
	assert.Contains(t, local.corpora["tat"].plays, "play-one")
	assert.NotContains(t, local.corpora["tat"].plays, "broken")

	src := i.corpora["tat"].Sources["dracor-org-tatdracor"]
	require.NotNil(t, src)
	assert.Equal(t, 1, src.NumOfPlays)
	require.NotNil(t, src.Exclude)
	assert.ElementsMatch(t, []string{"play-two", "broken"}, src.Exclude.IDs,
		"both the user exclusion and the malformed file should be recorded")
}

func TestAddPlaysFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good-play.xml"), []byte("<TEI>ok</TEI>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-play.xml"), []byte("<TEI>bad"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a play"), 0o644))

	local := newFakeDracor(t)
	i := New(local.client())

	added, err := i.AddPlaysFromDirectory(context.Background(), "mine", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	require.Contains(t, local.corpora, "mine")
	assert.Contains(t, local.corpora["mine"].plays, "good-play")
	assert.NotContains(t, local.corpora["mine"].plays, "bad-play")

	record := i.corpora["mine"]
	require.NotNil(t, record)
	require.Len(t, record.Sources, 1)
	for _, src := range record.Sources {
		assert.Equal(t, model.SourceFiles, src.Type)
		assert.Equal(t, 1, src.NumOfPlays)
		require.NotNil(t, src.Exclude)
		assert.Equal(t, []string{"bad-play"}, src.Exclude.IDs)
	}
}
