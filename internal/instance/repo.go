// repo.go implements corpus population from pinned sources: GitHub
// corpus repositories at a fixed commit and local directories of TEI
// files. Pinning to a commit is what makes a loaded system
// reproducible; the commit hash is recorded in the corpus source so a
// manifest can be replayed later against the exact same data.
package instance

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/dracor-org/stabledracor/internal/dracor"
	"github.com/dracor-org/stabledracor/internal/model"
)

// requireGitHub guards operations that talk to the GitHub API.
func (i *Instance) requireGitHub() error {
	if i.gh == nil {
		return model.NewCLIError(
			model.ExitBadInput,
			"this operation requires a GitHub client",
		)
	}
	return nil
}

// wellFormedXML checks that data parses as XML. The local API rejects
// malformed documents with an unhelpful server error, so broken files
// are caught here before the upload.
func wellFormedXML(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// AddPlayFromRepo fetches a single TEI file from a corpus repository
// and stores it in a local corpus. The corpus is created on the fly if
// it does not exist. An empty commit means the repository's latest
// commit, which is resolved first so the recorded source is still
// pinned.
//
// The filename may be given with or without the .xml extension. Returns
// the playname under which the play was stored.
func (i *Instance) AddPlayFromRepo(ctx context.Context, corpusname, owner, repo, filename, commit string) (string, error) {
	if err := i.requireGitHub(); err != nil {
		return "", err
	}

	commit, err := i.resolveCommit(ctx, owner, repo, commit)
	if err != nil {
		return "", err
	}

	if !strings.HasSuffix(filename, ".xml") {
		filename += ".xml"
	}

	tei, err := i.gh.FetchRaw(ctx, owner, repo, commit, i.dataFolder, filename)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to fetch %s from %s/%s at %s", filename, owner, repo, commit),
			err,
		)
	}
	if err := wellFormedXML(tei); err != nil {
		return "", model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("%s from %s/%s is not well-formed XML", filename, owner, repo),
			err,
		)
	}

	if err := i.ensureCorpus(ctx, corpusname); err != nil {
		return "", err
	}

	playname := model.PlaySlug(filename)
	if err := i.api.PutTEI(ctx, corpusname, playname, tei); err != nil {
		return "", fmt.Errorf("failed to store play %s in corpus %s: %w", playname, corpusname, err)
	}

	i.registerSource(corpusname, owner+"-"+repo, &model.Source{
		Type:       model.SourceRepository,
		CorpusName: corpusname,
		URL:        fmt.Sprintf("https://github.com/%s/%s", owner, repo),
		Commit:     commit,
		Timestamp:  model.Timestamp(time.Now()),
		NumOfPlays: 1,
		Include:    &model.IDList{Type: "slug", IDs: []string{playname}},
	})

	i.logf("added play %s to corpus %s from %s/%s@%s", playname, corpusname, owner, repo, shortCommit(commit))
	return playname, nil
}

// AddCorpusFromRepo imports a whole corpus repository at a pinned
// commit. The corpus metadata is taken from the repository's
// corpus.xml, every TEI file in the data folder is uploaded, and plays
// named in exclude are skipped. Returns the corpus name and the number
// of imported plays.
func (i *Instance) AddCorpusFromRepo(ctx context.Context, owner, repo, commit string, exclude []string) (string, int, error) {
	if err := i.requireGitHub(); err != nil {
		return "", 0, err
	}

	commit, err := i.resolveCommit(ctx, owner, repo, commit)
	if err != nil {
		return "", 0, err
	}

	corpusXML, err := i.gh.CorpusXML(ctx, owner, repo, commit)
	if err != nil {
		return "", 0, model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to fetch corpus.xml from %s/%s at %s", owner, repo, commit),
			err,
		)
	}

	metadata, err := corpusMetadataFromXML(corpusXML)
	if err != nil {
		return "", 0, model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to parse corpus.xml of %s/%s", owner, repo),
			err,
		)
	}
	if metadata.Repository == "" {
		metadata.Repository = fmt.Sprintf("https://github.com/%s/%s", owner, repo)
	}

	if _, err := i.AddCorpus(ctx, metadata); err != nil {
		return "", 0, err
	}

	files, err := i.gh.ListDataFiles(ctx, owner, repo, commit, i.dataFolder)
	if err != nil {
		return "", 0, model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to list data files of %s/%s at %s", owner, repo, commit),
			err,
		)
	}

	src := &model.Source{
		Type:       model.SourceRepository,
		CorpusName: metadata.Name,
		URL:        metadata.Repository,
		Commit:     commit,
		Timestamp:  model.Timestamp(time.Now()),
	}

	excluded := make(map[string]bool, len(exclude))
	for _, playname := range exclude {
		excluded[playname] = true
		src.ExcludeID("slug", playname)
	}

	imported := 0
	for _, filename := range files {
		playname := model.PlaySlug(filename)
		if excluded[playname] {
			i.logf("skipping excluded play %s", playname)
			continue
		}

		tei, err := i.gh.FetchRaw(ctx, owner, repo, commit, i.dataFolder, filename)
		if err != nil {
			i.logf("failed to fetch %s, excluding: %v", filename, err)
			src.ExcludeID("slug", playname)
			continue
		}
		if err := wellFormedXML(tei); err != nil {
			i.logf("%s is not well-formed XML, excluding: %v", filename, err)
			src.ExcludeID("slug", playname)
			continue
		}
		if err := i.api.PutTEI(ctx, metadata.Name, playname, tei); err != nil {
			i.logf("failed to store play %s, excluding: %v", playname, err)
			src.ExcludeID("slug", playname)
			continue
		}
		imported++
	}

	src.NumOfPlays = imported
	i.registerSource(metadata.Name, owner+"-"+repo, src)

	i.logf("imported %d plays into corpus %s from %s/%s@%s", imported, metadata.Name, owner, repo, shortCommit(commit))
	return metadata.Name, imported, nil
}

// AddPlaysFromDirectory uploads all .xml files of a local directory
// into a corpus, creating the corpus if needed. Files that are not
// well-formed XML are skipped with a warning, plays named in exclude
// are skipped silently. Returns the number of plays added.
func (i *Instance) AddPlaysFromDirectory(ctx context.Context, corpusname, dir string, exclude []string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, model.WrapCLIError(
			model.ExitBadInput,
			fmt.Sprintf("failed to read directory %s", dir),
			err,
		)
	}

	if err := i.ensureCorpus(ctx, corpusname); err != nil {
		return 0, err
	}

	src := &model.Source{
		Type:       model.SourceFiles,
		CorpusName: corpusname,
		URL:        dir,
		Timestamp:  model.Timestamp(time.Now()),
	}

	excluded := make(map[string]bool, len(exclude))
	for _, playname := range exclude {
		excluded[playname] = true
		src.ExcludeID("slug", playname)
	}

	added := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
			continue
		}
		playname := model.PlaySlug(entry.Name())
		if excluded[playname] {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			i.logf("failed to read %s, excluding: %v", entry.Name(), err)
			src.ExcludeID("slug", playname)
			continue
		}
		if err := wellFormedXML(data); err != nil {
			i.logf("%s is not well-formed XML, excluding: %v", entry.Name(), err)
			src.ExcludeID("slug", playname)
			continue
		}
		if err := i.api.PutTEI(ctx, corpusname, playname, data); err != nil {
			i.logf("failed to store play %s, excluding: %v", playname, err)
			src.ExcludeID("slug", playname)
			continue
		}
		added++
	}

	src.NumOfPlays = added
	i.registerSource(corpusname, "files-"+filepath.Base(dir), src)

	i.logf("added %d plays to corpus %s from %s", added, corpusname, dir)
	return added, nil
}

// CloneCorpusRepo clones a corpus repository to a local directory and,
// if a commit is given, checks out exactly that commit. Useful to edit
// TEI files locally before importing them with AddPlaysFromDirectory.
func (i *Instance) CloneCorpusRepo(ctx context.Context, dir, repoURL, commit string) error {
	i.logf("cloning %s into %s", repoURL, dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: repoURL,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to clone %s", repoURL),
			err,
		)
	}

	if commit == "" {
		return nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree of %s: %w", dir, err)
	}
	err = worktree.Checkout(&git.CheckoutOptions{
		Hash: plumbing.NewHash(commit),
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to check out commit %s in %s", commit, dir),
			err,
		)
	}
	return nil
}

// ensureCorpus creates a minimal local corpus if none of that name
// exists yet.
func (i *Instance) ensureCorpus(ctx context.Context, corpusname string) error {
	exists, err := i.api.CorpusExists(ctx, corpusname)
	if err != nil {
		return fmt.Errorf("failed to check for corpus %s: %w", corpusname, err)
	}
	if exists {
		i.registerCorpus(corpusname)
		return nil
	}

	_, err = i.AddCorpus(ctx, &dracor.CorpusMetadata{
		Name:  corpusname,
		Title: corpusname,
	})
	return err
}

// resolveCommit returns the commit unchanged when given, otherwise the
// repository's current latest commit.
func (i *Instance) resolveCommit(ctx context.Context, owner, repo, commit string) (string, error) {
	if commit != "" {
		return commit, nil
	}

	latest, err := i.gh.LatestCommit(ctx, owner, repo)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to resolve latest commit of %s/%s", owner, repo),
			err,
		)
	}
	i.logf("pinned %s/%s to commit %s", owner, repo, shortCommit(latest))
	return latest, nil
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

// teiCorpus models the slice of a corpus.xml TEI header needed for
// corpus metadata. Element names are matched by local name, so the TEI
// namespace does not need to be spelled out.
type teiCorpus struct {
	XMLName xml.Name
	Header  struct {
		FileDesc struct {
			TitleStmt struct {
				Title string `xml:"title"`
			} `xml:"titleStmt"`
			PublicationStmt struct {
				Idnos []struct {
					Type  string `xml:"type,attr"`
					Value string `xml:",chardata"`
				} `xml:"idno"`
			} `xml:"publicationStmt"`
		} `xml:"fileDesc"`
		EncodingDesc struct {
			ProjectDesc struct {
				Paragraphs []string `xml:"p"`
			} `xml:"projectDesc"`
		} `xml:"encodingDesc"`
	} `xml:"teiHeader"`
}

// corpusMetadataFromXML extracts corpus metadata from a corpus.xml
// document: the title from the title statement, the corpus name from
// the URI idno's last path segment, and the description from the
// project description paragraphs.
func corpusMetadataFromXML(data []byte) (*dracor.CorpusMetadata, error) {
	var doc teiCorpus
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	metadata := &dracor.CorpusMetadata{
		Title: strings.TrimSpace(doc.Header.FileDesc.TitleStmt.Title),
	}

	for _, idno := range doc.Header.FileDesc.PublicationStmt.Idnos {
		if idno.Type != "URI" {
			continue
		}
		uri := strings.TrimRight(strings.TrimSpace(idno.Value), "/")
		if idx := strings.LastIndex(uri, "/"); idx >= 0 {
			metadata.Name = uri[idx+1:]
		} else {
			metadata.Name = uri
		}
		break
	}

	if paragraphs := doc.Header.EncodingDesc.ProjectDesc.Paragraphs; len(paragraphs) > 0 {
		for idx, p := range paragraphs {
			paragraphs[idx] = strings.Join(strings.Fields(p), " ")
		}
		metadata.Description = strings.TrimSpace(strings.Join(paragraphs, " "))
	}

	if metadata.Name == "" {
		return nil, errors.New("corpus.xml has no idno of type URI to derive the corpus name from")
	}
	return metadata, nil
}
