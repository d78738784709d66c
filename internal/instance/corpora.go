// corpora.go implements corpus management against the local API:
// creating and removing corpora and copying plays over from another
// running DraCor instance, typically the production system.
package instance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dracor-org/stabledracor/internal/dracor"
	"github.com/dracor-org/stabledracor/internal/model"
)

// AddCorpus creates an empty corpus in the local system. Returns false
// without error when a corpus of that name already exists; the existing
// corpus is left untouched.
//
// After creation the corpus is read back and compared against the
// submitted metadata. The API adds fields of its own (an empty dramas
// list for instance), so only the submitted fields are compared, and a
// mismatch is a warning rather than an error.
func (i *Instance) AddCorpus(ctx context.Context, metadata *dracor.CorpusMetadata) (bool, error) {
	if metadata == nil || metadata.Name == "" {
		return false, model.NewCLIError(model.ExitBadInput, "corpus metadata must include a name")
	}

	err := i.api.CreateCorpus(ctx, metadata)
	if dracor.IsStatus(err, http.StatusConflict) {
		i.logf("corpus %s already exists, skipping creation", metadata.Name)
		i.registerCorpus(metadata.Name)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create corpus %s: %w", metadata.Name, err)
	}

	created, err := i.api.Corpus(ctx, metadata.Name)
	if err != nil {
		return false, fmt.Errorf("corpus %s was created but cannot be read back: %w", metadata.Name, err)
	}
	i.checkCorpusMetadata(metadata, &created.CorpusMetadata)

	i.registerCorpus(metadata.Name)
	i.logf("created corpus %s", metadata.Name)
	return true, nil
}

// checkCorpusMetadata warns about fields the API stored differently
// than submitted. Fields left empty in the submission are not checked.
func (i *Instance) checkCorpusMetadata(submitted, stored *dracor.CorpusMetadata) {
	check := func(field, want, got string) {
		if want != "" && want != got {
			i.logf("corpus %s: %s stored as %q, submitted %q", submitted.Name, field, got, want)
		}
	}
	check("name", submitted.Name, stored.Name)
	check("title", submitted.Title, stored.Title)
	check("description", submitted.Description, stored.Description)
	check("repository", submitted.Repository, stored.Repository)
}

// RemoveCorpus deletes a corpus and all its plays from the local
// system. Returns false without error if the corpus does not exist.
func (i *Instance) RemoveCorpus(ctx context.Context, corpusname string) (bool, error) {
	err := i.api.Delete(ctx, corpusname, "")
	if dracor.IsStatus(err, http.StatusNotFound) {
		i.logf("corpus %s does not exist", corpusname)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove corpus %s: %w", corpusname, err)
	}

	delete(i.corpora, corpusname)
	i.logf("removed corpus %s", corpusname)
	return true, nil
}

// RemovePlay deletes a single play from a local corpus. Returns false
// without error if the play does not exist.
func (i *Instance) RemovePlay(ctx context.Context, corpusname, playname string) (bool, error) {
	err := i.api.Delete(ctx, corpusname, playname)
	if dracor.IsStatus(err, http.StatusNotFound) {
		i.logf("play %s not found in corpus %s", playname, corpusname)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove play %s from corpus %s: %w", playname, corpusname, err)
	}

	i.logf("removed play %s from corpus %s", playname, corpusname)
	return true, nil
}

// CopyCorpus replicates a corpus from another DraCor instance: it
// creates a local corpus with the source's metadata and then copies the
// plays. Plays named in exclude are skipped. Non-empty fields of
// override replace the source metadata; overriding the name copies the
// plays into a corpus of that name. Returns the number of plays copied.
func (i *Instance) CopyCorpus(ctx context.Context, source *dracor.Client, corpusname string, exclude []string, override *dracor.CorpusMetadata) (int, error) {
	sourceCorpus, err := source.Corpus(ctx, corpusname)
	if err != nil {
		return 0, model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to fetch corpus %s from %s", corpusname, source.BaseURL()),
			err,
		)
	}

	metadata := sourceCorpus.CorpusMetadata
	if override != nil {
		if override.Name != "" {
			metadata.Name = override.Name
		}
		if override.Title != "" {
			metadata.Title = override.Title
		}
		if override.Description != "" {
			metadata.Description = override.Description
		}
		if override.Repository != "" {
			metadata.Repository = override.Repository
		}
	}

	if _, err := i.AddCorpus(ctx, &metadata); err != nil {
		return 0, err
	}

	return i.CopyCorpusContents(ctx, source, corpusname, metadata.Name, exclude)
}

// CopyCorpusContents copies the plays of a source corpus into an
// existing local corpus. The TEI of every play is fetched from the
// source and PUT into the target; plays named in exclude are skipped,
// and plays whose transfer fails are recorded in the source's exclude
// list and do not abort the copy.
//
// After the copy the local play count is verified against the number of
// successful transfers; a mismatch is logged as a warning.
func (i *Instance) CopyCorpusContents(ctx context.Context, source *dracor.Client, sourceCorpus, targetCorpus string, exclude []string) (int, error) {
	corpus, err := source.Corpus(ctx, sourceCorpus)
	if err != nil {
		return 0, model.WrapCLIError(
			model.ExitUpstreamFailed,
			fmt.Sprintf("failed to fetch corpus %s from %s", sourceCorpus, source.BaseURL()),
			err,
		)
	}

	src := &model.Source{
		Type:       model.SourceAPI,
		CorpusName: sourceCorpus,
		URL:        dracor.BuildRequestURL(source.BaseURL(), sourceCorpus, "", ""),
		Timestamp:  model.Timestamp(time.Now()),
	}

	excluded := make(map[string]bool, len(exclude))
	for _, playname := range exclude {
		excluded[playname] = true
		src.ExcludeID("slug", playname)
	}

	copied := 0
	for _, play := range corpus.Dramas {
		if excluded[play.Name] {
			i.logf("skipping excluded play %s", play.Name)
			continue
		}

		tei, err := source.TEI(ctx, sourceCorpus, play.Name)
		if err != nil {
			i.logf("failed to fetch TEI of %s from source, excluding: %v", play.Name, err)
			src.ExcludeID("slug", play.Name)
			continue
		}

		if err := i.api.PutTEI(ctx, targetCorpus, play.Name, tei); err != nil {
			i.logf("failed to store play %s locally, excluding: %v", play.Name, err)
			src.ExcludeID("slug", play.Name)
			continue
		}
		copied++
	}

	src.NumOfPlays = copied
	i.registerSource(targetCorpus, sourceHost(source.BaseURL()), src)

	local, err := i.api.Corpus(ctx, targetCorpus)
	if err != nil {
		i.logf("cannot verify play count of corpus %s: %v", targetCorpus, err)
	} else if len(local.Dramas) < copied {
		i.logf("corpus %s holds %d plays, expected at least %d", targetCorpus, len(local.Dramas), copied)
	}

	i.logf("copied %d plays into corpus %s", copied, targetCorpus)
	return copied, nil
}

// sourceHost extracts the hostname of an API base URL for use as a
// source name. Falls back to the raw URL if it does not parse.
func sourceHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
