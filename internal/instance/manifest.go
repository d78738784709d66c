// manifest.go assembles the system manifest from live state and
// implements freezing: committing the api container, with the manifest
// encoded as image labels, to a dracor/stable-dracor image.
package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/dracor-org/stabledracor/internal/model"
	"github.com/dracor-org/stabledracor/internal/stack"
)

// Manifest assembles the current manifest of this instance: identity,
// known services and the bookkeeping of loaded corpora, with play
// counts refreshed from the local API. The API being down is not fatal;
// the manifest is then assembled from bookkeeping alone with a warning.
func (i *Instance) Manifest(ctx context.Context) *model.Manifest {
	m := &model.Manifest{
		Version: model.ManifestVersion,
		System: model.SystemInfo{
			ID:          i.id,
			Name:        i.name,
			Description: i.description,
			Timestamp:   model.Timestamp(time.Now()),
		},
		Services: make(map[string]*model.Service, len(i.services)),
		Corpora:  make(map[string]*model.CorpusRecord, len(i.corpora)),
	}

	for name, svc := range i.services {
		m.Services[name.String()] = svc
	}
	for name, record := range i.corpora {
		m.Corpora[name] = record
	}

	i.refreshPlayCounts(ctx, m)
	return m
}

// refreshPlayCounts overwrites the bookkeeped play counts with the
// numbers the local API reports, preferring the metrics block over
// counting the plays list.
func (i *Instance) refreshPlayCounts(ctx context.Context, m *model.Manifest) {
	corpora, err := i.api.Corpora(ctx, true)
	if err != nil {
		i.logf("cannot refresh play counts from the local API: %v", err)
		return
	}

	for _, corpus := range corpora {
		record, ok := m.Corpora[corpus.Name]
		if !ok {
			// Present in the database but never registered here, e.g.
			// loaded in an earlier session of the same stack.
			record = &model.CorpusRecord{CorpusName: corpus.Name}
			m.Corpora[corpus.Name] = record
		}
		if corpus.Metrics != nil {
			record.NumOfPlays = corpus.Metrics.Plays
		} else {
			record.NumOfPlays = len(corpus.Dramas)
		}
	}
}

// FrozenImageRepo is the image repository frozen systems are tagged
// into.
const FrozenImageRepo = "dracor/stable-dracor"

// Freeze commits the api container to a dracor/stable-dracor image
// tagged with the given tag. The manifest is attached as image labels,
// so the image carries its own provenance. Returns the created image
// ID.
//
// Only the api container is committed: it embeds the eXist database and
// therefore all loaded corpora. The other services are stateless stock
// images and are referenced by name in the manifest instead.
func (i *Instance) Freeze(ctx context.Context, tag string) (string, error) {
	if err := i.requireDocker(); err != nil {
		return "", err
	}
	if tag == "" {
		return "", model.NewCLIError(model.ExitBadInput, "freeze requires an image tag")
	}

	apiService, ok := i.services[model.ServiceAPI]
	if !ok {
		return "", model.NewCLIError(
			model.ExitBadInput,
			"no running api container known, run or attach to a stack first",
		)
	}

	manifest := i.Manifest(ctx)
	changes := stack.LabelsToChanges(stack.BuildLabels(manifest))

	reference := FrozenImageRepo + ":" + tag
	comment := fmt.Sprintf("stable-dracor system %s", i.id)
	if i.name != "" {
		comment = fmt.Sprintf("stable-dracor system %s (%s)", i.name, i.id)
	}

	i.logf("committing container %s as %s", apiService.Container, reference)
	imageID, err := stack.CommitContainer(ctx, i.docker, apiService.Container, reference, comment, changes)
	if err != nil {
		return "", err
	}

	i.logf("created image %s (%s)", reference, imageID)
	return imageID, nil
}

// ManifestFromImage reads the manifest back from the labels of a frozen
// image.
func (i *Instance) ManifestFromImage(ctx context.Context, imageRef string) (*model.Manifest, error) {
	if err := i.requireDocker(); err != nil {
		return nil, err
	}

	labels, err := stack.ImageLabels(ctx, i.docker, imageRef)
	if err != nil {
		return nil, err
	}

	manifest, err := stack.ParseLabels(labels)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitBadInput,
			fmt.Sprintf("image %s does not carry a stable-dracor manifest", imageRef),
			err,
		)
	}
	return manifest, nil
}

// Publish pushes a frozen image to the registry.
func (i *Instance) Publish(ctx context.Context, tag string) error {
	return stack.PushImage(ctx, FrozenImageRepo+":"+tag)
}
