// label.go encodes manifests into Docker image labels and decodes them
// back. When a system is frozen, the entire manifest is written as
// "org.dracor.stable-dracor.*" labels on the committed image, so the
// image itself carries the full provenance record and no external file
// is needed to understand what a published stable-dracor image contains.
//
// The encoding is flat key/value: nested manifest fields become dotted
// key segments, and collections are represented by a comma-separated
// list of member names next to per-member keys, e.g.
//
//	org.dracor.stable-dracor.corpora = "ger,tat"
//	org.dracor.stable-dracor.corpora.ger.num-of-plays = "3"
//	org.dracor.stable-dracor.corpora.ger.sources = "github"
//	org.dracor.stable-dracor.corpora.ger.sources.github.commit = "abc123"
package stack

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dracor-org/stabledracor/internal/model"
)

// LabelPrefix namespaces all manifest labels.
const LabelPrefix = "org.dracor.stable-dracor"

func labelKey(segments ...string) string {
	return LabelPrefix + "." + strings.Join(segments, ".")
}

// sortedKeys returns the keys of a map in lexical order so that label
// sets and Dockerfile changes are deterministic.
func sortedKeys[V any](m map[string]*V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildLabels flattens a manifest into image labels. Empty fields are
// omitted rather than written as empty strings.
func BuildLabels(m *model.Manifest) map[string]string {
	labels := map[string]string{
		labelKey("version"):   m.Version,
		labelKey("system.id"): m.System.ID,
	}

	setIfNotEmpty := func(key, value string) {
		if value != "" {
			labels[key] = value
		}
	}

	setIfNotEmpty(labelKey("system.name"), m.System.Name)
	setIfNotEmpty(labelKey("system.description"), m.System.Description)
	setIfNotEmpty(labelKey("system.timestamp"), m.System.Timestamp)

	if len(m.Services) > 0 {
		names := sortedKeys(m.Services)
		labels[labelKey("services")] = strings.Join(names, ",")
		for _, name := range names {
			svc := m.Services[name]
			setIfNotEmpty(labelKey("services", name, "image"), svc.Image)
			setIfNotEmpty(labelKey("services", name, "version"), svc.Version)
			setIfNotEmpty(labelKey("services", name, "existdb"), svc.ExistDB)
		}
	}

	if len(m.Corpora) > 0 {
		names := sortedKeys(m.Corpora)
		labels[labelKey("corpora")] = strings.Join(names, ",")
		for _, name := range names {
			corpus := m.Corpora[name]
			setIfNotEmpty(labelKey("corpora", name, "corpusname"), corpus.CorpusName)
			setIfNotEmpty(labelKey("corpora", name, "timestamp"), corpus.Timestamp)
			if corpus.NumOfPlays > 0 {
				labels[labelKey("corpora", name, "num-of-plays")] = strconv.Itoa(corpus.NumOfPlays)
			}

			if len(corpus.Sources) == 0 {
				continue
			}
			sourceNames := sortedKeys(corpus.Sources)
			labels[labelKey("corpora", name, "sources")] = strings.Join(sourceNames, ",")
			for _, sourceName := range sourceNames {
				addSourceLabels(labels, name, sourceName, corpus.Sources[sourceName])
			}
		}
	}

	return labels
}

func addSourceLabels(labels map[string]string, corpusName, sourceName string, src *model.Source) {
	key := func(field ...string) string {
		segments := append([]string{"corpora", corpusName, "sources", sourceName}, field...)
		return labelKey(segments...)
	}

	setIfNotEmpty := func(k, value string) {
		if value != "" {
			labels[k] = value
		}
	}

	setIfNotEmpty(key("type"), string(src.Type))
	setIfNotEmpty(key("corpusname"), src.CorpusName)
	setIfNotEmpty(key("url"), src.URL)
	setIfNotEmpty(key("commit"), src.Commit)
	setIfNotEmpty(key("timestamp"), src.Timestamp)
	if src.NumOfPlays > 0 {
		labels[key("num-of-plays")] = strconv.Itoa(src.NumOfPlays)
	}
	if src.Exclude != nil && len(src.Exclude.IDs) > 0 {
		setIfNotEmpty(key("exclude", "type"), src.Exclude.Type)
		labels[key("exclude", "ids")] = strings.Join(src.Exclude.IDs, ",")
	}
	if src.Include != nil && len(src.Include.IDs) > 0 {
		setIfNotEmpty(key("include", "type"), src.Include.Type)
		labels[key("include", "ids")] = strings.Join(src.Include.IDs, ",")
	}
}

// LabelsToChanges converts a label map into Dockerfile LABEL
// instructions accepted by the commit API's Changes option. Values are
// quoted and embedded quotes escaped.
func LabelsToChanges(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.ReplaceAll(labels[k], `"`, `\"`)
		changes = append(changes, fmt.Sprintf(`LABEL %s="%s"`, k, value))
	}
	return changes
}

// ParseLabels reconstructs a manifest from image labels. Labels outside
// the org.dracor.stable-dracor namespace are ignored, so the map can
// come straight from an image inspect. Returns an error if the labels
// carry no manifest at all.
func ParseLabels(labels map[string]string) (*model.Manifest, error) {
	get := func(segments ...string) string {
		return labels[labelKey(segments...)]
	}

	if get("version") == "" && get("system.id") == "" {
		return nil, fmt.Errorf("no %s labels found", LabelPrefix)
	}

	m := &model.Manifest{
		Version: get("version"),
		System: model.SystemInfo{
			ID:          get("system.id"),
			Name:        get("system.name"),
			Description: get("system.description"),
			Timestamp:   get("system.timestamp"),
		},
	}

	if csv := get("services"); csv != "" {
		m.Services = make(map[string]*model.Service)
		for _, name := range strings.Split(csv, ",") {
			m.Services[name] = &model.Service{
				Image:   get("services", name, "image"),
				Version: get("services", name, "version"),
				ExistDB: get("services", name, "existdb"),
			}
		}
	}

	if csv := get("corpora"); csv != "" {
		m.Corpora = make(map[string]*model.CorpusRecord)
		for _, name := range strings.Split(csv, ",") {
			corpus := &model.CorpusRecord{
				CorpusName: get("corpora", name, "corpusname"),
				Timestamp:  get("corpora", name, "timestamp"),
			}
			if raw := get("corpora", name, "num-of-plays"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("invalid num-of-plays label for corpus %s: %w", name, err)
				}
				corpus.NumOfPlays = n
			}

			if sourcesCSV := get("corpora", name, "sources"); sourcesCSV != "" {
				corpus.Sources = make(map[string]*model.Source)
				for _, sourceName := range strings.Split(sourcesCSV, ",") {
					src, err := parseSourceLabels(labels, name, sourceName)
					if err != nil {
						return nil, err
					}
					corpus.Sources[sourceName] = src
				}
			}

			m.Corpora[name] = corpus
		}
	}

	return m, nil
}

func parseSourceLabels(labels map[string]string, corpusName, sourceName string) (*model.Source, error) {
	get := func(field ...string) string {
		segments := append([]string{"corpora", corpusName, "sources", sourceName}, field...)
		return labels[labelKey(segments...)]
	}

	src := &model.Source{
		Type:       model.SourceType(get("type")),
		CorpusName: get("corpusname"),
		URL:        get("url"),
		Commit:     get("commit"),
		Timestamp:  get("timestamp"),
	}

	if raw := get("num-of-plays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid num-of-plays label for source %s of corpus %s: %w", sourceName, corpusName, err)
		}
		src.NumOfPlays = n
	}

	if ids := get("exclude", "ids"); ids != "" {
		src.Exclude = &model.IDList{
			Type: get("exclude", "type"),
			IDs:  strings.Split(ids, ","),
		}
	}
	if ids := get("include", "ids"); ids != "" {
		src.Include = &model.IDList{
			Type: get("include", "type"),
			IDs:  strings.Split(ids, ","),
		}
	}

	return src, nil
}
