package dracor

// Info is the response of the /info endpoint. It identifies the API
// software and the underlying eXist-DB version, both of which are
// recorded in the manifest of a frozen system.
type Info struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Status  string `json:"status,omitempty"`
	ExistDB string `json:"existdb,omitempty"`
}

// CorpusMetadata holds the writable metadata fields of a corpus.
// This is the payload for the admin POST /corpora operation:
//
//	{"name": "rus", "title": "Russian Drama Corpus",
//	 "repository": "https://github.com/dracor-org/rusdracor"}
type CorpusMetadata struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Repository  string `json:"repository,omitempty"`
}

// Corpus is the representation returned by /corpora and
// /corpora/{corpusname}. The Dramas list is only populated by the
// single-corpus endpoint; Metrics only when requested with
// ?include=metrics.
type Corpus struct {
	CorpusMetadata

	// Dramas lists the plays contained in the corpus.
	Dramas []PlayMeta `json:"dramas,omitempty"`

	// Metrics holds corpus-level counts, if requested.
	Metrics *CorpusMetrics `json:"metrics,omitempty"`
}

// PlayMeta is the per-play metadata embedded in a corpus listing.
// Only the fields the client actually uses are mapped; the API returns
// many more.
type PlayMeta struct {
	// Name is the play identifier ("playname"), e.g.
	// "lessing-emilia-galotti".
	Name string `json:"name"`

	// ID is the stable DraCor ID of the play, e.g. "ger000088".
	ID string `json:"id,omitempty"`

	// Title is the play title.
	Title string `json:"title,omitempty"`
}

// CorpusMetrics holds the corpus-level counts returned with
// ?include=metrics. Only the play count is used by this client.
type CorpusMetrics struct {
	Plays int `json:"plays"`
}
