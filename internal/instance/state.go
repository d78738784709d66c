// state.go persists the part of an instance that must survive between
// runs of the tool: the system identity and the provenance records of
// every loaded corpus. Each CLI invocation builds a fresh Instance, so
// without the state file a later freeze would not know which commits
// the corpora were imported from.
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dracor-org/stabledracor/internal/model"
)

// DefaultStateFile is the state file looked for in the working
// directory, next to the config file.
const DefaultStateFile = "stabledracor.state.json"

// State is the persisted part of an Instance.
type State struct {
	System  model.SystemInfo               `json:"system"`
	Corpora map[string]*model.CorpusRecord `json:"corpora,omitempty"`
}

// LoadState reads a state file. A missing file is not an error and
// yields a nil state, so a fresh working directory starts from nothing.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, model.WrapCLIError(
			model.ExitBadInput,
			fmt.Sprintf("state file %s is not valid JSON", path),
			err,
		)
	}
	return &st, nil
}

// WithState restores the identity and corpus records saved by a
// previous run. Name and description from the configuration take
// precedence over the saved ones. A nil state is ignored.
func WithState(st *State) Option {
	return func(i *Instance) {
		if st == nil {
			return
		}
		if st.System.ID != "" {
			i.id = st.System.ID
		}
		if i.name == "" {
			i.name = st.System.Name
		}
		if i.description == "" {
			i.description = st.System.Description
		}
		for name, record := range st.Corpora {
			i.corpora[name] = record
		}
	}
}

// State captures the current identity and corpus bookkeeping for
// persisting.
func (i *Instance) State() *State {
	return &State{
		System: model.SystemInfo{
			ID:          i.id,
			Name:        i.name,
			Description: i.description,
			Timestamp:   model.Timestamp(time.Now()),
		},
		Corpora: i.corpora,
	}
}

// SaveState writes the instance state to path. Every operation that
// changes the corpus bookkeeping should save afterwards, so the
// provenance reaches later invocations, in particular freeze.
func (i *Instance) SaveState(path string) error {
	data, err := json.MarshalIndent(i.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}
