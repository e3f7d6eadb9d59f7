package llm

import (
	"fmt"
	"strings"
)

// ModelOption is one selectable backend: a registered id, the label shown in
// the chat UI, the remote model identifier and the client that reaches it.
type ModelOption struct {
	ID          string
	DisplayName string
	Model       string
	Client      Client
}

// Registry keeps the registered model options in registration order. The
// first registered option is the default. The registry is built once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	options []ModelOption
	byID    map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

func (r *Registry) Register(opt ModelOption) error {
	id := strings.TrimSpace(opt.ID)
	if id == "" {
		return fmt.Errorf("llm: model id is required")
	}
	if opt.Client == nil {
		return fmt.Errorf("llm: model %q has no client", id)
	}
	if _, ok := r.byID[id]; ok {
		return fmt.Errorf("llm: model %q already registered", id)
	}
	opt.ID = id
	if strings.TrimSpace(opt.DisplayName) == "" {
		opt.DisplayName = id
	}
	r.byID[id] = len(r.options)
	r.options = append(r.options, opt)
	return nil
}

func (r *Registry) Get(id string) (ModelOption, bool) {
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return ModelOption{}, false
	}
	return r.options[i], true
}

// Default returns the first registered option.
func (r *Registry) Default() (ModelOption, bool) {
	if len(r.options) == 0 {
		return ModelOption{}, false
	}
	return r.options[0], true
}

// List returns the options in registration order.
func (r *Registry) List() []ModelOption {
	return append([]ModelOption(nil), r.options...)
}

func (r *Registry) Len() int {
	return len(r.options)
}
