package capability

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"gopkg.in/yaml.v3"
)

//go:embed capabilities.yaml
var defaultRegistryRaw []byte

const requestPlaceholder = "{request}"

var (
	ErrEmptyRegistry     = errors.New("capability registry is empty")
	ErrDuplicateID       = errors.New("duplicate capability id")
	ErrUnknownCapability = errors.New("unknown capability")
)

// Registry is the fixed set of capabilities known at request time.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	order []contractx.CapabilityID
	byID  map[contractx.CapabilityID]contractx.Capability
}

type fileEntry struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	QueryTemplate  string `yaml:"query_template"`
	Provider       string `yaml:"provider"`
	GeneralPurpose bool   `yaml:"general_purpose"`
}

type file struct {
	Capabilities []fileEntry `yaml:"capabilities"`
}

// Option customizes a registry while it is being built.
type Option func(map[contractx.CapabilityID]*contractx.Capability) error

// WithAvailability attaches an availability predicate to a capability.
func WithAvailability(id contractx.CapabilityID, fn func() bool) Option {
	return func(caps map[contractx.CapabilityID]*contractx.Capability) error {
		c, ok := caps[id]
		if !ok {
			return fmt.Errorf("%w: id=%s", ErrUnknownCapability, id)
		}
		c.Available = fn
		return nil
	}
}

func NewRegistry(caps []contractx.Capability, opts ...Option) (*Registry, error) {
	if len(caps) == 0 {
		return nil, ErrEmptyRegistry
	}

	order := make([]contractx.CapabilityID, 0, len(caps))
	staged := make(map[contractx.CapabilityID]*contractx.Capability, len(caps))
	general := 0
	for i := range caps {
		c := caps[i]
		c.ID = contractx.CapabilityID(strings.TrimSpace(string(c.ID)))
		if c.ID == "" {
			return nil, fmt.Errorf("%w: capability #%d has no id", contractx.ErrValidation, i)
		}
		if _, dup := staged[c.ID]; dup {
			return nil, fmt.Errorf("%w: id=%s", ErrDuplicateID, c.ID)
		}
		if strings.TrimSpace(c.Name) == "" {
			c.Name = string(c.ID)
		}
		if c.GeneralPurpose {
			general++
		}
		order = append(order, c.ID)
		staged[c.ID] = &c
	}
	if general > 1 {
		return nil, fmt.Errorf("%w: at most one general-purpose capability is allowed", contractx.ErrValidation)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(staged); err != nil {
			return nil, err
		}
	}

	byID := make(map[contractx.CapabilityID]contractx.Capability, len(staged))
	for id, c := range staged {
		byID[id] = *c
	}
	return &Registry{order: order, byID: byID}, nil
}

// Parse builds a registry from YAML.
func Parse(raw []byte, opts ...Option) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode capability registry: %w", err)
	}

	caps := make([]contractx.Capability, 0, len(f.Capabilities))
	for _, e := range f.Capabilities {
		caps = append(caps, contractx.Capability{
			ID:             contractx.CapabilityID(e.ID),
			Name:           strings.TrimSpace(e.Name),
			Description:    strings.TrimSpace(e.Description),
			QueryTemplate:  strings.TrimSpace(e.QueryTemplate),
			Provider:       strings.TrimSpace(e.Provider),
			GeneralPurpose: e.GeneralPurpose,
		})
	}
	return NewRegistry(caps, opts...)
}

// LoadDefault returns the embedded car-analyst registry.
func LoadDefault(opts ...Option) (*Registry, error) {
	return Parse(defaultRegistryRaw, opts...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) IDs() []contractx.CapabilityID {
	return append([]contractx.CapabilityID(nil), r.order...)
}

func (r *Registry) Lookup(id contractx.CapabilityID) (contractx.Capability, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Resolve maps a free-form name from an oracle onto a registered capability.
// Matching ignores case, surrounding space, and space/hyphen/underscore differences,
// and accepts either the id or the display name.
func (r *Registry) Resolve(name string) (contractx.Capability, bool) {
	key := normalize(name)
	if key == "" {
		return contractx.Capability{}, false
	}
	for _, id := range r.order {
		c := r.byID[id]
		if normalize(string(c.ID)) == key || normalize(c.Name) == key {
			return c, true
		}
	}
	return contractx.Capability{}, false
}

// Available returns the capabilities whose predicate currently holds, in registry order.
func (r *Registry) Available() []contractx.Capability {
	out := make([]contractx.Capability, 0, len(r.order))
	for _, id := range r.order {
		if c := r.byID[id]; c.IsAvailable() {
			out = append(out, c)
		}
	}
	return out
}

// GeneralPurpose returns the designated fallback capability, if any.
func (r *Registry) GeneralPurpose() (contractx.Capability, bool) {
	for _, id := range r.order {
		if c := r.byID[id]; c.GeneralPurpose {
			return c, true
		}
	}
	return contractx.Capability{}, false
}

// Descriptors lists what the classification oracle may choose from.
func (r *Registry) Descriptors() []contractx.CapabilityDescriptor {
	available := r.Available()
	out := make([]contractx.CapabilityDescriptor, 0, len(available))
	for _, c := range available {
		out = append(out, c.Descriptor())
	}
	return out
}

// Rank is the registry position of id, or -1.
func (r *Registry) Rank(id contractx.CapabilityID) int {
	for i, v := range r.order {
		if v == id {
			return i
		}
	}
	return -1
}

// DefaultSubQuery renders the capability's query template for request.
func (r *Registry) DefaultSubQuery(id contractx.CapabilityID, request string) string {
	request = strings.TrimSpace(request)
	c, ok := r.byID[id]
	if !ok || c.QueryTemplate == "" {
		return request
	}
	if !strings.Contains(c.QueryTemplate, requestPlaceholder) {
		return strings.TrimSpace(c.QueryTemplate + " " + request)
	}
	return strings.ReplaceAll(c.QueryTemplate, requestPlaceholder, request)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
