package channel

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"BrokenPromises/internal/ports"
)

// Spec describes one configured channel: its stable name and the kind of
// implementation that serves it.
type Spec struct {
	Name    string
	Kind    string
	Options map[string]string
}

// Settings is what a factory receives to build a channel.
type Settings struct {
	Name    string
	Options map[string]string
	Client  *http.Client
	Logger  *slog.Logger
}

// Option returns a channel option or fallback when it is unset.
func (s Settings) Option(key, fallback string) string {
	if v, ok := s.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Factory constructs a channel of one kind.
type Factory func(Settings) (ports.Channel, error)

// Registry maps channel kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a factory.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Kinds lists registered kinds in lexical order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Resolve builds every configured channel, preserving configuration order.
func (r *Registry) Resolve(specs []Spec, client *http.Client, logger *slog.Logger) (*Set, error) {
	set := &Set{byName: map[string]ports.Channel{}}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("channel of kind %s has no name", spec.Kind)
		}
		if _, dup := set.byName[spec.Name]; dup {
			return nil, fmt.Errorf("channel %s configured twice", spec.Name)
		}
		factory, ok := r.factories[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("channel kind %s is not registered", spec.Kind)
		}

		settings := Settings{Name: spec.Name, Options: spec.Options, Client: client, Logger: logger}
		if logger != nil {
			settings.Logger = logger.With("channel", spec.Name)
		}
		ch, err := factory(settings)
		if err != nil {
			return nil, fmt.Errorf("build channel %s: %w", spec.Name, err)
		}
		set.channels = append(set.channels, ch)
		set.byName[spec.Name] = ch
	}
	return set, nil
}

// Set is an ordered collection of resolved channels.
type Set struct {
	channels []ports.Channel
	byName   map[string]ports.Channel
}

// NewSet wraps already-built channels.
func NewSet(channels ...ports.Channel) *Set {
	set := &Set{byName: map[string]ports.Channel{}}
	for _, ch := range channels {
		set.channels = append(set.channels, ch)
		set.byName[ch.Name()] = ch
	}
	return set
}

// Channels returns the channels in configuration order.
func (s *Set) Channels() []ports.Channel {
	if s == nil {
		return nil
	}
	return slices.Clone(s.channels)
}

// Names returns the channel identifiers in configuration order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Lookup finds a channel by name.
func (s *Set) Lookup(name string) (ports.Channel, bool) {
	if s == nil {
		return nil, false
	}
	ch, ok := s.byName[name]
	return ch, ok
}

// Select narrows the set to the named channels, keeping configuration order.
// An empty selection returns the whole set.
func (s *Set) Select(names []string) (*Set, error) {
	if len(names) == 0 {
		return s, nil
	}
	for _, name := range names {
		if _, ok := s.Lookup(name); !ok {
			return nil, fmt.Errorf("channel %s is not configured", name)
		}
	}
	var picked []ports.Channel
	for _, ch := range s.Channels() {
		if slices.Contains(names, ch.Name()) {
			picked = append(picked, ch)
		}
	}
	return NewSet(picked...), nil
}
