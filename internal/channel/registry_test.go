package channel

import (
	"context"
	"errors"
	"slices"
	"testing"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

type stubChannel struct {
	name string
}

func (s stubChannel) Name() string { return s.name }

func (s stubChannel) GetArticles(context.Context, domain.Scope) ([]domain.Article, error) {
	return nil, nil
}

func (s stubChannel) ScrapeBody(context.Context, string) (string, error) { return "", nil }

func stubFactory(settings Settings) (ports.Channel, error) {
	return stubChannel{name: settings.Name}, nil
}

func TestResolvePreservesConfigurationOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("stub", stubFactory)

	set, err := reg.Resolve([]Spec{
		{Name: "zeta", Kind: "stub"},
		{Name: "alpha", Kind: "stub"},
	}, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if got := set.Names(); !slices.Equal(got, []string{"zeta", "alpha"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if _, ok := set.Lookup("alpha"); !ok {
		t.Fatal("expected alpha to be resolvable by name")
	}
}

func TestResolveRejectsUnknownKindAndDuplicates(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("stub", stubFactory)

	if _, err := reg.Resolve([]Spec{{Name: "x", Kind: "missing"}}, nil, nil); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := reg.Resolve([]Spec{{Name: "x", Kind: "stub"}, {Name: "x", Kind: "stub"}}, nil, nil); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestResolveWrapsFactoryErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("missing api key")
	reg := NewRegistry()
	reg.Register("broken", func(Settings) (ports.Channel, error) { return nil, boom })

	_, err := reg.Resolve([]Spec{{Name: "guardian", Kind: "broken"}}, nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped factory error, got %v", err)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	set := NewSet(stubChannel{name: "a"}, stubChannel{name: "b"}, stubChannel{name: "c"})

	picked, err := set.Select([]string{"c", "a"})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if got := picked.Names(); !slices.Equal(got, []string{"a", "c"}) {
		t.Fatalf("unexpected selection: %v", got)
	}

	if _, err := set.Select([]string{"nope"}); err == nil {
		t.Fatal("expected error for unknown channel")
	}

	all, _ := set.Select(nil)
	if len(all.Names()) != 3 {
		t.Fatalf("expected whole set, got %v", all.Names())
	}
}
