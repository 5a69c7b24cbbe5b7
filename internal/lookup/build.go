// Package lookup turns an entity snapshot into a searchable [Index] and
// serves queries against the currently published one.
//
// An Index is built privately and never changes after [Build] returns.
// [Service] publishes indexes with an atomic pointer swap, so every query
// sees exactly one fully built index.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/fuzzy"
	"github.com/MrWong99/halidom/internal/keyword"
	"github.com/MrWong99/halidom/internal/observe"
	"github.com/MrWong99/halidom/internal/textnorm"
)

// Index is one immutable generation of the lookup structures.
type Index struct {
	// Snapshot is the data the index was built from.
	Snapshot *entity.Snapshot

	// Names resolves single bracket-style terms.
	Names *fuzzy.Resolver[entity.Describable]

	// Keywords extracts typed values from free text.
	Keywords *keyword.Segmenter

	// Dispatch answers a bag of typed values.
	Dispatch *keyword.Dispatcher[entity.Describable]

	// Sounds finds entity names pronounced like a misspelled query.
	Sounds *fuzzy.SoundsLike

	// AliasFingerprint identifies the alias set the index was built with.
	AliasFingerprint string

	BuiltAt time.Time

	names *patricia.Trie
}

// Version returns the snapshot version.
func (x *Index) Version() string { return x.Snapshot.Version }

// QueryLimit is the longest bracket query worth resolving.
func (x *Index) QueryLimit() int { return x.Names.QueryLimit() }

var errStopVisit = errors.New("stop")

// Complete returns up to n display names starting with prefix, in key order.
func (x *Index) Complete(prefix string, n int) []string {
	if n <= 0 {
		return nil
	}
	var out []string
	err := x.names.VisitSubtree(patricia.Prefix(textnorm.Fold(prefix)), func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.(string))
		if len(out) >= n {
			return errStopVisit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopVisit) {
		return nil
	}
	return out
}

// Build constructs a new [Index] from snap and aliases. Duplicate keys and
// literals are logged and skipped. Any other registration error aborts the
// build.
func Build(ctx context.Context, snap *entity.Snapshot, aliases entity.Aliases) (*Index, error) {
	if snap == nil {
		return nil, entity.ErrNoSnapshot
	}
	log := observe.Logger(ctx)
	warnUnknownAliases(log, snap, aliases)

	x := &Index{
		Snapshot:         snap,
		Names:            fuzzy.NewResolver[entity.Describable](),
		Keywords:         keyword.NewSegmenter(),
		Dispatch:         keyword.NewDispatcher[entity.Describable](),
		AliasFingerprint: aliases.Fingerprint(),
		names:            patricia.NewTrie(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return buildNames(gctx, x.Names, snap, aliases) })
	g.Go(func() error { return buildKeywords(gctx, log, x.Keywords, snap, aliases) })
	g.Go(func() error {
		x.Sounds = buildCompletion(x.names, snap)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("lookup: build: %w", err)
	}

	if err := registerHandlers(x.Dispatch, snap); err != nil {
		return nil, fmt.Errorf("lookup: register handlers: %w", err)
	}
	x.BuiltAt = time.Now()
	return x, nil
}

// buildNames registers every fuzzy target of snap.
func buildNames(ctx context.Context, r *fuzzy.Resolver[entity.Describable], snap *entity.Snapshot, aliases entity.Aliases) error {
	add := func(key string, v entity.Describable, quiet bool) error {
		var opts []fuzzy.AddOption
		if quiet {
			opts = append(opts, fuzzy.Quiet())
		}
		_, err := r.Add(key, v, opts...)
		return err
	}

	for _, e := range snap.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		kind, _ := entity.KindOf(e.Category())
		name := e.Describe().Title
		if err := add(name, e, false); err != nil {
			return fmt.Errorf("%s %q: %w", kind, name, err)
		}
		for _, alias := range aliases.For(kind, name) {
			if err := add(alias, e, true); err != nil {
				return fmt.Errorf("%s alias %q: %w", kind, alias, err)
			}
		}

		for _, p := range partsOf(e) {
			for _, prefix := range append([]string{name}, aliases.For(kind, name)...) {
				for _, suffix := range p.suffixes {
					// Alias-derived keys may coincide with canonical ones.
					quiet := prefix != name
					if err := add(prefix+" "+suffix, p.part, quiet); err != nil {
						return fmt.Errorf("%s %q %s: %w", kind, name, suffix, err)
					}
				}
			}
			// Skill and ability names are shared between entities, so
			// collisions are expected.
			if itemName := p.part.Item.Describe().Title; textnorm.Fold(itemName) != "" {
				if err := add(itemName, p.part.Item, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

type part struct {
	part     entity.Part
	suffixes []string
}

// partsOf lists the addressable skills and abilities of e.
func partsOf(e entity.Named) []part {
	var out []part
	skill := func(owner string, i int, s entity.Skill) {
		slot := entity.SkillSlot(i + 1)
		p := part{
			part:     entity.Part{Owner: owner, Label: slot.String(), Item: s},
			suffixes: []string{fmt.Sprintf("s%d", i+1)},
		}
		if i == 0 {
			p.suffixes = append(p.suffixes, "skill")
		}
		out = append(out, p)
	}
	abilities := func(owner string, list []entity.Ability) {
		for i, a := range list {
			slot := entity.AbilitySlot(i + 1)
			out = append(out, part{
				part:     entity.Part{Owner: owner, Label: slot.String(), Item: a},
				suffixes: []string{fmt.Sprintf("a%d", i+1)},
			})
		}
	}

	switch v := e.(type) {
	case *entity.Adventurer:
		for i, s := range v.Skills {
			skill(v.Name, i, s)
		}
		abilities(v.Name, v.Abilities)
		if v.Coability != nil {
			out = append(out, part{
				part:     entity.Part{Owner: v.Name, Label: "Co-ability", Item: *v.Coability},
				suffixes: []string{"coability", "coab"},
			})
		}
		if v.ChainCoability != nil {
			out = append(out, part{
				part:     entity.Part{Owner: v.Name, Label: "Chain co-ability", Item: *v.ChainCoability},
				suffixes: []string{"chain coability", "cca"},
			})
		}
	case *entity.Dragon:
		if v.Skill != nil {
			skill(v.Name, 0, *v.Skill)
		}
		abilities(v.Name, v.Abilities)
	case *entity.Wyrmprint:
		abilities(v.Name, v.Abilities)
	case *entity.Weapon:
		if v.Skill != nil {
			skill(v.Name, 0, *v.Skill)
		}
		abilities(v.Name, v.Abilities)
	}
	return out
}

// buildKeywords registers the fixed vocabulary followed by every entity name
// and alias, then compiles the automaton.
func buildKeywords(ctx context.Context, log *slog.Logger, s *keyword.Segmenter, snap *entity.Snapshot, aliases entity.Aliases) error {
	add := func(literal string, values ...keyword.Value) error {
		err := s.Add(literal, values...)
		if errors.Is(err, keyword.ErrDuplicateLiteral) {
			log.Warn("duplicate keyword skipped", "literal", literal, "err", err)
			return nil
		}
		return err
	}

	for _, v := range vocabulary() {
		if err := add(v.literal, v.values...); err != nil {
			return err
		}
	}
	for _, e := range snap.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		kind, _ := entity.KindOf(e.Category())
		name := e.Describe().Title
		if err := add(name, e); err != nil {
			return fmt.Errorf("%s %q: %w", kind, name, err)
		}
		for _, alias := range aliases.For(kind, name) {
			if err := add(alias, e); err != nil {
				return fmt.Errorf("%s alias %q: %w", kind, alias, err)
			}
		}
	}
	s.Build()
	return nil
}

// buildCompletion fills the autocomplete trie with display names keyed by
// their folded form and returns the phonetic index over the same names.
func buildCompletion(t *patricia.Trie, snap *entity.Snapshot) *fuzzy.SoundsLike {
	all := snap.All()
	names := make([]string, 0, len(all))
	for _, e := range all {
		name := e.Describe().Title
		t.Insert(patricia.Prefix(e.Key()), name)
		names = append(names, name)
	}
	return fuzzy.NewSoundsLike(names)
}

// warnUnknownAliases logs aliases whose canonical name is not in snap.
func warnUnknownAliases(log *slog.Logger, snap *entity.Snapshot, aliases entity.Aliases) {
	known := make(map[entity.Kind]map[string]bool)
	for _, e := range snap.All() {
		kind, _ := entity.KindOf(e.Category())
		if known[kind] == nil {
			known[kind] = make(map[string]bool)
		}
		known[kind][e.Key()] = true
	}
	for kind, m := range aliases {
		for lit, canon := range m {
			if !known[kind][textnorm.Fold(canon)] {
				log.Warn("alias points at unknown entity", "kind", kind, "alias", lit, "canonical", canon)
			}
		}
	}
}
