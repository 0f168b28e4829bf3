package block

import (
	"fmt"
	"sort"

	"github.com/roach88/cipherflow/internal/interp"
	"github.com/roach88/cipherflow/internal/ir"
)

// Definition is a block that can be instantiated in a graph.
type Definition struct {
	Decl ir.BlockDecl
	Kind Kind

	// Resolve computes outputs from inputs. Source, sink, constant and
	// observer blocks are resolved by the engine itself and leave it nil.
	Resolve interp.Resolver

	// Literal converts the literal of a source or constant instance into
	// the value it emits.
	Literal func(literal string) (ir.Value, error)
}

// ID returns the "Package/Name" identity.
func (d *Definition) ID() string {
	return d.Decl.ID()
}

// ValidateLiteral checks a literal without keeping the value.
func (d *Definition) ValidateLiteral(literal string) error {
	if d.Literal == nil {
		return fmt.Errorf("%s takes no literal", d.ID())
	}
	_, err := d.Literal(literal)
	return err
}

// Library is a set of definitions keyed by identity.
type Library struct {
	defs map[string]*Definition
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{defs: make(map[string]*Definition)}
}

// Add registers def. Identities must be unique.
func (l *Library) Add(def *Definition) error {
	id := def.ID()
	if _, dup := l.defs[id]; dup {
		return fmt.Errorf("duplicate block %s", id)
	}
	l.defs[id] = def
	return nil
}

// AddDecls compiles library declarations and registers them.
func (l *Library) AddDecls(decls []ir.BlockDecl) error {
	for _, decl := range decls {
		op, err := interp.Compile(decl)
		if err != nil {
			return err
		}
		if err := l.Add(&Definition{Decl: decl, Kind: KindLibrary, Resolve: op.Resolve}); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds a definition by identity.
func (l *Library) Lookup(id string) (*Definition, bool) {
	def, ok := l.defs[id]
	return def, ok
}

// Len returns the number of definitions.
func (l *Library) Len() int {
	return len(l.defs)
}

// Definitions returns every definition sorted by identity.
func (l *Library) Definitions() []*Definition {
	out := make([]*Definition, 0, len(l.defs))
	for _, d := range l.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
