// Package params implements the recursive, polymorphic parameter tree used
// to configure tool and component instances. Leaves carry primitively
// typed values; branches select a concrete component subtype and carry that
// subtype's own parameter tree. Which parameters a branch declares is
// resolved through the TypeRegistry at edit time, never hard-coded.
package params

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matthewbaird/crucible/internal/schema"
)

// Parameter type classes, as declared by code entities.
const (
	ClassNative    = "native"
	ClassComponent = "component"
	ClassFileset   = "fileset"
)

// ParamType is the declared type of one parameter: a class plus a name.
// Native parameters name a primitive (list, tuple, int, float, str,
// unicode); component parameters name the base type whose subtypes the
// registry enumerates.
type ParamType struct {
	Class string
	Name  string
}

// ParamInfo describes one declared parameter.
type ParamInfo struct {
	Name string
	Type ParamType
	Desc string
}

// TypeRegistry resolves component subtypes and their declared parameters.
// Implementations live in internal/store.
type TypeRegistry interface {
	// DeclaredParameters returns the parameters a subtype declares.
	DeclaredParameters(ctx context.Context, subtype string) ([]ParamInfo, error)
	// SubtypesOf returns the concrete subtypes registered beneath a base
	// type, not including the base itself.
	SubtypesOf(ctx context.Context, base string) ([]string, error)
}

// ErrSubtypeChoiceRequired is returned by SelectSubtype when more than one
// candidate subtype exists and none was named; the caller must choose.
var ErrSubtypeChoiceRequired = errors.New("multiple candidate subtypes, a choice is required")

// Node is one slot in a parameter tree: either a Leaf or a Branch.
type Node interface {
	isNode()
}

// Leaf holds a primitively typed value. A nil Value means unset.
type Leaf struct {
	Value any
}

func (*Leaf) isNode() {}

// Branch holds a selected component subtype and that subtype's parameters.
type Branch struct {
	Subtype string
	Params  *Tree
}

func (*Branch) isNode() {}

// Tree carries the parameter values for one component level, bound to the
// parameters that level declares.
type Tree struct {
	infos []ParamInfo
	nodes map[string]Node
}

// NewTree builds a tree bound to the declared parameters, populated from a
// previously stored raw value map. Stored keys no longer declared are
// discarded; warn, when non-nil, is told about each. Declared parameters
// without a stored value start unset.
func NewTree(declared []ParamInfo, raw map[string]any, warn func(string)) *Tree {
	t := &Tree{nodes: make(map[string]Node, len(declared))}
	t.Rebind(declared, warn)
	for k, v := range raw {
		if _, ok := t.info(k); !ok {
			if warn != nil {
				warn(fmt.Sprintf("previously set parameter %s does not exist anymore", k))
			}
			continue
		}
		t.nodes[k] = nodeFromValue(v)
	}
	return t
}

// Rebind replaces the tree's declared parameter set, pruning values whose
// parameter disappeared and initializing newly declared ones to unset.
func (t *Tree) Rebind(declared []ParamInfo, warn func(string)) {
	t.infos = declared
	if t.nodes == nil {
		t.nodes = make(map[string]Node, len(declared))
	}
	for k := range t.nodes {
		if _, ok := t.info(k); !ok {
			if warn != nil {
				warn(fmt.Sprintf("previously set parameter %s does not exist anymore", k))
			}
			delete(t.nodes, k)
		}
	}
	for _, pi := range declared {
		if _, ok := t.nodes[pi.Name]; !ok {
			t.nodes[pi.Name] = &Leaf{}
		}
	}
}

// Infos returns the declared parameters in declaration order.
func (t *Tree) Infos() []ParamInfo { return t.infos }

// Node returns the node for a declared parameter name.
func (t *Tree) Node(name string) Node { return t.nodes[name] }

func (t *Tree) info(name string) (ParamInfo, bool) {
	for _, pi := range t.infos {
		if pi.Name == name {
			return pi, true
		}
	}
	return ParamInfo{}, false
}

// nodeFromValue rebuilds a node from its stored wire form. Component
// values arrive as {"class": subtype, "params": {...}}; the nested tree is
// unbound until the subtype's declared parameters are fetched at edit time.
func nodeFromValue(v any) Node {
	if m, ok := v.(map[string]any); ok {
		cls, hasClass := m["class"].(string)
		inner, hasParams := m["params"].(map[string]any)
		if hasClass && hasParams {
			sub := &Tree{nodes: make(map[string]Node, len(inner))}
			for k, nested := range inner {
				sub.nodes[k] = nodeFromValue(nested)
			}
			return &Branch{Subtype: cls, Params: sub}
		}
	}
	return &Leaf{Value: v}
}

// SetLeaf resolves a dotted path to a leaf parameter and stores the cast
// token sequence. List and tuple parameters consume every token; int,
// float, str and unicode take exactly one.
func (t *Tree) SetLeaf(path string, tokens []string) error {
	owner, name, err := t.walk(path)
	if err != nil {
		return err
	}
	pi, ok := owner.info(name)
	if !ok {
		return fmt.Errorf("no parameter named %q", name)
	}
	if pi.Type.Class == ClassComponent {
		return fmt.Errorf("parameter %q is a component, select a subtype instead", name)
	}
	v, err := castTokens(pi, tokens)
	if err != nil {
		return err
	}
	owner.nodes[name] = &Leaf{Value: v}
	return nil
}

// SetFileset stores a fileset identifier on a fileset-typed parameter.
func (t *Tree) SetFileset(path, id string) error {
	owner, name, err := t.walk(path)
	if err != nil {
		return err
	}
	pi, ok := owner.info(name)
	if !ok {
		return fmt.Errorf("no parameter named %q", name)
	}
	if pi.Type.Class != ClassFileset {
		return fmt.Errorf("parameter %q is not a fileset", name)
	}
	owner.nodes[name] = &Leaf{Value: id}
	return nil
}

// SelectSubtype chooses the concrete subtype for the component parameter
// at path. With an empty subtype the choice is made automatically when
// exactly one candidate exists (a base with no registered subtypes);
// otherwise ErrSubtypeChoiceRequired asks the caller to pick.
//
// Re-selecting the subtype currently held, or a structurally identical
// one (same declared parameter names as the values currently held),
// retains prior values and prunes parameters the subtype no longer
// declares, telling warn about each pruned one. Anything else discards
// the values and re-initializes every declared parameter to unset.
func (t *Tree) SelectSubtype(ctx context.Context, path, subtype string, reg TypeRegistry, warn func(string)) error {
	owner, name, err := t.walk(path)
	if err != nil {
		return err
	}
	pi, ok := owner.info(name)
	if !ok {
		return fmt.Errorf("no parameter named %q", name)
	}
	if pi.Type.Class != ClassComponent {
		return fmt.Errorf("parameter %q is not a component", name)
	}

	base := pi.Type.Name
	if subtype == "" {
		subs, err := reg.SubtypesOf(ctx, base)
		if err != nil {
			return err
		}
		if len(subs) > 0 {
			return ErrSubtypeChoiceRequired
		}
		subtype = base
	}

	declared, err := reg.DeclaredParameters(ctx, subtype)
	if err != nil {
		return err
	}

	if b, ok := owner.nodes[name].(*Branch); ok && (b.Subtype == subtype || sameParams(declared, b.Params)) {
		b.Subtype = subtype
		b.Params.Rebind(declared, warn)
		return nil
	}
	owner.nodes[name] = &Branch{
		Subtype: subtype,
		Params:  NewTree(declared, nil, nil),
	}
	return nil
}

// sameParams reports whether the declared parameter names exactly match
// the names the tree currently holds.
func sameParams(declared []ParamInfo, t *Tree) bool {
	if t == nil || len(declared) != len(t.nodes) {
		return false
	}
	for _, pi := range declared {
		if _, ok := t.nodes[pi.Name]; !ok {
			return false
		}
	}
	return true
}

// walk resolves every path segment but the last through branches and
// returns the owning tree plus the final segment.
func (t *Tree) walk(path string) (*Tree, string, error) {
	segs := strings.Split(path, ".")
	cur := t
	for i := 0; i < len(segs)-1; i++ {
		b, ok := cur.nodes[segs[i]].(*Branch)
		if !ok {
			return nil, "", fmt.Errorf("%q is not a selected component", strings.Join(segs[:i+1], "."))
		}
		cur = b.Params
	}
	return cur, segs[len(segs)-1], nil
}

// FindUnset returns the dotted paths of every unset leaf, recursing into
// each selected branch's parameters. Paths are sorted for stable output.
func (t *Tree) FindUnset(prefix string) []string {
	var unset []string
	names := make([]string, 0, len(t.nodes))
	for name := range t.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch n := t.nodes[name].(type) {
		case *Branch:
			unset = append(unset, n.Params.FindUnset(prefix+name+".")...)
		case *Leaf:
			if n.Value == nil {
				unset = append(unset, prefix+name)
			}
		case nil:
			unset = append(unset, prefix+name)
		}
	}
	return unset
}

// ToMap renders the tree into its stored wire form.
func (t *Tree) ToMap() map[string]any {
	out := make(map[string]any, len(t.nodes))
	for name, node := range t.nodes {
		switch n := node.(type) {
		case *Branch:
			out[name] = map[string]any{"class": n.Subtype, "params": n.Params.ToMap()}
		case *Leaf:
			out[name] = n.Value
		default:
			out[name] = nil
		}
	}
	return out
}

func castTokens(pi ParamInfo, tokens []string) (any, error) {
	switch pi.Type.Name {
	case "list", "tuple":
		vals := make([]any, len(tokens))
		for i, tok := range tokens {
			vals[i] = tok
		}
		return vals, nil
	case "int":
		if len(tokens) != 1 {
			return nil, castErr(pi, schema.KindInt, tokens)
		}
		n, err := strconv.Atoi(tokens[0])
		if err != nil {
			return nil, castErr(pi, schema.KindInt, tokens)
		}
		return n, nil
	case "float":
		if len(tokens) != 1 {
			return nil, castErr(pi, schema.KindFloat, tokens)
		}
		x, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil {
			return nil, castErr(pi, schema.KindFloat, tokens)
		}
		return x, nil
	case "str", "unicode":
		if len(tokens) != 1 {
			return nil, castErr(pi, schema.KindString, tokens)
		}
		return tokens[0], nil
	default:
		return nil, fmt.Errorf("parameter %q has unknown native type %q", pi.Name, pi.Type.Name)
	}
}

func castErr(pi ParamInfo, k schema.Kind, tokens []string) error {
	return &schema.TypeCastError{Field: pi.Name, Kind: k, Raw: strings.Join(tokens, " ")}
}
