package store

import (
	"context"
	"fmt"

	"github.com/matthewbaird/crucible/internal/params"
)

// codeRegistry resolves component subtypes and their declared parameters
// through the code collection of an entity store.
type codeRegistry struct {
	s Store
}

// NewCodeRegistry adapts a Store into a params.TypeRegistry. Subtypes of a
// base are the component code entities listing that base; a subtype's
// declared parameters come off its code entity's params field.
func NewCodeRegistry(s Store) params.TypeRegistry {
	return &codeRegistry{s: s}
}

func (r *codeRegistry) SubtypesOf(ctx context.Context, base string) ([]string, error) {
	res, err := r.s.List(ctx, "code", Filter{"type": "component", "bases": base})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res))
	for _, raw := range res {
		if name, ok := raw["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *codeRegistry) DeclaredParameters(ctx context.Context, subtype string) ([]params.ParamInfo, error) {
	raw, err := r.s.Find(ctx, "code", subtype)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &CollaboratorError{Op: "resolve code " + subtype, Err: fmt.Errorf("not found")}
	}
	return params.InfosFromAny(raw["params"])
}
