package schema

import (
	"embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// Load builds the entity type registry from the embedded CUE definitions.
func Load() (*Registry, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	ctx := cuecontext.New()
	reg := NewRegistry()
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		val := ctx.CompileBytes(data, cue.Filename(name))
		if val.Err() != nil {
			return nil, fmt.Errorf("compile %s: %w", name, val.Err())
		}
		if err := loadEntities(reg, val); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return reg, nil
}

// MustLoad is Load for callers that treat a broken embedded schema as a
// programming error.
func MustLoad() *Registry {
	reg, err := Load()
	if err != nil {
		panic(err)
	}
	return reg
}

func loadEntities(reg *Registry, val cue.Value) error {
	iter, err := val.Fields()
	if err != nil {
		return err
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		es, err := parseEntity(name, iter.Value())
		if err != nil {
			return fmt.Errorf("entity %s: %w", name, err)
		}
		reg.Register(es)
	}
	return nil
}

func parseEntity(name string, val cue.Value) (*EntitySchema, error) {
	es := &EntitySchema{
		Name:   name,
		Fields: make(map[string]Descriptor),
	}
	es.APIPath, _ = val.LookupPath(cue.ParsePath("api_path")).String()
	if es.APIPath == "" {
		return nil, fmt.Errorf("missing api_path")
	}
	es.CreateCommand, _ = val.LookupPath(cue.ParsePath("create_command")).String()

	fields := val.LookupPath(cue.ParsePath("fields"))
	iter, err := fields.Fields()
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	for iter.Next() {
		fname := iter.Selector().Unquoted()
		desc, err := parseField(fname, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fname, err)
		}
		es.Fields[fname] = desc
		es.FieldOrder = append(es.FieldOrder, fname)
	}
	return es, nil
}

func parseField(name string, val cue.Value) (Descriptor, error) {
	fd := FieldDescriptor{Name: name}
	fd.Desc, _ = val.LookupPath(cue.ParsePath("desc")).String()
	fd.Detail, _ = val.LookupPath(cue.ParsePath("detail")).Bool()

	if dv := val.LookupPath(cue.ParsePath("default")); dv.Exists() {
		def, err := decodeValue(dv)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		fd.Default = def
	}
	if err := parseConstraints(&fd, val); err != nil {
		return nil, err
	}

	if ref := val.LookupPath(cue.ParsePath("ref")); ref.Exists() {
		target, err := ref.String()
		if err != nil {
			return nil, fmt.Errorf("ref: %w", err)
		}
		rd := &ReferenceDescriptor{FieldDescriptor: fd, Target: target}
		if fv := val.LookupPath(cue.ParsePath("filter")); fv.Exists() {
			rd.Filter = make(map[string]string)
			fiter, err := fv.Fields()
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			for fiter.Next() {
				s, err := fiter.Value().String()
				if err != nil {
					return nil, fmt.Errorf("filter %s: %w", fiter.Selector().Unquoted(), err)
				}
				rd.Filter[fiter.Selector().Unquoted()] = s
			}
		}
		return rd, nil
	}
	return &fd, nil
}

// parseConstraints compiles enum/min/max clauses into a validator closure.
func parseConstraints(fd *FieldDescriptor, val cue.Value) error {
	if ev := val.LookupPath(cue.ParsePath("enum")); ev.Exists() {
		allowed := make(map[string]bool)
		iter, err := ev.List()
		if err != nil {
			return fmt.Errorf("enum: %w", err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return fmt.Errorf("enum: %w", err)
			}
			allowed[s] = true
		}
		fd.Validator = func(v any) bool {
			s, ok := v.(string)
			return ok && allowed[s]
		}
		return nil
	}

	minV := val.LookupPath(cue.ParsePath("min"))
	maxV := val.LookupPath(cue.ParsePath("max"))
	if !minV.Exists() && !maxV.Exists() {
		return nil
	}
	var lo, hi float64
	hasLo, hasHi := minV.Exists(), maxV.Exists()
	if hasLo {
		x, err := minV.Float64()
		if err != nil {
			return fmt.Errorf("min: %w", err)
		}
		lo = x
	}
	if hasHi {
		x, err := maxV.Float64()
		if err != nil {
			return fmt.Errorf("max: %w", err)
		}
		hi = x
	}
	fd.Validator = func(v any) bool {
		n, ok := toFloat(v)
		if !ok {
			return false
		}
		if hasLo && n < lo {
			return false
		}
		if hasHi && n > hi {
			return false
		}
		return true
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// decodeValue converts a concrete CUE value into its Go representation.
// Integers stay int, lists become []any (never nil), structs map[string]any.
func decodeValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		n, err := v.Int64()
		return int(n), err
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		out := []any{}
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		for iter.Next() {
			x, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, x)
		}
		return out, nil
	case cue.StructKind:
		out := map[string]any{}
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		for iter.Next() {
			x, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Selector().Unquoted()] = x
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %v", v.Kind())
	}
}
