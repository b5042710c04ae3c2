package params

import (
	"fmt"
)

// InfoFromMap parses one declared-parameter entry as a code entity stores
// it: {"name": ..., "type": {"type": class, "name": typeName}, "desc": ...}.
func InfoFromMap(m map[string]any) (ParamInfo, error) {
	pi := ParamInfo{}
	name, ok := m["name"].(string)
	if !ok {
		return pi, fmt.Errorf("parameter entry missing name: %v", m)
	}
	pi.Name = name
	pi.Desc, _ = m["desc"].(string)

	tm, ok := m["type"].(map[string]any)
	if !ok {
		return pi, fmt.Errorf("parameter %q missing type info", name)
	}
	pi.Type.Class, _ = tm["type"].(string)
	pi.Type.Name, _ = tm["name"].(string)
	if pi.Type.Class == "" || pi.Type.Name == "" {
		return pi, fmt.Errorf("parameter %q has incomplete type info %v", name, tm)
	}
	return pi, nil
}

// InfosFromAny parses the full declared-parameter list off a raw code
// entity value.
func InfosFromAny(v any) ([]ParamInfo, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected parameter list, got %T", v)
	}
	infos := make([]ParamInfo, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected parameter entry, got %T", item)
		}
		pi, err := InfoFromMap(m)
		if err != nil {
			return nil, err
		}
		infos = append(infos, pi)
	}
	return infos, nil
}
