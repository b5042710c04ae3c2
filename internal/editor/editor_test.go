package editor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/crucible/internal/entity"
	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/store"
)

// scriptTerm replays a scripted conversation. The token "^C" simulates an
// interrupt at that prompt; running out of input also interrupts, so a
// script that forgets to finish cancels instead of hanging.
type scriptTerm struct {
	inputs []string
	pos    int

	says   []string
	warns  []string
	errs   []string
	tables [][][]string
}

func (s *scriptTerm) Prompt(string) (string, error) {
	if s.pos >= len(s.inputs) {
		return "", ErrInterrupt
	}
	in := s.inputs[s.pos]
	s.pos++
	if in == "^C" {
		return "", ErrInterrupt
	}
	return in, nil
}

func (s *scriptTerm) Say(format string, args ...any) {
	s.says = append(s.says, fmt.Sprintf(format, args...))
}

func (s *scriptTerm) Warn(format string, args ...any) {
	s.warns = append(s.warns, fmt.Sprintf(format, args...))
}

func (s *scriptTerm) Err(format string, args ...any) {
	s.errs = append(s.errs, fmt.Sprintf(format, args...))
}

func (s *scriptTerm) Table(_ []string, rows [][]string) {
	s.tables = append(s.tables, rows)
}

func (s *scriptTerm) output() string {
	return strings.Join(append(append(append([]string{}, s.says...), s.warns...), s.errs...), "\n")
}

// memStore is an in-memory store.Store for editor tests.
type memStore struct {
	data map[string][]map[string]any
	seq  int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]map[string]any{}}
}

func (m *memStore) add(typ string, raw map[string]any) {
	m.data[typ] = append(m.data[typ], raw)
}

func (m *memStore) List(_ context.Context, typ string, filter store.Filter) ([]map[string]any, error) {
	var out []map[string]any
	for _, raw := range m.data[typ] {
		if matches(raw, filter) {
			out = append(out, raw)
		}
	}
	return out, nil
}

func matches(raw map[string]any, filter store.Filter) bool {
	for k, want := range filter {
		switch v := raw[k].(type) {
		case []any:
			found := false
			for _, e := range v {
				if fmt.Sprint(e) == want {
					found = true
				}
			}
			if !found {
				return false
			}
		default:
			if fmt.Sprint(v) != want {
				return false
			}
		}
	}
	return true
}

func (m *memStore) Create(_ context.Context, typ string, payload map[string]any) (map[string]any, error) {
	m.seq++
	payload["id"] = fmt.Sprintf("mem%d", m.seq)
	m.data[typ] = append(m.data[typ], payload)
	return payload, nil
}

func (m *memStore) Update(_ context.Context, typ, id string, payload map[string]any) (map[string]any, error) {
	for i, raw := range m.data[typ] {
		if fmt.Sprint(raw["id"]) == id {
			payload["id"] = id
			m.data[typ][i] = payload
			return payload, nil
		}
	}
	return nil, &store.CollaboratorError{Op: "update " + typ, Err: fmt.Errorf("no entity with id %s", id)}
}

func (m *memStore) Delete(_ context.Context, typ, id string) error {
	for i, raw := range m.data[typ] {
		if fmt.Sprint(raw["id"]) == id {
			m.data[typ] = append(m.data[typ][:i], m.data[typ][i+1:]...)
			return nil
		}
	}
	return &store.CollaboratorError{Op: "delete " + typ, Err: fmt.Errorf("no entity with id %s", id)}
}

func (m *memStore) Find(_ context.Context, typ, nameOrID string) (map[string]any, error) {
	for _, raw := range m.data[typ] {
		if fmt.Sprint(raw["id"]) == nameOrID || fmt.Sprint(raw["name"]) == nameOrID {
			return raw, nil
		}
	}
	return nil, nil
}

func toolParams() []any {
	return []any{
		map[string]any{
			"name": "timeout",
			"type": map[string]any{"type": "native", "name": "int"},
			"desc": "seconds before giving up",
		},
	}
}

func testOpts(t *testing.T, st *memStore) (Options, *scriptTerm) {
	t.Helper()
	reg := schema.MustLoad()
	term := &scriptTerm{}
	return Options{
		Term:     term,
		Store:    st,
		Types:    store.NewCodeRegistry(st),
		Registry: reg,
	}, term
}

func TestSetScalarAndDone(t *testing.T) {
	opts, term := testOpts(t, newMemStore())
	term.inputs = []string{"set name fuzzer", "set limit 5", "done", "y"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("task"), nil), "")
	committed, err := ed.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)

	name, err := ed.Entity().Get("name")
	require.NoError(t, err)
	assert.Equal(t, "fuzzer", name)
	limit, err := ed.Entity().Get("limit")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	// tool and image were never set; the gate flagged them
	assert.Contains(t, term.output(), "tool is unset")
	assert.Contains(t, term.output(), "image is unset")
}

func TestValidationFailureKeepsEditing(t *testing.T) {
	opts, term := testOpts(t, newMemStore())
	term.inputs = []string{"set priority 150"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("job"), nil), "")
	committed, err := ed.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, committed, "exhausted script interrupts, never commits")

	assert.NotEmpty(t, term.errs)
	prio, err := ed.Entity().Get("priority")
	require.NoError(t, err)
	assert.Equal(t, 50, prio, "failed set leaves the old value")
}

func TestCommandPrefixMatching(t *testing.T) {
	opts, term := testOpts(t, newMemStore())
	term.inputs = []string{"sh", "s", "zzz"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("os"), nil), "")
	_, err := ed.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, term.tables, 1, "sh resolves to show")
	require.Len(t, term.errs, 2)
	assert.Contains(t, term.errs[0], "ambiguous")
	assert.Contains(t, term.errs[0], "show")
	assert.Contains(t, term.errs[0], "set")
	assert.Contains(t, term.errs[1], "unknown command")
}

func TestReferenceSelectionBindsTool(t *testing.T) {
	st := newMemStore()
	st.add("code", map[string]any{"id": "t1", "name": "AFL", "type": "tool", "params": toolParams()})
	st.add("code", map[string]any{"id": "t2", "name": "Radamsa", "type": "tool", "params": toolParams()})
	opts, term := testOpts(t, st)
	term.inputs = []string{
		"set tool", "1",
		"set params", "set timeout 30", "done",
		"done", "y",
	}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("task"), nil), "")
	committed, err := ed.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)

	rs, err := ed.Entity().GetRef("tool")
	require.NoError(t, err)
	assert.Equal(t, entity.RefHealthy, rs.Status)
	assert.Equal(t, "t2", rs.ID)

	p, err := ed.Entity().Get("params")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"timeout": 30}, p)
}

func TestDirectReferenceAssignmentValidated(t *testing.T) {
	st := newMemStore()
	st.add("code", map[string]any{"id": "t1", "name": "AFL", "type": "tool", "params": toolParams()})
	opts, term := testOpts(t, st)
	term.inputs = []string{"set tool nope"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("task"), nil), "")
	_, err := ed.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, term.errs)
	assert.Contains(t, term.errs[0], "no candidate")

	rs, err := ed.Entity().GetRef("tool")
	require.NoError(t, err)
	assert.Equal(t, entity.RefUnset, rs.Status)
}

func TestJobInheritsTaskParams(t *testing.T) {
	st := newMemStore()
	st.add("code", map[string]any{"id": "t1", "name": "AFL", "type": "tool", "params": toolParams()})
	st.add("task", map[string]any{
		"id": "task1", "name": "fuzz-pdfs", "tool": "t1",
		"params": map[string]any{"timeout": 10},
	})
	opts, term := testOpts(t, st)
	term.inputs = []string{"set task fuzz-pdfs"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("job"), nil), "")
	_, err := ed.Run(context.Background())
	require.NoError(t, err)

	rs, err := ed.Entity().GetRef("task")
	require.NoError(t, err)
	assert.Equal(t, "task1", rs.ID)

	p, err := ed.Entity().Get("params")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"timeout": 10}, p, "task params cascade onto the job")
	assert.Empty(t, term.errs)
}

func TestParamsBeforeToolIsRejected(t *testing.T) {
	opts, term := testOpts(t, newMemStore())
	term.inputs = []string{"set params"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("task"), nil), "")
	_, err := ed.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, term.errs)
	assert.Contains(t, term.errs[0], "set a tool")
}

func TestCancelledChildKeepsParentAlive(t *testing.T) {
	st := newMemStore()
	st.add("code", map[string]any{"id": "t1", "name": "AFL", "type": "tool", "params": toolParams()})
	opts, term := testOpts(t, st)
	term.inputs = []string{
		"set tool", "0",
		"set params", "^C", // cancel the parameter editor only
		"done", "y",
	}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("task"), nil), "")
	committed, err := ed.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, committed, "parent survives a cancelled child editor")
}

func TestGateDeclineKeepsEditing(t *testing.T) {
	opts, term := testOpts(t, newMemStore())
	term.inputs = []string{"done", "n", "set name box", "done", "y"}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("image"), nil), "")
	committed, err := ed.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)

	name, err := ed.Entity().Get("name")
	require.NoError(t, err)
	assert.Equal(t, "box", name)
}

func TestComponentSelection(t *testing.T) {
	st := newMemStore()
	st.add("code", map[string]any{
		"id": "t1", "name": "AFL", "type": "tool",
		"params": []any{
			map[string]any{
				"name": "mutator",
				"type": map[string]any{"type": "component", "name": "Mutator"},
				"desc": "how inputs get mangled",
			},
		},
	})
	st.add("code", map[string]any{
		"id": "c1", "name": "Mutator", "type": "component", "bases": []any{},
		"params": []any{},
	})
	st.add("code", map[string]any{
		"id": "c2", "name": "FlipMutator", "type": "component", "bases": []any{"Mutator"},
		"params": []any{
			map[string]any{
				"name": "rate",
				"type": map[string]any{"type": "native", "name": "float"},
				"desc": "flip probability",
			},
		},
	})
	opts, term := testOpts(t, st)
	term.inputs = []string{
		"set tool", "0",
		"set params",
		"set mutator", "1", // base + FlipMutator on offer, pick FlipMutator
		"set rate 0.5", "done",
		"done", "done", "y",
	}

	ed := NewEntityEditor(opts, entity.Instantiate(opts.Registry.Entity("task"), nil), "")
	committed, err := ed.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)

	p, err := ed.Entity().Get("params")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"mutator": map[string]any{
			"class":  "FlipMutator",
			"params": map[string]any{"rate": 0.5},
		},
	}, p)
}
