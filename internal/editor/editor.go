package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/matthewbaird/crucible/internal/entity"
	"github.com/matthewbaird/crucible/internal/params"
	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/store"
)

// Options carries the collaborators every editor needs.
type Options struct {
	Term     Terminal
	Store    store.Store
	Types    params.TypeRegistry
	Registry *schema.Registry
}

// entityCommands are the commands an EntityEditor understands, matched by
// unique prefix. done, quit, save, exit and up all mean "finished".
var entityCommands = []string{"show", "set", "done", "quit", "save", "exit", "up", "help"}

var doneCommands = map[string]bool{
	"done": true, "quit": true, "save": true, "exit": true, "up": true,
}

// EntityEditor drives one entity through its interactive edit loop. The
// editor never talks to the store for the entity itself; Run reports
// whether the user finished, and committing the result is the caller's
// job.
type EntityEditor struct {
	opts   Options
	ent    *entity.Entity
	prompt string

	// tree holds the entity's parameter values when the type carries a
	// params field driven by a tool (task directly, job through its task).
	// nil until the driving reference is set.
	tree *params.Tree
}

// NewEntityEditor builds an editor over ent. The prompt names the editing
// context; child editors extend it.
func NewEntityEditor(opts Options, ent *entity.Entity, prompt string) *EntityEditor {
	if prompt == "" {
		prompt = ent.Type()
	}
	return &EntityEditor{opts: opts, ent: ent, prompt: prompt}
}

// Entity returns the entity under edit.
func (e *EntityEditor) Entity() *entity.Entity { return e.ent }

// Run executes the command loop until the user finishes or cancels.
// committed is true only when the user said done and passed the unset
// check. An interrupt cancels this editor alone, never a parent.
func (e *EntityEditor) Run(ctx context.Context) (committed bool, err error) {
	e.bindParams(ctx)
	for {
		line, err := e.opts.Term.Prompt(e.prompt + " >")
		if err != nil {
			if errors.Is(err, ErrInterrupt) {
				e.opts.Term.Warn("cancelled")
				return false, nil
			}
			return false, err
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			e.opts.Term.Err("%v", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		cmd, matches := matchCommand(tokens[0], entityCommands)
		switch {
		case cmd == "show":
			e.cmdShow()
		case cmd == "help":
			e.cmdHelp()
		case cmd == "set":
			err = e.cmdSet(ctx, tokens[1:])
		case doneCommands[cmd]:
			var ok bool
			ok, err = e.gate()
			if err == nil && ok {
				return true, nil
			}
		case len(matches) > 1:
			e.opts.Term.Err("ambiguous command %q: %s", tokens[0], strings.Join(matches, ", "))
		default:
			e.opts.Term.Err("unknown command %q, try help", tokens[0])
		}
		if err != nil {
			if errors.Is(err, ErrInterrupt) {
				e.opts.Term.Warn("cancelled")
				return false, nil
			}
			return false, err
		}
	}
}

func (e *EntityEditor) cmdHelp() {
	e.opts.Term.Say("show             display the entity's fields")
	e.opts.Term.Say("set FIELD [VAL]  set a field; references and params open a selector")
	e.opts.Term.Say("done             finish editing (aliases: quit, save, exit, up)")
}

func (e *EntityEditor) cmdShow() {
	es := e.ent.Schema()
	rows := make([][]string, 0, len(es.FieldOrder))
	for _, name := range es.FieldOrder {
		v, _ := e.ent.Get(name)
		rows = append(rows, []string{name, params.NiceString(v), es.Fields[name].Meta().Desc})
	}
	e.opts.Term.Table([]string{"name", "value", "description"}, rows)
}

// cmdSet dispatches a set command. Recoverable problems (bad field, cast
// or validation failure, collaborator errors) are reported and the editor
// keeps going; only terminal-level failures come back as errors.
func (e *EntityEditor) cmdSet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		e.opts.Term.Err("set requires a field name")
		return nil
	}
	name := args[0]
	d := e.ent.Schema().Field(name)
	if d == nil {
		e.opts.Term.Err("no field named %q", name)
		return nil
	}

	if name == "params" && (e.ent.Type() == "task" || e.ent.Type() == "job") {
		return e.editParams(ctx)
	}
	if d.IsRef() {
		return e.setReference(ctx, name, schema.Ref(d), args[1:])
	}

	if len(args) < 2 {
		e.opts.Term.Err("field %q requires a value", name)
		return nil
	}
	v, err := d.Meta().CastTokens(args[1:])
	if err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}
	if err := e.ent.Set(name, v); err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}
	e.opts.Term.Say("%s = %s", name, params.NiceString(v))
	return nil
}

// editParams opens the nested parameter editor for the bound tree and
// writes the tree back into the entity afterwards, committed or not.
func (e *EntityEditor) editParams(ctx context.Context) error {
	if e.tree == nil {
		if e.ent.Type() == "job" {
			e.opts.Term.Err("set a task before editing params")
		} else {
			e.opts.Term.Err("set a tool before editing params")
		}
		return nil
	}
	child := newParamEditor(e.opts, e.tree, e.prompt+":params")
	if _, err := child.Run(ctx); err != nil {
		return err
	}
	e.syncParams()
	return nil
}

// setReference assigns a reference field. With a value argument the
// identifier or name is validated against the live candidate set; without
// one the user picks from an indexed table. Types that support creation
// offer a NEW entry which opens a child editor and persists its result.
func (e *EntityEditor) setReference(ctx context.Context, name string, rd *schema.ReferenceDescriptor, args []string) error {
	target := e.opts.Registry.Entity(rd.Target)
	for {
		raws, err := e.opts.Store.List(ctx, rd.Target, store.Filter(rd.Filter))
		if err != nil {
			e.opts.Term.Err("%v", err)
			return nil
		}
		cands := make([]*entity.Entity, len(raws))
		for i, r := range raws {
			cands[i] = entity.Instantiate(target, r)
		}

		if len(args) > 0 {
			want := args[0]
			for _, c := range cands {
				n, _ := c.Get("name")
				if c.ID() == want || fmt.Sprint(n) == want {
					return e.applyRef(ctx, name, c)
				}
			}
			e.opts.Term.Err("%v", &entity.UnresolvedReferenceError{Field: name, ID: want})
			return nil
		}

		headers := target.Headers()
		rows := make([][]string, len(cands))
		for i, c := range cands {
			rows[i] = c.Row(headers)
		}
		idx, err := pickIndex(e.opts.Term, headers, rows,
			fmt.Sprintf("select a %s for %s", rd.Target, name), target.CreateCommand != "")
		if errors.Is(err, errAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if idx == pickNew {
			child := NewEntityEditor(e.opts, entity.Instantiate(target, nil), e.prompt+":"+rd.Target)
			done, err := child.Run(ctx)
			if err != nil {
				return err
			}
			if done {
				if _, err := e.opts.Store.Create(ctx, rd.Target, child.Entity().Serialize()); err != nil {
					e.opts.Term.Err("%v", err)
				}
			}
			continue // refresh candidates
		}
		return e.applyRef(ctx, name, cands[idx])
	}
}

// applyRef stores the chosen reference and runs the cascades: a job's
// task brings its parameter values along and rebinds the tree against the
// task's tool; a task's tool rebinds the tree against its declared
// parameters.
func (e *EntityEditor) applyRef(ctx context.Context, name string, chosen *entity.Entity) error {
	if err := e.ent.Set(name, chosen.ID()); err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}
	e.opts.Term.Say("%s = %s", name, chosen.ID())

	switch {
	case e.ent.Type() == "job" && name == "task":
		if p, err := chosen.Get("params"); err == nil && p != nil {
			if err := e.ent.Set("params", p); err != nil {
				e.opts.Term.Err("%v", err)
			}
		}
		e.bindParams(ctx)
	case e.ent.Type() == "task" && name == "tool":
		e.bindParams(ctx)
	}
	return nil
}

// bindParams (re)builds the parameter tree from the tool that drives this
// entity's params field. Without a resolvable tool the tree stays nil and
// set params explains what is missing.
func (e *EntityEditor) bindParams(ctx context.Context) {
	tool, ok := e.toolID(ctx)
	if !ok {
		e.tree = nil
		return
	}
	declared, err := e.opts.Types.DeclaredParameters(ctx, tool)
	if err != nil {
		e.opts.Term.Err("%v", err)
		e.tree = nil
		return
	}
	raw, _ := e.ent.Get("params")
	rawMap, _ := raw.(map[string]any)
	e.tree = params.NewTree(declared, rawMap, func(msg string) { e.opts.Term.Warn("%s", msg) })
	e.syncParams()
}

// toolID resolves the code entity whose declared parameters shape this
// entity's params: a task's tool directly, a job's through its task.
func (e *EntityEditor) toolID(ctx context.Context) (string, bool) {
	switch e.ent.Type() {
	case "task":
		rs, err := e.ent.GetRef("tool")
		if err != nil || rs.Status != entity.RefHealthy {
			return "", false
		}
		return rs.ID, true
	case "job":
		rs, err := e.ent.GetRef("task")
		if err != nil || rs.Status != entity.RefHealthy {
			return "", false
		}
		raw, err := e.opts.Store.Find(ctx, "task", rs.ID)
		if err != nil || raw == nil {
			return "", false
		}
		tool := entity.Resolve(raw["tool"])
		if tool.Status != entity.RefHealthy {
			return "", false
		}
		return tool.ID, true
	}
	return "", false
}

func (e *EntityEditor) syncParams() {
	if e.tree == nil {
		return
	}
	if err := e.ent.Set("params", e.tree.ToMap()); err != nil {
		e.opts.Term.Err("%v", err)
	}
}

// gate collects every unset field and parameter leaf and asks the user to
// confirm before the editor may finish. Declining keeps the session open.
func (e *EntityEditor) gate() (bool, error) {
	var unset []string
	for _, name := range e.ent.UnsetFields() {
		if name == "params" && e.tree != nil {
			continue // tree leaves reported individually below
		}
		unset = append(unset, name)
	}
	if e.tree != nil {
		unset = append(unset, e.tree.FindUnset("params.")...)
	}
	if len(unset) == 0 {
		return true, nil
	}
	for _, p := range unset {
		e.opts.Term.Warn("%s is unset", p)
	}
	ok, err := confirm(e.opts.Term, "Are you fine with these fields being unset?")
	if err != nil {
		return false, err
	}
	if !ok {
		e.opts.Term.Say("ok, keep editing")
	}
	return ok, nil
}
