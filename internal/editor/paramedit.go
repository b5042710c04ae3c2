package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/matthewbaird/crucible/internal/entity"
	"github.com/matthewbaird/crucible/internal/params"
)

// paramEditor drives one level of a parameter tree. Component parameters
// spawn a nested paramEditor over the selected subtype's own parameters;
// the tree is shared with the owning entity editor, so every edit is
// visible there immediately.
type paramEditor struct {
	opts   Options
	tree   *params.Tree
	prompt string
}

func newParamEditor(opts Options, tree *params.Tree, prompt string) *paramEditor {
	return &paramEditor{opts: opts, tree: tree, prompt: prompt}
}

// Run executes the command loop until the user finishes or cancels. As
// with EntityEditor, an interrupt cancels this level only.
func (e *paramEditor) Run(ctx context.Context) (committed bool, err error) {
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

func (e *paramEditor) cmdHelp() {
	e.opts.Term.Say("show             display this level's parameters")
	e.opts.Term.Say("set NAME [VAL]   set a parameter; components and filesets open a selector")
	e.opts.Term.Say("done             finish this level (aliases: quit, save, exit, up)")
}

func (e *paramEditor) cmdShow() {
	rendered := e.tree.Render()
	rows := make([][]string, len(rendered))
	for i, r := range rendered {
		rows[i] = []string{r.Name, r.Type, r.Value, r.Desc}
	}
	e.opts.Term.Table([]string{"name", "type", "value", "description"}, rows)
}

func (e *paramEditor) cmdSet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		e.opts.Term.Err("set requires a parameter name")
		return nil
	}
	name := args[0]
	var info params.ParamInfo
	found := false
	for _, pi := range e.tree.Infos() {
		if pi.Name == name {
			info, found = pi, true
			break
		}
	}
	if !found {
		e.opts.Term.Err("no parameter named %q", name)
		return nil
	}

	switch info.Type.Class {
	case params.ClassComponent:
		return e.selectComponent(ctx, info)
	case params.ClassFileset:
		return e.selectFileset(ctx, name, args[1:])
	default:
		if len(args) < 2 {
			e.opts.Term.Err("parameter %q requires a value", name)
			return nil
		}
		if err := e.tree.SetLeaf(name, args[1:]); err != nil {
			e.opts.Term.Err("%v", err)
			return nil
		}
		if leaf, ok := e.tree.Node(name).(*params.Leaf); ok {
			e.opts.Term.Say("%s = %s", name, params.NiceString(leaf.Value))
		}
		return nil
	}
}

// selectComponent picks the concrete class for a component parameter and
// descends into its parameters. When a class is already selected and
// alternatives exist, the user chooses whether to switch; re-selecting a
// structurally identical class keeps the values already set.
func (e *paramEditor) selectComponent(ctx context.Context, info params.ParamInfo) error {
	base := info.Type.Name
	subs, err := e.opts.Types.SubtypesOf(ctx, base)
	if err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}

	choice := ""
	if cur, ok := e.tree.Node(info.Name).(*params.Branch); ok && len(subs) > 0 {
		change, err := confirm(e.opts.Term,
			fmt.Sprintf("%s is currently a %s, change the component class?", info.Name, cur.Subtype))
		if err != nil {
			return err
		}
		if !change {
			choice = cur.Subtype
		}
	}
	if choice == "" {
		if len(subs) == 0 {
			choice = base
		} else {
			cands := append([]string{base}, subs...)
			rows := make([][]string, len(cands))
			for i, c := range cands {
				rows[i] = []string{c}
			}
			idx, err := pickIndex(e.opts.Term, []string{"class"}, rows,
				"select a class for "+info.Name, false)
			if errors.Is(err, errAborted) {
				return nil
			}
			if err != nil {
				return err
			}
			choice = cands[idx]
		}
	}

	warn := func(msg string) { e.opts.Term.Warn("%s", msg) }
	if err := e.tree.SelectSubtype(ctx, info.Name, choice, e.opts.Types, warn); err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}
	branch, ok := e.tree.Node(info.Name).(*params.Branch)
	if !ok {
		return nil
	}
	e.opts.Term.Say("%s = %s", info.Name, choice)
	child := newParamEditor(e.opts, branch.Params, e.prompt+":"+info.Name)
	_, err = child.Run(ctx)
	return err
}

// selectFileset picks a fileset for a fileset-typed parameter. Only
// unattached filesets (no job yet) are offered unless --all is given.
func (e *paramEditor) selectFileset(ctx context.Context, name string, args []string) error {
	all := len(args) > 0 && args[0] == "--all"
	raws, err := e.opts.Store.List(ctx, "fileset", nil)
	if err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}
	fs := e.opts.Registry.Entity("fileset")
	var cands []*entity.Entity
	for _, r := range raws {
		c := entity.Instantiate(fs, r)
		if !all {
			if j, err := c.Get("job"); err == nil && j != nil {
				continue
			}
		}
		cands = append(cands, c)
	}

	headers := fs.Headers()
	rows := make([][]string, len(cands))
	for i, c := range cands {
		rows[i] = c.Row(headers)
	}
	idx, err := pickIndex(e.opts.Term, headers, rows, "select a fileset for "+name, false)
	if errors.Is(err, errAborted) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.tree.SetFileset(name, cands[idx].ID()); err != nil {
		e.opts.Term.Err("%v", err)
		return nil
	}
	e.opts.Term.Say("%s = %s", name, cands[idx].ID())
	return nil
}

// gate confirms unset parameters at this level and below before the
// editor may finish.
func (e *paramEditor) gate() (bool, error) {
	unset := e.tree.FindUnset("")
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
