package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/crucible/internal/editor"
	"github.com/matthewbaird/crucible/internal/entity"
	"github.com/matthewbaird/crucible/internal/namegen"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create TYPE",
		Short: "Create a new entity",
		Long: "Creates an entity from schema defaults. --set fills fields up front; " +
			"--shell opens the interactive editor before committing.",
		Args: cobra.ExactArgs(1),
		Run:  runCreate,
	}
	cmd.Flags().StringP("name", "n", "", "Entity name (generated when empty)")
	cmd.Flags().StringArrayP("set", "s", nil, "Set a field, field=value (repeatable)")
	cmd.Flags().Bool("shell", false, "Edit interactively before creating")
	RootCmd.AddCommand(cmd)
}

func runCreate(cmd *cobra.Command, args []string) {
	es := lookupSchema(args[0])
	name, _ := cmd.Flags().GetString("name")
	sets, _ := cmd.Flags().GetStringArray("set")
	shell, _ := cmd.Flags().GetBool("shell")

	st, closeStore, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	ent := entity.Instantiate(es, nil)
	if es.Field("name") != nil {
		if name == "" {
			name = namegen.Generate()
		}
		if err := ent.Set("name", name); err != nil {
			exitErr("set name", err)
		}
	}
	for _, p := range sets {
		k, v, ok := cutPair(p)
		if !ok {
			exitErr("set", fmt.Errorf("bad value %q, want field=value", p))
		}
		if err := ent.Set(k, v); err != nil {
			exitErr("set "+k, err)
		}
	}

	if shell {
		committed, err := editor.NewEntityEditor(editorOptions(st), ent, es.Name).Run(cmd.Context())
		if err != nil {
			exitErr("edit", err)
		}
		if !committed {
			fmt.Println("cancelled, nothing created")
			return
		}
	}

	stored, err := st.Create(cmd.Context(), es.Name, ent.Serialize())
	if err != nil {
		exitErr("create", err)
	}
	fmt.Printf("created %s %v\n", es.Name, stored["id"])
}
