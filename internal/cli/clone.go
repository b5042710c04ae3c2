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
		Use:   "clone TYPE NAME_OR_ID",
		Short: "Clone an entity into a new one",
		Long: "Copies an existing entity, drops its identifier and commits the copy " +
			"as a new entity. --shell opens the editor on the copy first.",
		Args: cobra.ExactArgs(2),
		Run:  runClone,
	}
	cmd.Flags().StringP("name", "n", "", "Name for the clone (generated when empty)")
	cmd.Flags().Bool("shell", false, "Edit the clone interactively before creating")
	RootCmd.AddCommand(cmd)
}

func runClone(cmd *cobra.Command, args []string) {
	es := lookupSchema(args[0])
	name, _ := cmd.Flags().GetString("name")
	shell, _ := cmd.Flags().GetBool("shell")

	st, closeStore, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	raw, err := st.Find(cmd.Context(), es.Name, args[1])
	if err != nil {
		exitErr("find", err)
	}
	if raw == nil {
		exitErr("find", fmt.Errorf("no %s matching %q", es.Name, args[1]))
	}

	ent := entity.Instantiate(es, raw)
	ent.ClearID()
	if es.Field("name") != nil {
		if name == "" {
			name = namegen.Generate()
		}
		if err := ent.Set("name", name); err != nil {
			exitErr("set name", err)
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
	fmt.Printf("cloned %s %q into %v\n", es.Name, args[1], stored["id"])
}
