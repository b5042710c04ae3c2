package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/crucible/internal/editor"
	"github.com/matthewbaird/crucible/internal/entity"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "edit TYPE NAME_OR_ID",
		Short: "Edit an existing entity interactively",
		Args:  cobra.ExactArgs(2),
		Run:   runEdit,
	})
}

func runEdit(cmd *cobra.Command, args []string) {
	es := lookupSchema(args[0])

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
	committed, err := editor.NewEntityEditor(editorOptions(st), ent, es.Name).Run(cmd.Context())
	if err != nil {
		exitErr("edit", err)
	}
	if !committed {
		fmt.Println("cancelled, nothing saved")
		return
	}

	if _, err := st.Update(cmd.Context(), es.Name, ent.ID(), ent.Serialize()); err != nil {
		exitErr("update", err)
	}
	fmt.Printf("updated %s %s\n", es.Name, ent.ID())
}
