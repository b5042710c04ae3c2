package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/crucible/internal/editor"
	"github.com/matthewbaird/crucible/internal/entity"
	"github.com/matthewbaird/crucible/internal/params"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "show TYPE NAME_OR_ID",
		Short: "Show one entity's fields",
		Args:  cobra.ExactArgs(2),
		Run:   runShow,
	})
}

func runShow(cmd *cobra.Command, args []string) {
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
	rows := make([][]string, 0, len(es.FieldOrder))
	for _, name := range es.FieldOrder {
		v, _ := ent.Get(name)
		rows = append(rows, []string{name, params.NiceString(v), es.Fields[name].Meta().Desc})
	}
	editor.NewStdio(os.Stdin, os.Stdout).Table([]string{"name", "value", "description"}, rows)
}
