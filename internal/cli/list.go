package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/crucible/internal/editor"
	"github.com/matthewbaird/crucible/internal/entity"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list TYPE",
		Short: "List entities of a type",
		Args:  cobra.ExactArgs(1),
		Run:   runList,
	}
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter results, key=value (repeatable)")
	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	es := lookupSchema(args[0])
	pairs, _ := cmd.Flags().GetStringArray("filter")
	filter, err := parseFilter(pairs)
	if err != nil {
		exitErr("filter", err)
	}

	st, closeStore, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	raws, err := st.List(cmd.Context(), es.Name, filter)
	if err != nil {
		exitErr("list", err)
	}

	headers := es.Headers()
	rows := make([][]string, len(raws))
	for i, raw := range raws {
		rows[i] = entity.Instantiate(es, raw).Row(headers)
	}
	editor.NewStdio(os.Stdin, os.Stdout).Table(headers, rows)
}
