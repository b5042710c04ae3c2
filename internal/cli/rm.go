package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "rm TYPE NAME_OR_ID...",
		Short: "Delete entities",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRm,
	})
}

func runRm(cmd *cobra.Command, args []string) {
	es := lookupSchema(args[0])

	st, closeStore, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	for _, arg := range args[1:] {
		raw, err := st.Find(cmd.Context(), es.Name, arg)
		if err != nil {
			exitErr("find", err)
		}
		if raw == nil {
			exitErr("find", fmt.Errorf("no %s matching %q", es.Name, arg))
		}
		id := fmt.Sprint(raw["id"])
		if err := st.Delete(cmd.Context(), es.Name, id); err != nil {
			exitErr("delete", err)
		}
		fmt.Printf("deleted %s %s\n", es.Name, id)
	}
}
