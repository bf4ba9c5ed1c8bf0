package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/krau/konaclassify/config"
	"github.com/krau/konaclassify/zoo"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available classifier models",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tINPUT\tLAYOUT\tMODE\tDOCS")
		for _, s := range zoo.StandardSpecs(config.C().ModelURLs) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.InputShape, s.Layout, s.Mode, s.DocURL)
		}
		return w.Flush()
	},
}
