package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List registered capabilities and whether they can run",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := loadSources()
		if err != nil {
			return err
		}
		defer src.Close()

		reg, err := src.registry()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tANALYST\tAVAILABLE")
		for _, id := range reg.IDs() {
			c, _ := reg.Lookup(id)
			name := c.Name
			if c.GeneralPurpose {
				name += " (general)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.ID, name, c.Provider, c.IsAvailable())
		}
		return tw.Flush()
	},
}
