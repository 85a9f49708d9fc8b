package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zelonewolf/wikidata-qa/internal/census"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/pipeline"
)

// statesCmd represents the states command
var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List US states with their Wikidata QID and OSM relation id",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.New(model.DefaultConfig())
		if err != nil {
			return err
		}
		states, err := p.States(context.Background())
		if err != nil {
			return fmt.Errorf("list states: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STATE\tABBREV\tQID\tOSM RELATION")
		for _, st := range states {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Name, census.StateAbbreviation(st.Name), st.QID, st.OSMRelationID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statesCmd)
}
