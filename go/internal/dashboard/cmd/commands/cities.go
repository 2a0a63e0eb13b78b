package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// cities: list cities, optionally with their areas.
func citiesCmd(opts *rootOptions) *cobra.Command {
	var withAreas bool

	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List cities known to the signal server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cities, err := svc.LoadCities(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tNAME")
			for _, city := range cities {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", city.ID, city.Code, city.Name)
				if !withAreas {
					continue
				}
				areas, err := svc.Cache.EnsureAreas(ctx, city.ID)
				if err != nil {
					return err
				}
				for _, area := range areas {
					fmt.Fprintf(tw, "  %d\t%s\t%s\n", area.ID, area.Code, area.Name)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&withAreas, "areas", false, "also list each city's areas")
	return cmd
}
