package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/display"
	"github.com/spf13/cobra"
)

// watch: follow live light states for a city, optionally limited to some areas.
func watchCmd(opts *rootOptions) *cobra.Command {
	var (
		cityID  int
		areaIDs []int
		listen  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live countdowns for a city",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cityID <= 0 {
				return errors.New("--city is required")
			}
			if listen != "" {
				opts.cfg.ListenAddr = listen
			}

			out := cmd.OutOrStdout()
			svc, err := opts.service(func(c display.Change) {
				if c.Favorite != nil {
					fmt.Fprintf(out, "intersection %d favorite=%t\n", c.IntersectionID, *c.Favorite)
					return
				}
				fmt.Fprintf(out, "light %d %s\n", c.LightID, c.Text)
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			done := make(chan error, 1)
			go func() { done <- svc.Start(ctx) }()

			if err := selectTargets(ctx, svc, cityID, areaIDs); err != nil {
				stop()
				<-done
				return err
			}
			return <-done
		},
	}

	cmd.Flags().IntVar(&cityID, "city", 0, "city id to watch")
	cmd.Flags().IntSliceVar(&areaIDs, "area", nil, "limit to these area ids (default all areas of the city)")
	cmd.Flags().StringVar(&listen, "listen", "", "address for the status server, e.g. :9090")
	return cmd
}

type watcher interface {
	WatchCity(ctx context.Context, cityID int, areaIDs ...int) (int, error)
}

func selectTargets(ctx context.Context, w watcher, cityID int, areaIDs []int) error {
	n, err := w.WatchCity(ctx, cityID, areaIDs...)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("city %d has no intersections to watch", cityID)
	}
	return nil
}
