package commands

import (
	"fmt"
	"strconv"

	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/spf13/cobra"
)

// favorite <intersection-id>: mark or unmark a favorite intersection.
func favoriteCmd(opts *rootOptions) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "favorite <intersection-id>",
		Short: "Mark an intersection as favorite (or unmark with --off)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("intersection", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(nil)
			if err != nil {
				return err
			}

			res := svc.Favorites.Toggle(cmd.Context(), id, !off)
			if !res.OK() {
				return res.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "intersection %d favorite=%t\n", res.IntersectionID, res.Value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "remove the favorite mark")
	return cmd
}

// override <light-id> <status>: force a light into a status.
func overrideCmd(opts *rootOptions) *cobra.Command {
	var duration int

	cmd := &cobra.Command{
		Use:   "override <light-id> <RED|YELLOW|GREEN>",
		Short: "Manually set a light's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("light", args[0])
			if err != nil {
				return err
			}
			status, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}
			if duration < 0 {
				return fmt.Errorf("duration must not be negative")
			}
			svc, err := opts.service(nil)
			if err != nil {
				return err
			}

			if err := svc.Coordinator.SetManual(cmd.Context(), id, status, duration); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "light %d set to %s\n", id, status)
			return nil
		},
	}

	cmd.Flags().IntVar(&duration, "duration", 0, "seconds to hold the status (default keeps the light's own duration)")
	return cmd
}

// clear-override <light-id>: return a light to its automatic cycle.
func clearOverrideCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-override <light-id>",
		Short: "Return a light to automatic cycling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("light", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(nil)
			if err != nil {
				return err
			}

			if err := svc.Coordinator.ClearManual(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "light %d back to automatic\n", id)
			return nil
		},
	}
}

// duration <light-id> <seconds>: change a light's phase length.
func durationCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duration <light-id> <seconds>",
		Short: "Change how long a light stays in each phase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("light", args[0])
			if err != nil {
				return err
			}
			seconds, err := strconv.Atoi(args[1])
			if err != nil || seconds <= 0 {
				return fmt.Errorf("invalid duration %q", args[1])
			}
			svc, err := opts.service(nil)
			if err != nil {
				return err
			}

			if err := svc.Coordinator.SetDuration(cmd.Context(), id, seconds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "light %d duration %ds\n", id, seconds)
			return nil
		},
	}
}

// reset <intersection-id>: restart an intersection's signal cycle.
func resetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <intersection-id>",
		Short: "Reset an intersection's signal cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("intersection", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(nil)
			if err != nil {
				return err
			}

			if err := svc.Coordinator.ResetIntersection(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "intersection %d reset\n", id)
			return nil
		},
	}
}
