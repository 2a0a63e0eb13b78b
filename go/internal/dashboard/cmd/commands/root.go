package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/mcdev12/trafficdash/go/internal/dashboard"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/config"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/display"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	serverURL  string
	logLevel   string
	cfg        config.Config
}

// Execute runs the trafficdash command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "trafficdash",
		Short:        "Live traffic signal dashboard client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Msg("could not load .env file")
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.serverURL != "" {
				cfg.ServerURL = opts.serverURL
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := cfg.Level()
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
			zerolog.SetGlobalLevel(level)

			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "signal server base URL (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		watchCmd(opts),
		citiesCmd(opts),
		favoriteCmd(opts),
		overrideCmd(opts),
		clearOverrideCmd(opts),
		durationCmd(opts),
		resetCmd(opts),
	)
	return root
}

func (o *rootOptions) service(onChange func(display.Change)) (*dashboard.Service, error) {
	svc, err := dashboard.NewService(o.cfg, clockwork.NewRealClock(), onChange)
	if err != nil {
		return nil, fmt.Errorf("failed to set up dashboard: %w", err)
	}
	return svc, nil
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
