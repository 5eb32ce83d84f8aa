// Package cmd wires up the CLI and dispatches to the daemon or client.
package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"shellkeep/config"
	"shellkeep/internal/client"
	"shellkeep/internal/daemon"
	"shellkeep/internal/shell"
	"shellkeep/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X shellkeep/cmd.version=0.2.0"
var version = "0.1.0" //nolint:gochecknoglobals

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	socket     string
	configPath string
	verbose    int
}

// Execute parses args and runs the selected subcommand.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "shellkeep",
		Short:         "Keep named shell sessions alive across disconnects",
		Long:          "shellkeep runs a small daemon that owns named shell sessions. Attach to a session by name, detach by closing the connection, and reattach later to the same running shell.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		newDaemonCmd(opts),
		newAttachCmd(opts),
		newListCmd(opts),
		newVersionCmd(),
	)
	return root
}

func addGlobalFlags(fs *flag.FlagSet, opts *globalOptions) {
	fs.StringVarP(&opts.socket, "socket", "s", "", "Daemon socket path (default "+config.DefaultSocketPath()+")")
	fs.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	fs.CountVarP(&opts.verbose, "verbose", "v", "Increase verbosity (repeatable)")
}

// loadConfig layers defaults, the config file, the environment, and
// finally flags, then validates the result.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg := config.New()

	if opts.configPath != "" {
		cfg.ConfigPath = opts.configPath
		if err := config.LoadFile(cfg, opts.configPath); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)

	flags := cmd.Flags()
	if flags.Changed("socket") {
		cfg.SocketPath = opts.socket
	}
	if flags.Changed("verbose") {
		cfg.Verbose = config.DefaultVerbosity + opts.verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *util.Logger {
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(cmd.ErrOrStderr())
	return logger
}

// ── subcommands ──────────────────────────────────────────────────────

func newDaemonCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the session daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			d := daemon.New(cfg, shell.NewSpawner(logger), logger)
			return d.ListenAndServe(cmd.Context())
		},
	}
}

func newAttachCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <name>",
		Short: "Attach to a session, creating it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			c := client.New(cfg.SocketPath, newLogger(cmd, cfg))
			_, err = c.Attach(cmd.Context(), args[0], cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the daemon's sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			c := client.New(cfg.SocketPath, newLogger(cmd, cfg))
			sessions, err := c.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTARTED_AT")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.StartedAt().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "shellkeep %s\n", version)
			return err
		},
	}
}
