package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/config"
	logpkg "github.com/kailas-cloud/snipdex/internal/logger"
)

// cliState carries global flags and the loaded configuration between hooks.
type cliState struct {
	env        string
	configPath string
	jsonOut    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:   "snipdex",
		Short: "Save text snippets and find them again by meaning",
		Long: `snipdex keeps short text snippets in local and synced storage and
ranks them against a query by cosine similarity of locally computed
embeddings.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return st.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if st.logger != nil {
				_ = st.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&st.env, "env", config.GetEnv(), "environment name selecting config/<env>.yaml")
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "explicit config file path (overrides --env lookup)")
	root.PersistentFlags().BoolVar(&st.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newServeCommand(st),
		newAddCommand(st),
		newListCommand(st),
		newMoveCommand(st),
		newRemoveCommand(st),
		newClearCommand(st),
		newSearchCommand(st),
		newVersionCommand(),
	)
	return root
}

func (st *cliState) load() error {
	var (
		cfg config.Config
		err error
	)
	if st.configPath != "" {
		cfg, err = config.LoadFile(st.configPath)
	} else {
		cfg, err = config.Load(st.env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st.cfg = cfg

	logger, err := logpkg.NewLogger(st.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	st.logger = logger
	return nil
}

// withApp builds the composition root for one command and closes it afterwards.
func (st *cliState) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
