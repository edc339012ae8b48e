// Command patrolrank serves the ranking API and runs ranking operations
// against the configured store from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	service "github.com/okian/patrolrank/internal/app"
	"github.com/okian/patrolrank/internal/config"
	"github.com/okian/patrolrank/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "patrolrank",
		Short:         "Score, rank and track officer performance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: $"+config.EnvConfigFile+")")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(recomputeCmd(opts))
	root.AddCommand(scoreCmd(opts))
	root.AddCommand(topCmd(opts))
	root.AddCommand(seedCmd(opts))
	root.AddCommand(historyCmd(opts))

	return root
}

// loadConfig loads configuration and initializes logging on stderr so
// command output on stdout stays machine readable.
func (o *rootOptions) loadConfig(ctx context.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.cfgFile != "" {
		cfg, err = config.LoadFile(ctx, o.cfgFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// withService runs fn against a started service without background
// scheduling or policy watching.
func (o *rootOptions) withService(ctx context.Context, fn func(context.Context, *service.Service) error) error {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return err
	}
	opts := append(service.OptionsFromConfig(cfg),
		service.WithRecomputeInterval(0),
		service.WithPolicyFile(cfg.PolicyFile, false),
	)
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()
	return fn(ctx, svc)
}
