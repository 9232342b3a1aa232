// Command scout finds public profiles through a search results page, has a
// language model structure each one and draft an outreach message, and
// prints or serves the results.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/config"
	"github.com/FranksOps/scout/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "scout:", apperr.Redact(err.Error()))
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for setup problems and 1 for failed runs.
func exitCode(err error) int {
	if apperr.Is(err, apperr.KindConfig) {
		return 2
	}
	return 1
}

// cli holds state shared by the subcommands once the root has loaded the
// configuration.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "scout",
		Short:         "Find public profiles and draft outreach messages",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default scout.yaml in . or $HOME/.config/scout)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	bindFlag(c.v, "log.level", flags.Lookup("log-level"))
	bindFlag(c.v, "log.format", flags.Lookup("log-format"))

	root.AddCommand(newRunCmd(c), newServeCmd(c), newHistoryCmd(c))
	return root
}

func (c *cli) load(logOut io.Writer) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return apperr.New(apperr.KindConfig, "config.load", err)
	}
	slog.SetDefault(logger)

	c.cfg = cfg
	c.logger = logger
	return nil
}

// bindFlag lets a flag override a config key. It only fails on a nil flag,
// which is a programming error.
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}
