package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/respkit/client"
	"github.com/luma/respkit/cmd/gen"
	"github.com/luma/respkit/internal/env"
	"github.com/luma/respkit/internal/meta"
	"github.com/luma/respkit/transport"
)

var (
	// Loaded before any subcommand runs, flags take precedence over the
	// environment
	conf   *env.Config
	logger *zap.Logger
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   meta.Name,
	Short: "Talk to RESP servers",
	Long: `respkit sends commands to a server speaking the RESP protocol and
prints its replies, either one command at a time or through an HTTP and
websocket gateway.

Configuration is read from the environment (RESPKIT_*) and from a
.env.local file in the working directory, flags win over both.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringP("host", "a", "127.0.0.1", "The server host")
	flags.IntP("port", "p", 6379, "The server port")
	flags.StringP("mode", "m", "blocking", "The executor to use: blocking or cooperative")
	flags.Duration("timeout", 0, "Bound every exchange, 0 waits as long as the server takes")
	flags.String("log-level", "info", "The log level")
	flags.Bool("trace", false, "Log every byte sent and received, at debug level")

	RootCmd.AddCommand(ExecCmd)
	RootCmd.AddCommand(GatewayCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer signalStop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		signalStop()
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) (err error) {
	conf, err = env.LoadConfig(cmd.Context())
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("host") {
		conf.Host, _ = flags.GetString("host")
	}

	if flags.Changed("port") {
		conf.Port, _ = flags.GetInt("port")
	}

	if flags.Changed("mode") {
		conf.Mode, _ = flags.GetString("mode")
	}

	if flags.Changed("timeout") {
		conf.ExecTimeout, _ = flags.GetDuration("timeout")
	}

	if flags.Changed("log-level") {
		conf.LogLevel, _ = flags.GetString("log-level")
	}

	if flags.Changed("trace") {
		conf.Trace, _ = flags.GetBool("trace")
	}

	logger, err = env.MakeLogger(conf.LogLevel)
	return err
}

func clientOptions() (client.Options, error) {
	mode, err := client.ParseMode(conf.Mode)
	if err != nil {
		return client.Options{}, err
	}

	return client.Options{
		Options: transport.Options{
			DialTimeout: conf.DialTimeout,
			Trace:       conf.Trace,
			Log:         logger.Named("client"),
		},
		Mode: mode,
	}, nil
}
