package cmd

import (
	"net"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/respkit/internal/gateway"
)

func init() {
	flags := GatewayCmd.Flags()

	flags.String("http-host", "0.0.0.0", "The host to listen for HTTP requests on")
	flags.String("http-port", "7362", "The port to listen for HTTP requests on")
}

var GatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start up the respkit HTTP gateway",
	Long: `Start up the respkit HTTP gateway

Commands posted to /v1/exec, or typed into the /ws console, are sent to the
configured server and the replies are returned as JSON.

Usage
	respkit gateway --port 6379 --http-port 7362

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("http-host") {
			conf.HTTPHost, _ = flags.GetString("http-host")
		}

		if flags.Changed("http-port") {
			conf.HTTPPort, _ = flags.GetString("http-port")
		}

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		logger.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		options, err := clientOptions()
		if err != nil {
			return err
		}

		g := gateway.New(gateway.Options{
			Host:        conf.Host,
			Port:        conf.Port,
			Client:      options,
			ExecTimeout: conf.ExecTimeout,
			DebugHTTP:   conf.DebugHTTP,
			Log:         logger.Named("gateway"),
		})

		addr := net.JoinHostPort(conf.HTTPHost, conf.HTTPPort)

		logger.Info("Listening",
			zap.Any("config", conf),
			zap.String("addr", addr))

		if err := g.ListenAndServe(cmd.Context(), addr); err != nil {
			return err
		}

		logger.Info("Exiting")
		return nil
	},
}

// Every websocket console holds a connection to the server open, raise the
// soft limit as far as we're allowed
func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
