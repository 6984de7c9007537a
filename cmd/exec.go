package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/respkit/client"
	"github.com/luma/respkit/internal/cli"
)

var asJSON bool

func init() {
	ExecCmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply as JSON")

	// Everything after the command keyword belongs to the command, LRANGE
	// takes negative offsets
	ExecCmd.Flags().SetInterspersed(false)
}

var ExecCmd = &cobra.Command{
	Use:   "exec COMMAND [ARG...]",
	Short: "Send one command and print the reply",
	Long: `Send one command over a fresh connection and print the reply the way
redis-cli does.

Usage
	respkit exec LPUSH queue job-1
	respkit exec --mode cooperative --json HGETALL user:1
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command, err := cli.Parse(args)
		if err != nil {
			return err
		}

		options, err := clientOptions()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if conf.ExecTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, conf.ExecTimeout)
			defer cancel()
		}

		resp, err := client.Send(ctx, conf.Host, conf.Port, command, options)
		if err != nil {
			logger.Debug("Exec failed", zap.Error(err))
			return err
		}

		if asJSON {
			out, err := json.Marshal(resp)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.String())
		return nil
	},
}
