package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/client"
	"github.com/typester/riverql/internal/endpoint"
	"github.com/typester/riverql/internal/watcher"
)

var subscribeFlagKeys = map[string]string{
	"endpoint": "endpoint",
}

func newSubscribeCmd(opts *rootOptions) *cobra.Command {
	var (
		variables string
		wait      bool
	)
	cmd := &cobra.Command{
		Use:     "subscribe [query | @file]",
		Aliases: []string{"query"},
		Short:   "Run a GraphQL operation and print each result as a JSON line",
		Long: "Run a GraphQL query or subscription against a riverql server. The operation is\n" +
			"taken from the argument, from a file when prefixed with @, or from stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, subscribeFlagKeys)
			if err != nil {
				return err
			}
			ep, err := endpoint.ParseEndpoint(cfg.Endpoint)
			if err != nil {
				return err
			}

			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			query, err := client.ReadQuery(arg, os.Stdin)
			if err != nil {
				return err
			}
			vars, err := parseVariables(variables)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if wait && ep.Socket != "" {
				if err := watcher.WaitForPath(ctx, ep.Socket); err != nil {
					return fmt.Errorf("wait for server socket: %w", err)
				}
			}
			c := client.New(ep, cmd.OutOrStdout(), pslog.Ctx(ctx))
			return c.Run(ctx, query, vars)
		},
	}
	flags := cmd.Flags()
	flags.String("endpoint", "", "server endpoint (ws://host:port/graphql, unix:///path#/graphql)")
	flags.StringVar(&variables, "variables", "", "operation variables as a JSON object")
	flags.BoolVar(&wait, "wait", false, "wait for the server unix socket to appear")
	return cmd
}

func parseVariables(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("invalid --variables: %w", err)
	}
	return vars, nil
}
