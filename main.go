package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rinsuki-lab/alvr-dive/internal/api"
	"github.com/rinsuki-lab/alvr-dive/internal/app"
	"github.com/rinsuki-lab/alvr-dive/internal/client"
	"github.com/rinsuki-lab/alvr-dive/internal/gateway"
	"github.com/rinsuki-lab/alvr-dive/internal/metrics"
	"github.com/rinsuki-lab/alvr-dive/pkg/shell"
	"github.com/rinsuki-lab/alvr-dive/pkg/yaml"
	"github.com/spf13/cobra"
)

var confs []string

func main() {
	root := &cobra.Command{
		Use:           "dive",
		Short:         "Headless streaming client and replay gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringArrayVarP(
		&confs, "config", "c", nil,
		"config file path, raw YAML `{...}` or `module.key=value`, can be repeated",
	)

	root.AddCommand(
		newClientCommand(),
		newGatewayCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClientCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "client",
		Short: "Connect to gateway, decode frames and send poses",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Init(confs) // init config and logs

			api.Init()     // init HTTP API server
			metrics.Init() // add /metrics to API
			client.Init()
			api.Serve()

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				sig := shell.RunUntilSignal()
				app.Logger.Info().Stringer("signal", sig).Msg("[client] stop")
				cancel()
			}()

			if err := client.Run(ctx); err != nil {
				app.Logger.Error().Err(err).Msg("[client] run")
				return err
			}
			return nil
		},
	}
}

func newGatewayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Replay AnnexB file to connected clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Init(confs) // init config and logs

			api.Init()     // init HTTP API server
			metrics.Init() // add /metrics to API
			gateway.Init()
			api.Serve()

			sig := shell.RunUntilSignal()
			app.Logger.Info().Stringer("signal", sig).Msg("[gateway] stop")

			gateway.Close()
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print merged config",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Init(confs)

			b, err := yaml.Encode(app.MergedConfig(), 2)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), app.FullVersion())
		},
	}
}
