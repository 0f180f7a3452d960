package main

import (
	"clientcore/internal/config"
	"clientcore/internal/core"
	"clientcore/internal/logging"
	"clientcore/internal/openapi"
	"clientcore/internal/server"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	root := &cobra.Command{
		Use:          "clientd",
		Short:        "Client record REST service",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML configuration file")
	root.AddCommand(newServeCommand(v), newCheckIDCommand(), newOpenAPICommand())
	return root
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the client REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := server.New(ctx, cfg, logger.Named("clientd"))
			if err != nil {
				return err
			}
			return app.ListenAndServe(ctx)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "", "listen address, e.g. :8080")
	flags.String("storage-driver", "", "client store driver: memory, sqlite or postgres")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	for key, flag := range map[string]string{
		"http.addr":      "addr",
		"storage.driver": "storage-driver",
		"log.level":      "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

// loadConfig merges defaults, the optional file, CLIENTCORE_* variables and
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(v, path)
}

var errInvalidIDNumbers = errors.New("invalid id numbers")

func newCheckIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-id <idNumber>...",
		Short: "Report whether each ID number passes the checksum",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			for _, id := range args {
				verdict := "valid"
				if !core.ValidIDNumber(id) {
					verdict = "invalid"
					invalid++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, verdict)
			}
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidIDNumbers, invalid, len(args))
			}
			return nil
		},
	}
}

func newOpenAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Write the OpenAPI contract as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := openapi.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(spec)
			return err
		},
	}
}
