package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/seedingbot/internal/config"
)

// newProbeCmd checks the controlled process once. Only the log and probe
// settings are required, so it runs without Discord credentials.
func newProbeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print whether the controlled process is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath, config.LoadProbeConfig)
			if err != nil {
				return err
			}

			prober, closer, err := newProber(cfg.Probe, log)
			if err != nil {
				log.Error("Failed to initialize status probe", "backend", cfg.Probe.Backend, "error", err)
				return err
			}
			defer closeLogged(log, "status probe", closer)

			_, err = fmt.Fprintln(cmd.OutOrStdout(), prober.Probe(cmd.Context()).String())
			return err
		},
	}
}

// closeLogged closes c, if set, and logs a failure instead of returning it.
func closeLogged(log *slog.Logger, what string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Error("Error closing "+what, "error", err)
	}
}
