package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgekit-ai/edgekit/internal/bootstrap"
	"github.com/edgekit-ai/edgekit/internal/config"
	"github.com/edgekit-ai/edgekit/internal/telemetry"
	edgekitversion "github.com/edgekit-ai/edgekit/internal/version"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the local SDK installation state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          showStatus,
	}
}

func showStatus(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	paths := config.GetPaths()

	info := map[string]interface{}{
		"version": edgekitversion.FormatVersion(edgekitversion.String()),
		"home":    paths.Home,
		"models":  paths.Models,
	}

	if _, err := os.Stat(paths.Home); err == nil {
		info["installed"] = true
	} else {
		info["installed"] = false
	}

	cfg, err := bootstrap.Load()
	if err != nil {
		return out.Error("Failed to read collector configuration", err)
	}
	info["collector_configured"] = cfg != nil && cfg.CollectorURL != ""
	if cfg != nil {
		info["telemetry_enabled"] = cfg.Telemetry
	}

	if _, statErr := os.Stat(paths.Spool); statErr == nil {
		spool, openErr := telemetry.OpenSpool(paths.Spool)
		if openErr != nil {
			return out.Error("Failed to open telemetry spool", openErr)
		}
		defer spool.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		pending, countErr := spool.PendingCount(ctx)
		if countErr != nil {
			return out.Error("Failed to count spooled events", countErr)
		}
		info["spooled_events"] = pending
	}

	return out.Print(info)
}
