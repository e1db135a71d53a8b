package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edgekit-ai/edgekit/internal/bootstrap"
	"github.com/edgekit-ai/edgekit/internal/telemetry"
)

func newTelemetryCommand() *cobra.Command {
	telemetryCmd := &cobra.Command{
		Use:           "telemetry",
		Short:         "Telemetry management commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pingCmd := &cobra.Command{
		Use:           "ping",
		Short:         "Send a test event to the configured collector",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          telemetryPing,
	}
	pingCmd.Flags().Duration("timeout", 10*time.Second, "Delivery timeout")

	telemetryCmd.AddCommand(pingCmd)
	return telemetryCmd
}

func telemetryPing(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	cfg, err := bootstrap.Load()
	if err != nil {
		return out.Error("Failed to read collector configuration", err)
	}
	if cfg == nil || cfg.CollectorURL == "" {
		return out.Error("No collector configured, run 'edgekitctl login' first", nil)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	sink := telemetry.NewWSSink(cfg.CollectorURL, cfg.APIKey)
	defer sink.Close()

	batch := telemetry.Batch{
		ID:       uuid.NewString(),
		Events:   []telemetry.Event{telemetry.NewEvent("collector_ping", nil)},
		Metadata: telemetry.DeviceMetadata{}.Metadata(),
		SentAt:   time.Now().UTC(),
	}
	if cfg.DeviceID != "" {
		batch.Metadata["device_id"] = cfg.DeviceID
	}

	if err := sink.Send(ctx, batch); err != nil {
		return out.Error("Collector unreachable", err)
	}
	return out.Success("Collector reachable", map[string]interface{}{
		"batch_id": batch.ID,
	})
}
