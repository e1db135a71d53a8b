package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/edgekit-ai/edgekit/internal/bootstrap"
	"github.com/edgekit-ai/edgekit/internal/validate"
)

func newLoginCommand() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:           "login",
		Short:         "Configure the analytics collector for this device",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          bootstrapLogin,
	}
	loginCmd.Flags().String("url", "", "Collector endpoint (ws:// or wss://)")
	loginCmd.Flags().String("key", "", "API key to store for authenticated delivery")
	loginCmd.Flags().String("device-id", "", "Stable device identifier reported with every batch")
	loginCmd.Flags().String("name", "", "Optional label for this device")
	loginCmd.Flags().Bool("disable-telemetry", false, "Store the collector but keep telemetry off")
	loginCmd.Flags().Bool("show", false, "Display stored collector configuration")
	loginCmd.Flags().Bool("clear", false, "Remove stored collector configuration")
	return loginCmd
}

func bootstrapLogin(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	show, _ := cmd.Flags().GetBool("show")
	clear, _ := cmd.Flags().GetBool("clear")

	if show {
		for _, name := range []string{"url", "key", "device-id", "name", "disable-telemetry", "clear"} {
			if cmd.Flags().Changed(name) {
				return out.Error("--show cannot be combined with other login flags", nil)
			}
		}
		return showBootstrap(out)
	}

	if clear {
		if err := bootstrap.Remove(); err != nil {
			return out.Error("Failed to remove collector configuration", err)
		}
		return out.Success("Collector configuration removed", nil)
	}

	rawURL, _ := cmd.Flags().GetString("url")
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return out.Error("--url is required", nil)
	}
	if err := validate.WSURL(rawURL); err != nil {
		return out.Error("Collector URL must be a ws:// or wss:// endpoint", err)
	}

	apiKey, _ := cmd.Flags().GetString("key")
	if apiKey == "" {
		var err error
		apiKey, err = promptAPIKey()
		if err != nil {
			return out.Error("Failed to read API key", err)
		}
	}

	deviceID, _ := cmd.Flags().GetString("device-id")
	deviceID = strings.TrimSpace(deviceID)
	if deviceID != "" && !validate.Ident(deviceID) {
		return out.Error("Device ID must be alphanumeric with dots, hyphens or underscores", nil)
	}
	name, _ := cmd.Flags().GetString("name")
	disabled, _ := cmd.Flags().GetBool("disable-telemetry")

	cfg := &bootstrap.Config{
		CollectorURL: rawURL,
		APIKey:       strings.TrimSpace(apiKey),
		DeviceID:     deviceID,
		Telemetry:    !disabled,
	}
	if name != "" {
		cfg.Metadata = &bootstrap.MetaSection{Name: name}
	}

	if err := bootstrap.Save(cfg); err != nil {
		return out.Error("Failed to save collector configuration", err)
	}
	return out.Success("Collector configured", map[string]interface{}{
		"path": bootstrap.Path(),
	})
}

// promptAPIKey reads the key without echo when stdin is a terminal.
func promptAPIKey() (string, error) {
	if !terminal.IsTerminal(0) {
		return "", fmt.Errorf("no API key provided and stdin is not a terminal")
	}
	fmt.Print("API key (leave empty for none): ")
	key, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(key), nil
}

func showBootstrap(out *OutputFormatter) error {
	cfg, err := bootstrap.Load()
	if err != nil {
		return out.Error("Failed to read collector configuration", err)
	}

	info := map[string]interface{}{
		"path":       bootstrap.Path(),
		"configured": cfg != nil,
	}
	if cfg != nil {
		info["collector_url"] = cfg.CollectorURL
		info["key_configured"] = strings.TrimSpace(cfg.APIKey) != ""
		info["telemetry_enabled"] = cfg.Telemetry
		if cfg.DeviceID != "" {
			info["device_id"] = cfg.DeviceID
		}
		if !cfg.UpdatedAt.IsZero() {
			info["updated_at"] = cfg.UpdatedAt.Format(time.RFC3339)
		}
		if cfg.Metadata != nil && cfg.Metadata.Name != "" {
			info["name"] = cfg.Metadata.Name
		}
	}
	return out.Print(info)
}
