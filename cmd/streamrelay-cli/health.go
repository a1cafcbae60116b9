package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Check the health status of the relay. Exits non-zero when unhealthy.",
		RunE:  runHealth,
	}

	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	w := out(cmd)
	fmt.Fprintf(w, "Checking health of %s...\n", serverURL)

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Healthy {
		fmt.Fprintf(w, "✅ Relay is healthy!\n")
	} else {
		fmt.Fprintf(w, "❌ Relay is not healthy!\n")
	}
	fmt.Fprintf(w, "Source: %s (healthy: %t)\n", health.Source, health.SourceHealthy)
	fmt.Fprintf(w, "Connected Clients: %d\n", health.ConnectedClients)
	fmt.Fprintf(w, "Subscriptions: %d\n", health.Subscriptions)
	fmt.Fprintf(w, "Events Received: %d\n", health.EventsReceived)
	fmt.Fprintf(w, "Events Dropped: %d\n", health.EventsDropped)
	if health.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", health.Message)
	}

	if !health.Healthy {
		return fmt.Errorf("relay is unhealthy")
	}
	return nil
}
