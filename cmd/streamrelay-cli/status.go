package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the number of connected clients",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out(cmd), "Connected Clients: %d\n", status.ConnectedClients)
	return nil
}
