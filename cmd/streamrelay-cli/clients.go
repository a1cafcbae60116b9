package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newClientsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List connected clients and their patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClients(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw JSON response")

	return cmd
}

func runClients(cmd *cobra.Command, jsonOutput bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.ListClients(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out(cmd))
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Clients) == 0 {
		fmt.Fprintln(out(cmd), "No connected clients")
		return nil
	}

	tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREMOTE\tCONNECTED\tPATTERNS")
	for _, c := range resp.Clients {
		patterns := strings.Join(c.Subscriptions, ",")
		if patterns == "" {
			patterns = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.RemoteAddr, c.ConnectedAt.Format(time.RFC3339), patterns)
	}
	return tw.Flush()
}
