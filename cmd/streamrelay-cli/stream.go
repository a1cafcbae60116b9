package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmacdonaldsmith/streamrelay/pkg/httpclient"
	"github.com/spf13/cobra"
)

func newStreamCommand() *cobra.Command {
	var (
		patterns     []string
		bufferSize   int
		prettyFormat bool
		limit        int
		maxRetries   int
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream events matching wildcard patterns",
		Long: `Stream events from the relay over its websocket endpoint.
Each --pattern is matched against the event key; '*' matches any run of characters.
Press Ctrl+C to stop streaming.`,
		Example: `  streamrelay-cli stream --pattern '*.wikipedia.org'
  streamrelay-cli stream --pattern en.wikipedia.org --pattern commons.wikimedia.org --pretty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, patterns, bufferSize, maxRetries, prettyFormat, limit)
		},
	}

	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Wildcard pattern to subscribe to (repeatable)")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 100, "Event buffer size")
	cmd.Flags().BoolVar(&prettyFormat, "pretty", false, "Pretty print JSON payloads")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many events (0 = unlimited)")
	cmd.Flags().IntVar(&maxRetries, "max-reconnects", 0, "Give up after this many consecutive failed reconnects (0 = never)")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func runStream(cmd *cobra.Command, patterns []string, bufferSize, maxRetries int, prettyFormat bool, limit int) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := out(cmd)
	fmt.Fprintf(cmd.ErrOrStderr(), "🌊 Streaming from %s (patterns: %v)\n", serverURL, patterns)

	streamClient, err := client.Stream(ctx, httpclient.StreamConfig{
		Patterns:             patterns,
		BufferSize:           bufferSize,
		MaxReconnectAttempts: maxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}
	defer streamClient.Close()

	received := 0
	for {
		select {
		case ev, ok := <-streamClient.Events():
			if !ok {
				return nil
			}
			if err := printEvent(w, ev, prettyFormat); err != nil {
				return err
			}
			received++
			if limit > 0 && received >= limit {
				return nil
			}
		case err, ok := <-streamClient.Errors():
			if ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v\n", err)
			}
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "\n🛑 Stopping stream...")
			return nil
		}
	}
}

func printEvent(w io.Writer, ev httpclient.Event, pretty bool) error {
	data := []byte(ev.Data)
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err == nil {
			data = buf.Bytes()
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", data)
	return err
}

