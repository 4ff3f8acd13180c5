package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/bus"
	"github.com/groblegark/agora/internal/config"
	"github.com/groblegark/agora/internal/ui"
)

var watchTopic string

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream marketplace events from NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := remoteURL
		if url == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			url = cfg.NATSURL
		}
		if url == "" {
			return fmt.Errorf("no NATS URL: set --remote, AGORA_NATS_URL, or an active remote profile")
		}

		sub, err := bus.NewNATSSubscriber(url,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				fmt.Fprintf(os.Stderr, "%s\n", ui.RenderMuted(fmt.Sprintf("disconnected: %v", err)))
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				fmt.Fprintln(os.Stderr, ui.RenderMuted("reconnected"))
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(watchTopic)
		if err != nil {
			return err
		}
		defer cancel()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		fmt.Fprintf(os.Stderr, "watching %s on %s\n", watchTopic, url)
		for {
			select {
			case <-sig:
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(data)
			}
		}
	},
}

// printEvent shows one forwarded event, one line per event. Raw JSON in
// --json mode, a timestamped compact form otherwise.
func printEvent(data []byte) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}
	ts := time.Now().Format("15:04:05")
	var compact map[string]any
	if err := json.Unmarshal(data, &compact); err != nil {
		fmt.Printf("%s %s\n", ui.RenderMuted(ts), string(data))
		return
	}
	line, _ := json.Marshal(compact)
	fmt.Printf("%s %s\n", ui.RenderMuted(ts), line)
}

func init() {
	watchCmd.Flags().StringVar(&watchTopic, "topic", "agora.>", "NATS subject filter")
}
