package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/bus"
	"github.com/groblegark/agora/internal/config"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/ledger/memory"
	"github.com/groblegark/agora/internal/ledger/natsrpc"
	"github.com/groblegark/agora/internal/ledger/pg"
	"github.com/groblegark/agora/internal/market"
	"github.com/groblegark/agora/internal/ui"
)

var (
	agent      string
	remoteURL  string
	jsonOutput bool

	cfg         *config.Config
	mkt         *market.Market
	stopForward func()
	closers     []func()
)

func defaultAgent() string {
	if a := os.Getenv("AGORA_AGENT"); a != "" {
		return a
	}
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "anonymous"
}

func defaultRemote() string {
	if u := os.Getenv("AGORA_NATS_URL"); u != "" {
		return u
	}
	return activeRemoteNATSURL()
}

// actorContext carries the acting agent into every store call.
func actorContext() context.Context {
	return ledger.WithAuthor(context.Background(), agent)
}

// buildMarket wires the market over either a remote RPC caller or a local
// ledger backend, per flags and environment.
func buildMarket() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	var caller ledger.Caller
	switch {
	case remoteURL != "":
		client, cerr := natsrpc.NewClient(remoteURL)
		if cerr != nil {
			return fmt.Errorf("connecting to remote: %w", cerr)
		}
		closers = append(closers, func() { _ = client.Close() })
		caller = client
	case cfg.Ledger == config.LedgerPostgres:
		store, serr := pg.New(cfg.DatabaseURL)
		if serr != nil {
			return fmt.Errorf("opening ledger database: %w", serr)
		}
		closers = append(closers, func() { _ = store.Close() })
		caller = store
	default:
		caller = memory.New()
	}

	mkt = market.New(market.Options{Caller: caller, CacheTTL: cfg.CacheTTL})

	// Forward local events to NATS so watchers on other processes see them.
	if cfg.NATSURL != "" {
		pub, perr := bus.NewNATSPublisher(cfg.NATSURL)
		if perr != nil {
			return fmt.Errorf("connecting to NATS: %w", perr)
		}
		closers = append(closers, func() { _ = pub.Close() })
		stopForward = bus.Forward(mkt.Bus, pub, bus.AllTopics...)
	}
	return nil
}

// needsMarket reports whether cmd talks to the marketplace. Profile edits,
// the server, and cobra's own commands run without a ledger connection.
func needsMarket(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "remote", "serve", "watch", "help", "completion":
			return false
		}
	}
	return true
}

var rootCmd = &cobra.Command{
	Use:   "agora <command>",
	Short: "CLI client for the agora marketplace",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		if !needsMarket(cmd) {
			return nil
		}
		return buildMarket()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopForward != nil {
			stopForward()
		}
		for _, c := range closers {
			c()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&agent, "agent", defaultAgent(), "acting agent identity")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", defaultRemote(), "NATS URL of a remote agora server (empty = local backend)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "market", Title: "Marketplace:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Marketplace
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(orgCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(offerCmd)
	rootCmd.AddCommand(catalogCmd)

	// Administration
	rootCmd.AddCommand(adminCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
