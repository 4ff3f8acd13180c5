package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// Remote is one named server profile.
type Remote struct {
	// URL is the NATS URL the server answers RPC on.
	URL string `toml:"url"`
}

// RemotesConfig is the on-disk profile store at
// ~/.local/state/agora/remotes.toml.
type RemotesConfig struct {
	Active  string            `toml:"active,omitempty"`
	Remotes map[string]Remote `toml:"remotes"`
}

func remotesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "agora", "remotes.toml"), nil
}

func loadRemotes() (*RemotesConfig, error) {
	path, err := remotesPath()
	if err != nil {
		return nil, err
	}
	cfg := &RemotesConfig{Remotes: make(map[string]Remote)}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]Remote)
	}
	return cfg, nil
}

func saveRemotes(cfg *RemotesConfig) error {
	path, err := remotesPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

var activeRemoteOnce sync.Once
var activeRemoteURL string

// activeRemoteNATSURL returns the URL of the active profile, or "" when no
// profile is active or the file is unreadable. Flag parsing runs before any
// command, so errors here stay silent; `agora remote list` surfaces them.
func activeRemoteNATSURL() string {
	activeRemoteOnce.Do(func() {
		cfg, err := loadRemotes()
		if err != nil || cfg.Active == "" {
			return
		}
		if r, ok := cfg.Remotes[cfg.Active]; ok {
			activeRemoteURL = r.URL
		}
	})
	return activeRemoteURL
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage server profiles",
	GroupID: "system",
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <nats-url>",
	Short: "Add a server profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		name := args[0]
		cfg.Remotes[name] = Remote{URL: args[1]}
		if cfg.Active == "" {
			cfg.Active = name
		}
		if err := saveRemotes(cfg); err != nil {
			return err
		}
		fmt.Printf("added remote %q (%s)\n", name, args[1])
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Select the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		name := args[0]
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("unknown remote %q", name)
		}
		cfg.Active = name
		if err := saveRemotes(cfg); err != nil {
			return err
		}
		fmt.Printf("active remote is now %q\n", name)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		name := args[0]
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("unknown remote %q", name)
		}
		delete(cfg.Remotes, name)
		if cfg.Active == name {
			cfg.Active = ""
		}
		if err := saveRemotes(cfg); err != nil {
			return err
		}
		fmt.Printf("removed remote %q\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		if len(cfg.Remotes) == 0 {
			fmt.Println("no remotes configured")
			return nil
		}
		names := make([]string, 0, len(cfg.Remotes))
		for name := range cfg.Remotes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			marker := " "
			if name == cfg.Active {
				marker = "*"
			}
			fmt.Printf("%s %s\t%s\n", marker, name, cfg.Remotes[name].URL)
		}
		return nil
	},
}

func init() {
	remoteCmd.AddCommand(remoteAddCmd)
	remoteCmd.AddCommand(remoteUseCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
	remoteCmd.AddCommand(remoteListCmd)
}
