package main

import (
	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/model"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Inspect user profiles",
	GroupID: "market",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := mkt.Users.List(actorContext(), entity.All[model.User]())
		if err != nil {
			return err
		}
		var users []entity.Entity[model.User]
		for ent := range seq {
			users = append(users, ent)
		}
		return printUsers(users)
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.Users.GetLatest(actorContext(), ledger.Ref(args[0]))
		if err := tolerateConflict(err); err != nil {
			return err
		}
		return printEntity(ent)
	},
}

var userMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your own profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.UserOf(actorContext(), agent)
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

func init() {
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userMeCmd)
}
