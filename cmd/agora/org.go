package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/model"
)

var orgCmd = &cobra.Command{
	Use:     "org",
	Short:   "Manage organizations",
	GroupID: "market",
}

var orgCreateFlags struct {
	name        string
	legalName   string
	email       string
	description string
	location    string
	urls        []string
}

var orgCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an organization with you as coordinator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.CreateOrganization(actorContext(), model.Organization{
			Name:          orgCreateFlags.name,
			FullLegalName: orgCreateFlags.legalName,
			Email:         orgCreateFlags.email,
			Description:   orgCreateFlags.description,
			Location:      orgCreateFlags.location,
			URLs:          orgCreateFlags.urls,
		})
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible organizations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := mkt.Organizations.List(actorContext(), entity.All[model.Organization]())
		if err != nil {
			return err
		}
		var orgs []entity.Entity[model.Organization]
		for ent := range seq {
			orgs = append(orgs, ent)
		}
		return printOrganizations(orgs)
	},
}

var orgShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an organization and its membership",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := actorContext()
		org := ledger.Ref(args[0])

		ent, err := mkt.Organizations.GetLatest(ctx, org)
		if err := tolerateConflict(err); err != nil {
			return err
		}
		if err := printEntity(ent); err != nil {
			return err
		}

		ms, err := mkt.MembershipOf(ctx, org)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(ms)
		}
		fmt.Printf("coordinators: %s\n", joinList(ms.Value.Coordinators))
		fmt.Printf("members:      %s\n", joinList(ms.Value.Members))
		return nil
	},
}

var orgMemberCmd = &cobra.Command{
	Use:   "member",
	Short: "Edit the member roster",
}

var orgMemberAddCmd = &cobra.Command{
	Use:   "add <org-id> <agent>",
	Short: "Add a member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mkt.AddMember(actorContext(), ledger.Ref(args[0]), args[1])
	},
}

var orgMemberRemoveCmd = &cobra.Command{
	Use:   "remove <org-id> <agent>",
	Short: "Remove a member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mkt.RemoveMember(actorContext(), ledger.Ref(args[0]), args[1])
	},
}

var orgCoordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Edit the coordinator roster",
}

var orgCoordinatorAddCmd = &cobra.Command{
	Use:   "add <org-id> <agent>",
	Short: "Promote an agent to coordinator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mkt.AddCoordinator(actorContext(), ledger.Ref(args[0]), args[1])
	},
}

var orgCoordinatorRemoveCmd = &cobra.Command{
	Use:   "remove <org-id> <agent>",
	Short: "Demote a coordinator to member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mkt.RemoveCoordinator(actorContext(), ledger.Ref(args[0]), args[1])
	},
}

func init() {
	f := orgCreateCmd.Flags()
	f.StringVar(&orgCreateFlags.name, "name", "", "organization name")
	f.StringVar(&orgCreateFlags.legalName, "legal-name", "", "full legal name")
	f.StringVar(&orgCreateFlags.email, "email", "", "contact email")
	f.StringVar(&orgCreateFlags.description, "description", "", "short description")
	f.StringVar(&orgCreateFlags.location, "location", "", "location")
	f.StringSliceVar(&orgCreateFlags.urls, "url", nil, "website URLs (repeatable)")
	_ = orgCreateCmd.MarkFlagRequired("name")
	_ = orgCreateCmd.MarkFlagRequired("legal-name")
	_ = orgCreateCmd.MarkFlagRequired("email")

	orgMemberCmd.AddCommand(orgMemberAddCmd)
	orgMemberCmd.AddCommand(orgMemberRemoveCmd)
	orgCoordinatorCmd.AddCommand(orgCoordinatorAddCmd)
	orgCoordinatorCmd.AddCommand(orgCoordinatorRemoveCmd)

	orgCmd.AddCommand(orgCreateCmd)
	orgCmd.AddCommand(orgListCmd)
	orgCmd.AddCommand(orgShowCmd)
	orgCmd.AddCommand(orgMemberCmd)
	orgCmd.AddCommand(orgCoordinatorCmd)
}
