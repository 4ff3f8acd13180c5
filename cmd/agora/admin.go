package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/ledger"
)

var adminCmd = &cobra.Command{
	Use:     "admin",
	Short:   "Moderate entities and manage roles",
	GroupID: "admin",
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := mkt.Status.Approve(actorContext(), ledger.Ref(args[0]))
		if err != nil {
			return err
		}
		return printResolvedStatus(res)
	},
}

var rejectReason string

var adminRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := mkt.Status.Reject(actorContext(), ledger.Ref(args[0]), rejectReason)
		if err != nil {
			return err
		}
		return printResolvedStatus(res)
	},
}

var adminReinstateCmd = &cobra.Command{
	Use:   "reinstate <id>",
	Short: "Return any entity to accepted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := mkt.Status.Reinstate(actorContext(), ledger.Ref(args[0]))
		if err != nil {
			return err
		}
		return printResolvedStatus(res)
	},
}

var suspendFlags struct {
	duration time.Duration
	reason   string
}

var adminSuspendCmd = &cobra.Command{
	Use:   "suspend <id>",
	Short: "Suspend an accepted entity",
	Long:  "Suspend an accepted entity. With --for the suspension lifts itself after the given duration; without it the suspension lasts until an administrator reinstates the entity.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := actorContext()
		subject := ledger.Ref(args[0])
		if suspendFlags.duration > 0 {
			res, err := mkt.Status.SuspendTemporarily(ctx, subject, time.Now().Add(suspendFlags.duration), suspendFlags.reason)
			if err != nil {
				return err
			}
			return printResolvedStatus(res)
		}
		res, err := mkt.Status.SuspendIndefinitely(ctx, subject, suspendFlags.reason)
		if err != nil {
			return err
		}
		return printResolvedStatus(res)
	},
}

var adminStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show an entity's moderation status and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := mkt.Status.Get(actorContext(), ledger.Ref(args[0]))
		if err != nil {
			return err
		}
		return printResolvedStatus(res)
	},
}

var adminRoleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage the administrator and moderator roster",
}

var adminRoleGrantCmd = &cobra.Command{
	Use:   "grant <administrator|moderator> <agent>",
	Short: "Grant a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := actorContext()
		switch args[0] {
		case "administrator":
			return mkt.Status.AddAdministrator(ctx, args[1])
		case "moderator":
			return mkt.Status.AddModerator(ctx, args[1])
		}
		return cmd.Usage()
	},
}

var adminRoleRevokeCmd = &cobra.Command{
	Use:   "revoke <administrator|moderator> <agent>",
	Short: "Revoke a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := actorContext()
		switch args[0] {
		case "administrator":
			return mkt.Status.RemoveAdministrator(ctx, args[1])
		case "moderator":
			return mkt.Status.RemoveModerator(ctx, args[1])
		}
		return cmd.Usage()
	},
}

func init() {
	adminRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the entity is rejected")

	adminSuspendCmd.Flags().DurationVar(&suspendFlags.duration, "for", 0, "suspension duration (e.g. 72h); omit for indefinite")
	adminSuspendCmd.Flags().StringVar(&suspendFlags.reason, "reason", "", "why the entity is suspended")

	adminRoleCmd.AddCommand(adminRoleGrantCmd)
	adminRoleCmd.AddCommand(adminRoleRevokeCmd)

	adminCmd.AddCommand(adminApproveCmd)
	adminCmd.AddCommand(adminRejectCmd)
	adminCmd.AddCommand(adminReinstateCmd)
	adminCmd.AddCommand(adminSuspendCmd)
	adminCmd.AddCommand(adminStatusCmd)
	adminCmd.AddCommand(adminRoleCmd)
}
