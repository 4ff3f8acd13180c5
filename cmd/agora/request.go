package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/market"
	"github.com/groblegark/agora/internal/model"
)

var requestCmd = &cobra.Command{
	Use:     "request",
	Short:   "Post and browse requests",
	GroupID: "market",
}

var requestCreateFlags struct {
	title       string
	description string
	skills      []string
	status      string
	org         string
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Post a request (draft by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := model.Request{
			Title:       requestCreateFlags.title,
			Description: requestCreateFlags.description,
			Skills:      requestCreateFlags.skills,
			Status:      model.RequestStatus(requestCreateFlags.status),
		}
		if requestCreateFlags.org != "" {
			org := ledger.Ref(requestCreateFlags.org)
			req.Organization = &org
		}
		ent, err := mkt.CreateRequest(actorContext(), req)
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

var requestListAll bool
var requestListOrg string

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := market.PublishedRequests()
		switch {
		case requestListOrg != "":
			scope = market.RequestsBy(ledger.Ref(requestListOrg))
		case requestListAll:
			scope = entity.All[model.Request]()
		}
		seq, err := mkt.Requests.List(actorContext(), scope)
		if err != nil {
			return err
		}
		var reqs []entity.Entity[model.Request]
		for ent := range seq {
			reqs = append(reqs, ent)
		}
		return printRequests(reqs)
	},
}

var requestShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.Requests.GetLatest(actorContext(), ledger.Ref(args[0]))
		if err := tolerateConflict(err); err != nil {
			return err
		}
		return printEntity(ent)
	},
}

// setRequestStatus rebases once on a concurrent edit before giving up.
func setRequestStatus(original ledger.Ref, to model.RequestStatus) error {
	ctx := actorContext()
	for attempt := 0; ; attempt++ {
		ent, err := mkt.Requests.GetLatest(ctx, original)
		if err := tolerateConflict(err); err != nil {
			return err
		}
		value := ent.Value
		value.Status = to
		_, err = mkt.Requests.Update(ctx, original, ent.Head, value)
		var stale *entity.StaleWriteError
		if errors.As(err, &stale) && attempt == 0 {
			continue
		}
		return err
	}
}

var requestPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a draft request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRequestStatus(ledger.Ref(args[0]), model.RequestPublished)
	},
}

var requestStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move a request through its lifecycle",
	Long:  "Set a request's status to one of: draft, published, in_progress, completed, cancelled.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to := model.RequestStatus(args[1])
		if !to.IsValid() {
			return fmt.Errorf("unknown request status %q", args[1])
		}
		return setRequestStatus(ledger.Ref(args[0]), to)
	},
}

func init() {
	f := requestCreateCmd.Flags()
	f.StringVar(&requestCreateFlags.title, "title", "", "request title")
	f.StringVar(&requestCreateFlags.description, "description", "", "what is needed")
	f.StringSliceVar(&requestCreateFlags.skills, "skills", nil, "skills needed (comma separated)")
	f.StringVar(&requestCreateFlags.status, "status", "", "initial status (defaults to draft)")
	f.StringVar(&requestCreateFlags.org, "org", "", "post on behalf of this organization")
	_ = requestCreateCmd.MarkFlagRequired("title")
	_ = requestCreateCmd.MarkFlagRequired("description")
	_ = requestCreateCmd.MarkFlagRequired("skills")

	requestListCmd.Flags().BoolVar(&requestListAll, "all", false, "include drafts and finished requests")
	requestListCmd.Flags().StringVar(&requestListOrg, "org", "", "only requests of this organization")

	requestCmd.AddCommand(requestCreateCmd)
	requestCmd.AddCommand(requestListCmd)
	requestCmd.AddCommand(requestShowCmd)
	requestCmd.AddCommand(requestPublishCmd)
	requestCmd.AddCommand(requestStatusCmd)
}
