package main

import (
	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/market"
	"github.com/groblegark/agora/internal/model"
)

var offerCmd = &cobra.Command{
	Use:     "offer",
	Short:   "Post and browse offers",
	GroupID: "market",
}

var offerCreateFlags struct {
	title        string
	description  string
	capabilities []string
	availability string
	org          string
}

var offerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Post an offer (active immediately)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		off := model.Offer{
			Title:        offerCreateFlags.title,
			Description:  offerCreateFlags.description,
			Capabilities: offerCreateFlags.capabilities,
			Availability: offerCreateFlags.availability,
		}
		if offerCreateFlags.org != "" {
			org := ledger.Ref(offerCreateFlags.org)
			off.Organization = &org
		}
		ent, err := mkt.CreateOffer(actorContext(), off)
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

var offerListAll bool
var offerListOrg string

var offerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := market.ActiveOffers()
		switch {
		case offerListOrg != "":
			scope = market.OffersBy(ledger.Ref(offerListOrg))
		case offerListAll:
			scope = entity.All[model.Offer]()
		}
		seq, err := mkt.Offers.List(actorContext(), scope)
		if err != nil {
			return err
		}
		var offers []entity.Entity[model.Offer]
		for ent := range seq {
			offers = append(offers, ent)
		}
		return printOffers(offers)
	},
}

var offerShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.Offers.GetLatest(actorContext(), ledger.Ref(args[0]))
		if err := tolerateConflict(err); err != nil {
			return err
		}
		return printEntity(ent)
	},
}

var offerArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Remove an offer from active listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.ArchiveOffer(actorContext(), ledger.Ref(args[0]))
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

func init() {
	f := offerCreateCmd.Flags()
	f.StringVar(&offerCreateFlags.title, "title", "", "offer title")
	f.StringVar(&offerCreateFlags.description, "description", "", "what is offered")
	f.StringSliceVar(&offerCreateFlags.capabilities, "capabilities", nil, "capabilities (comma separated)")
	f.StringVar(&offerCreateFlags.availability, "availability", "", "when the offer is available")
	f.StringVar(&offerCreateFlags.org, "org", "", "post on behalf of this organization")
	_ = offerCreateCmd.MarkFlagRequired("title")
	_ = offerCreateCmd.MarkFlagRequired("description")
	_ = offerCreateCmd.MarkFlagRequired("capabilities")

	offerListCmd.Flags().BoolVar(&offerListAll, "all", false, "include archived offers")
	offerListCmd.Flags().StringVar(&offerListOrg, "org", "", "only offers of this organization")

	offerCmd.AddCommand(offerCreateCmd)
	offerCmd.AddCommand(offerListCmd)
	offerCmd.AddCommand(offerShowCmd)
	offerCmd.AddCommand(offerArchiveCmd)
}
