package main

import (
	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/market"
	"github.com/groblegark/agora/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:     "catalog",
	Short:   "Browse and extend the shared vocabularies",
	GroupID: "market",
}

var catalogAll bool

var catalogServiceTypesCmd = &cobra.Command{
	Use:   "service-types",
	Short: "List approved service types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := actorContext()
		scope := market.Approved[model.ServiceType](ctx, mkt.Status)
		if catalogAll {
			scope = entity.All[model.ServiceType]()
		}
		seq, err := mkt.ServiceTypes.List(ctx, scope)
		if err != nil {
			return err
		}
		var types []entity.Entity[model.ServiceType]
		for ent := range seq {
			types = append(types, ent)
		}
		return printServiceTypes(types)
	},
}

var suggestServiceTypeFlags struct {
	name        string
	description string
	technical   bool
}

var catalogSuggestServiceTypeCmd = &cobra.Command{
	Use:   "suggest-service-type",
	Short: "Propose a new service type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.SuggestServiceType(actorContext(), model.ServiceType{
			Name:        suggestServiceTypeFlags.name,
			Description: suggestServiceTypeFlags.description,
			Technical:   suggestServiceTypeFlags.technical,
		})
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

var catalogMediumsCmd = &cobra.Command{
	Use:   "mediums",
	Short: "List approved mediums of exchange",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := actorContext()
		scope := market.Approved[model.MediumOfExchange](ctx, mkt.Status)
		if catalogAll {
			scope = entity.All[model.MediumOfExchange]()
		}
		seq, err := mkt.Mediums.List(ctx, scope)
		if err != nil {
			return err
		}
		var mediums []entity.Entity[model.MediumOfExchange]
		for ent := range seq {
			mediums = append(mediums, ent)
		}
		return printMediums(mediums)
	},
}

var suggestMediumFlags struct {
	code        string
	name        string
	description string
}

var catalogSuggestMediumCmd = &cobra.Command{
	Use:   "suggest-medium",
	Short: "Propose a new medium of exchange",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ent, err := mkt.SuggestMediumOfExchange(actorContext(), model.MediumOfExchange{
			Code:        suggestMediumFlags.code,
			Name:        suggestMediumFlags.name,
			Description: suggestMediumFlags.description,
		})
		if err != nil {
			return err
		}
		return printEntity(ent)
	},
}

func init() {
	catalogCmd.PersistentFlags().BoolVar(&catalogAll, "all", false, "include pending and rejected entries")

	f := catalogSuggestServiceTypeCmd.Flags()
	f.StringVar(&suggestServiceTypeFlags.name, "name", "", "service type name")
	f.StringVar(&suggestServiceTypeFlags.description, "description", "", "what the category covers")
	f.BoolVar(&suggestServiceTypeFlags.technical, "technical", false, "mark as a technical category")
	_ = catalogSuggestServiceTypeCmd.MarkFlagRequired("name")
	_ = catalogSuggestServiceTypeCmd.MarkFlagRequired("description")

	g := catalogSuggestMediumCmd.Flags()
	g.StringVar(&suggestMediumFlags.code, "code", "", "unique code, e.g. EUR")
	g.StringVar(&suggestMediumFlags.name, "name", "", "human-readable name")
	g.StringVar(&suggestMediumFlags.description, "description", "", "description")
	_ = catalogSuggestMediumCmd.MarkFlagRequired("code")
	_ = catalogSuggestMediumCmd.MarkFlagRequired("name")

	catalogCmd.AddCommand(catalogServiceTypesCmd)
	catalogCmd.AddCommand(catalogSuggestServiceTypeCmd)
	catalogCmd.AddCommand(catalogMediumsCmd)
	catalogCmd.AddCommand(catalogSuggestMediumCmd)
}
