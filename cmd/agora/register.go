package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/model"
)

var registerFlags struct {
	name     string
	nickname string
	email    string
	userType string
	bio      string
	location string
	timeZone string
	skills   []string
}

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create your user profile",
	GroupID: "market",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := model.User{
			Name:     registerFlags.name,
			Nickname: registerFlags.nickname,
			Email:    registerFlags.email,
			Type:     model.UserType(registerFlags.userType),
			Bio:      registerFlags.bio,
			Location: registerFlags.location,
			TimeZone: registerFlags.timeZone,
			Skills:   registerFlags.skills,
		}
		ent, progenitor, err := mkt.RegisterUser(actorContext(), u)
		if err != nil {
			return err
		}
		if err := printEntity(ent); err != nil {
			return err
		}
		if !jsonOutput {
			if progenitor {
				fmt.Println("you are the first participant and are now the administrator")
			} else {
				fmt.Println("profile created; awaiting administrator approval")
			}
		}
		return nil
	},
}

func init() {
	f := registerCmd.Flags()
	f.StringVar(&registerFlags.name, "name", "", "full name")
	f.StringVar(&registerFlags.nickname, "nickname", "", "short handle")
	f.StringVar(&registerFlags.email, "email", "", "contact email")
	f.StringVar(&registerFlags.userType, "type", string(model.UserTypeAdvocate), "participant type (advocate|creator)")
	f.StringVar(&registerFlags.bio, "bio", "", "short bio")
	f.StringVar(&registerFlags.location, "location", "", "location")
	f.StringVar(&registerFlags.timeZone, "timezone", "", "time zone")
	f.StringSliceVar(&registerFlags.skills, "skills", nil, "skills (comma separated)")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("nickname")
	_ = registerCmd.MarkFlagRequired("email")
}
