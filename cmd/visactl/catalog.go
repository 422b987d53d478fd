package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
)

func newCountriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List catalog countries and their visa types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			countries := svc.Countries()
			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), countries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COUNTRY\tVISA TYPES")
			for _, c := range countries {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, strings.Join(c.VisaTypes, ", "))
			}
			return tw.Flush()
		},
	}
}

func newVisasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "visas <country>",
		Short: "List the visa types of one country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			visas, err := svc.Visas(args[0])
			if err != nil {
				return err
			}
			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), visas)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VISA TYPE\tPASSING\tPURPOSES\tDESCRIPTION")
			for _, v := range visas {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", v.VisaType, v.PassingScore, strings.Join(v.Purposes, ","), v.Description)
			}
			return tw.Flush()
		},
	}
}

func newRequirementsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "requirements <country> <visa-type>",
		Short: "Show the scored requirements and documents of one visa",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			def, err := svc.Requirements(args[0], args[1])
			if err != nil {
				return err
			}
			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), def)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s / %s (passing score %d)\n", def.Country, def.VisaType, def.PassingScore)
			if def.Description != "" {
				fmt.Fprintln(out, def.Description)
			}
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REQUIREMENT\tWEIGHT\tREQUIRED")
			for _, r := range def.Requirements {
				fmt.Fprintf(tw, "%s\t%.0f\t%t\n", r.Kind, r.Weight, r.Required)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nRequired documents: %s\n", strings.Join(def.RequiredDocuments, ", "))
			if len(def.OptionalDocuments) > 0 {
				fmt.Fprintf(out, "Optional documents: %s\n", strings.Join(def.OptionalDocuments, ", "))
			}
			for _, src := range def.OfficialSources {
				fmt.Fprintf(out, "Source: %s\n", src.URL)
			}
			return nil
		},
	}
}

func newSuggestCmd(opts *options) *cobra.Command {
	var (
		country   string
		purpose   string
		applicant applicantFlags
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest visas for a travel purpose",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}

			var in *service.ApplicantInput
			if applicant.set() {
				a, err := applicant.input()
				if err != nil {
					return err
				}
				in = &a
			}

			suggestions, err := svc.Suggest(country, purpose, in)
			if err != nil {
				return err
			}
			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), suggestions)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COUNTRY\tVISA TYPE\tPASSING\tSCORE")
			for _, s := range suggestions {
				score := "-"
				if s.Score != nil {
					score = fmt.Sprintf("%.1f", s.NormalizedScore)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Country, s.VisaType, s.PassingScore, score)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "Restrict suggestions to one country")
	cmd.Flags().StringVar(&purpose, "purpose", "", "Travel purpose, e.g. work, job_seeking, skilled_migration")
	_ = cmd.MarkFlagRequired("purpose")
	applicant.register(cmd)
	return cmd
}
