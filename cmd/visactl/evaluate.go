package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
)

func newEvaluateCmd(opts *options) *cobra.Command {
	var (
		applicant applicantFlags
		documents []string
	)

	cmd := &cobra.Command{
		Use:   "evaluate <country> <visa-type>",
		Short: "Score one applicant for one visa",
		Long: `Score one applicant for one visa.

A visa type the catalog does not model is scored against the default
requirement set and flagged in the output.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			in, err := applicant.input()
			if err != nil {
				return err
			}
			in.Documents = documents

			eval, err := svc.Evaluate(context.Background(), service.EvaluateInput{
				ApplicantInput: in,
				Country:        args[0],
				VisaType:       args[1],
			})
			if err != nil {
				return err
			}
			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), eval)
			}
			return printEvaluation(cmd.OutOrStdout(), eval)
		},
	}

	applicant.register(cmd)
	cmd.Flags().StringSliceVar(&documents, "documents", nil, "Document kinds submitted besides the extraction, e.g. resume,degree")
	return cmd
}

func printEvaluation(w io.Writer, eval *service.Evaluation) error {
	r := eval.Result
	verdict := "NOT PASSING"
	if r.IsPassing {
		verdict = "PASSING"
	}

	fmt.Fprintf(w, "%s / %s\n", r.Country, r.VisaType)
	if r.UsedDefaultRequirements {
		fmt.Fprintln(w, "(not in catalog, scored against default requirements)")
	}
	fmt.Fprintf(w, "Score %.1f / passing %d: %s (confidence %d%%)\n\n", r.NormalizedScore, r.PassingScore, verdict, r.Confidence)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIMENSION\tSCORE\tMAX\tNOTES")
	for _, kind := range domain.Kinds {
		b, ok := r.Breakdown[kind]
		if !ok {
			continue
		}
		notes := strings.Join(b.Notes, "; ")
		if b.HardFail != nil {
			notes = "HARD FAIL: " + *b.HardFail
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.0f\t%s\n", b.Label, b.Score, b.MaxScore, notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printList(w, "Warnings", r.Warnings)
	printList(w, "Missing documents", eval.MissingDocuments)
	if eval.DataQuality != nil {
		fmt.Fprintf(w, "\nData quality: %d%%\n", eval.DataQuality.OverallConfidence)
	}
	return nil
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func newCompareCmd(opts *options) *cobra.Command {
	var (
		applicant applicantFlags
		countries []string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Rank one applicant across catalog visas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			in, err := applicant.input()
			if err != nil {
				return err
			}

			cmp, err := svc.Compare(context.Background(), service.CompareInput{ApplicantInput: in, Countries: countries})
			if err != nil {
				return err
			}
			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), cmp)
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tCOUNTRY\tVISA TYPE\tSCORE\tPASSING\tCONFIDENCE")
			for i, r := range cmp.Rankings {
				passing := "no"
				if r.IsPassing {
					passing = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\t%d%%\n", i+1, r.Country, r.VisaType, r.NormalizedScore, passing, r.Confidence)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, s := range cmp.Skipped {
				fmt.Fprintf(out, "skipped %s %s: %s\n", s.Country, s.VisaType, s.Error)
			}
			return nil
		},
	}

	applicant.register(cmd)
	cmd.Flags().StringArrayVar(&countries, "country", nil, "Restrict the comparison to a country (repeatable)")
	return cmd
}

func newNormalizeCmd(opts *options) *cobra.Command {
	var extraction string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Derive an applicant profile from a raw document extraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			var raw domain.RawExtraction
			if err := readJSONFile(extraction, &raw); err != nil {
				return err
			}

			// The profile is structured data, so both formats print JSON.
			return writeJSON(cmd.OutOrStdout(), svc.Normalize(raw))
		},
	}

	cmd.Flags().StringVar(&extraction, "extraction", "", "Raw document extraction JSON file")
	_ = cmd.MarkFlagRequired("extraction")
	return cmd
}
