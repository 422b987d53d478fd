package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/visaeval/visaeval-backend/internal/eligibility/catalog"
	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
	"github.com/visaeval/visaeval-backend/pkg/logger"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// options are the persistent flags shared by every command.
type options struct {
	output      string
	catalogPath string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "visactl",
		Short: "Score applicants against the visa catalog",
		Long: `visactl evaluates applicant profiles against the visa catalog locally.

Profiles are JSON files in the same shape the HTTP API accepts. A raw document
extraction can be given instead and is normalized into a profile first.

Examples:
  visactl countries
  visactl requirements Germany "EU Blue Card" -o json
  visactl evaluate Germany "EU Blue Card" --profile applicant.json
  visactl compare --extraction extraction.json --country Canada --country Ireland`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("unknown output format %q (want %s or %s)", opts.output, outputTable, outputJSON)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "Visa catalog YAML (default is the embedded catalog)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newCountriesCmd(opts),
		newVisasCmd(opts),
		newRequirementsCmd(opts),
		newSuggestCmd(opts),
		newEvaluateCmd(opts),
		newCompareCmd(opts),
		newNormalizeCmd(opts),
	)
	return root
}

// newService builds an in-process eligibility service on the chosen catalog.
func (o *options) newService(cmd *cobra.Command) (*service.EligibilityService, error) {
	cat, err := catalog.LoadOrEmbedded(o.catalogPath)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	if o.verbose {
		log = logger.NewWithWriter("visactl", cmd.ErrOrStderr()).SetLevel("debug")
	}
	return service.NewEligibilityService(cat, repository.NewMemoryRepository(), nil, nil, nil, log), nil
}

func (o *options) json() bool {
	return o.output == outputJSON
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// applicantFlags are the --profile/--extraction pair of the scoring commands.
type applicantFlags struct {
	profile    string
	extraction string
}

func (f *applicantFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "Applicant profile JSON file")
	cmd.Flags().StringVar(&f.extraction, "extraction", "", "Raw document extraction JSON file")
	cmd.MarkFlagsMutuallyExclusive("profile", "extraction")
}

func (f *applicantFlags) set() bool {
	return f.profile != "" || f.extraction != ""
}

func (f *applicantFlags) input() (service.ApplicantInput, error) {
	switch {
	case f.profile != "":
		var p domain.ApplicantProfile
		if err := readJSONFile(f.profile, &p); err != nil {
			return service.ApplicantInput{}, err
		}
		return service.ApplicantInput{Profile: &p}, nil
	case f.extraction != "":
		var raw domain.RawExtraction
		if err := readJSONFile(f.extraction, &raw); err != nil {
			return service.ApplicantInput{}, err
		}
		return service.ApplicantInput{Extraction: &raw}, nil
	default:
		return service.ApplicantInput{}, fmt.Errorf("one of --profile or --extraction is required")
	}
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
