package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staybook/pkg/enquiry"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

// enquiryOutput is the JSON result of the enquire command.
type enquiryOutput struct {
	Enquiry map[string]any `json:"enquiry"`
	Errors  types.Errors   `json:"errors,omitempty"`
}

func newEnquireCmd(a *app) *cobra.Command {
	var (
		propRef, from, to string
		dryRun            bool
		counts            = map[string]*int{}
	)
	cmd := &cobra.Command{
		Use:   "enquire",
		Short: "Validate a booking enquiry and send it to the backend",
		Long: "Build an enquiry for a property and date range, validate it, and submit it\n" +
			"to the configured submit_url. Backend answers are merged into the enquiry.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs := map[string]any{types.FieldFromDate: from, types.FieldToDate: to}
			for field, n := range counts {
				if cmd.Flags().Changed(field) {
					attrs[field] = *n
				}
			}
			return a.runEnquire(cmd, propRef, attrs, dryRun)
		},
	}
	cmd.Flags().StringVar(&propRef, "prop", "", "property reference")
	cmd.Flags().StringVar(&from, "from", "", "start of the stay (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end of the stay (YYYY-MM-DD)")
	for _, field := range []string{types.FieldAdults, types.FieldChildren, types.FieldInfants, types.FieldPets} {
		counts[field] = cmd.Flags().Int(field, 0, "number of "+field)
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without submitting")
	_ = cmd.MarkFlagRequired("prop")
	return cmd
}

func (a *app) runEnquire(cmd *cobra.Command, propRef string, attrs map[string]any, dryRun bool) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	opts := []enquiry.Option{
		enquiry.WithAutoSubmit(cfg.AutoSubmit && !dryRun),
		enquiry.WithLogger(a.logger),
		enquiry.WithContext(cmd.Context()),
	}
	if !dryRun {
		client, err := a.client(cfg)
		if err != nil {
			return err
		}
		if client == nil {
			return userError("submit_url is not configured; set it in config.yaml or STAYBOOK_SUBMIT_URL")
		}
		opts = append(opts, enquiry.WithSubmitter(client))
	}

	st := enquiry.New(propRef, opts...)
	defer st.Close()

	if err := st.Merge(attrs); err != nil {
		return userError("%w", err)
	}
	st.Wait()

	if !dryRun && !cfg.AutoSubmit {
		if err := st.Submit(cmd.Context()); err != nil && !errors.Is(err, types.ErrNotReady) {
			return sysError("submit enquiry: %w", err)
		}
	}

	errs := st.Errors()
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		if err := printJSON(out, enquiryOutput{Enquiry: st.Serialize(), Errors: errs}); err != nil {
			return err
		}
	} else {
		printEnquiry(cmd, st, errs, dryRun)
	}

	switch {
	case st.Message() == types.MsgFatalError:
		return sysError("enquiry submission failed")
	case errs != nil && errs.Has(types.FieldStatus):
		return userError("enquiry rejected: %s", errs.First(types.FieldStatus))
	case errs != nil:
		return userError("enquiry is not valid")
	}
	return nil
}

func printEnquiry(cmd *cobra.Command, st *enquiry.State, errs types.Errors, dryRun bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "property: %s\nstay:     %s to %s\nadults:   %d\n",
		st.PropRef(), st.FromDate(), st.ToDate(), st.Adults())
	switch {
	case errs != nil:
		fmt.Fprintln(out, "errors:")
		printErrors(out, errs)
	case dryRun:
		fmt.Fprintln(out, "status:   valid (not submitted)")
	default:
		fmt.Fprintf(out, "status:   %s\n", st.Status())
	}
}
