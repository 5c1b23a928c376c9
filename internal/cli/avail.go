package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staybook/pkg/enquiry"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

func newAvailCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avail",
		Short: "Manage and render property availability",
	}
	cmd.AddCommand(newAvailImportCmd(a))
	cmd.AddCommand(newAvailShowCmd(a))
	cmd.AddCommand(newAvailListCmd(a))
	return cmd
}

func newAvailImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <propRef> <file.json>",
		Short: "Import per-day availability of a property into the local store",
		Long: "Read a JSON array of {\"date\",\"available\",\"code\",\"changeover\"} objects\n" +
			"and upsert them into the local availability store.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			propRef, file := args[0], args[1]
			data, err := os.ReadFile(file)
			if err != nil {
				return userError("read %s: %w", file, err)
			}
			var days []types.DayAvailability
			if err := json.Unmarshal(data, &days); err != nil {
				return userError("parse %s: %w", file, err)
			}

			cfg, err := a.config()
			if err != nil {
				return err
			}
			store, closeStore, err := a.openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Import(propRef, days); err != nil {
				return sysError("import availability: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"propRef": propRef, "imported": len(days)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d days for %s\n", len(days), propRef)
			return nil
		},
	}
}

func newAvailListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List properties with availability in the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			store, closeStore, err := a.openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			props, err := store.Properties(cmd.Context())
			if err != nil {
				return sysError("list properties: %w", err)
			}
			if a.flags.jsonMode {
				if props == nil {
					props = []string{}
				}
				return printJSON(cmd.OutOrStdout(), props)
			}
			for _, p := range props {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

// renderedDay is the JSON form of one rendered calendar day.
type renderedDay struct {
	Date types.Date `json:"date"`
	types.CellRender
}

func newAvailShowCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "show <propRef> <YYYY-MM>",
		Short: "Render the booking calendar of a property for one month",
		Long: "Render every day of the month the way the booking calendar draws it.\n" +
			"With --from and --to the range is selected and validated.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			propRef := args[0]
			month, err := time.Parse("2006-01", args[1])
			if err != nil {
				return userError("month %q is not YYYY-MM", args[1])
			}

			cfg, err := a.config()
			if err != nil {
				return err
			}
			res, release, err := a.resolver(cfg)
			if err != nil {
				return err
			}
			defer release()

			st := enquiry.New(propRef,
				enquiry.WithAvailability(res),
				enquiry.WithAutoSubmit(false),
				enquiry.WithLogger(a.logger),
				enquiry.WithContext(cmd.Context()))
			defer st.Close()

			if err := st.Merge(map[string]any{types.FieldFromDate: from, types.FieldToDate: to}); err != nil {
				return userError("%w", err)
			}
			if st.Availability() == nil {
				return sysError("no availability for %s", propRef)
			}

			first := types.DateOf(month)
			var days []renderedDay
			for d := first; d.Time().Month() == month.Month(); d = d.AddDays(1) {
				days = append(days, renderedDay{Date: d, CellRender: st.RenderCalendarCell(d)})
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, days)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, d := range days {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					d.Date, d.Date.Time().Weekday().String()[:3], cellSymbol(d.CellRender), d.Classes, d.Tooltip)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start of the selected stay (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end of the selected stay (YYYY-MM-DD)")
	return cmd
}
