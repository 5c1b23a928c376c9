package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staybook/pkg/travellers"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

// partyOutput is the JSON result of the party command.
type partyOutput struct {
	Counts     map[string]int     `json:"counts"`
	Travellers []*types.Traveller `json:"travellers"`
}

func newPartyCmd(a *app) *cobra.Command {
	var (
		extra  map[string]int
		counts = map[string]*int{}
	)
	cmd := &cobra.Command{
		Use:   "party [step...]",
		Short: "Shape a travelling party and print its roster",
		Long: "Reconcile a roster with the requested number of travellers per category.\n" +
			"Each step is a comma-separated list such as adult=2,child=1 and is applied\n" +
			"in order to the same roster, so travellers removed by one step come back\n" +
			"in a later one. Without steps the category flags form a single step.",
		Example: "  staybook party --adult 2 --child 1\n  staybook party adult=2,child=2 adult=2 adult=2,child=1",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return userError("%w", err)
			}
			if len(steps) == 0 {
				step := map[string]int{}
				for kind, n := range counts {
					step[kind] = *n
				}
				for kind, n := range extra {
					step[kind] = n
				}
				steps = append(steps, step)
			}
			return a.runParty(cmd, steps)
		},
	}
	for _, kind := range types.KnownTravellerTypes {
		counts[kind] = cmd.Flags().Int(kind, 0, "number of "+kind+" travellers")
	}
	cmd.Flags().StringToIntVar(&extra, "type", nil, "other categories, e.g. --type carer=1")
	return cmd
}

// parseSteps parses "kind=n,kind=n" arguments.
func parseSteps(args []string) ([]map[string]int, error) {
	var steps []map[string]int
	for _, arg := range args {
		step := map[string]int{}
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			kind, raw, ok := strings.Cut(part, "=")
			if !ok {
				return nil, fmt.Errorf("step %q: expected kind=count", arg)
			}
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("step %q: %q is not a number", arg, raw)
			}
			step[strings.TrimSpace(kind)] = n
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (a *app) runParty(cmd *cobra.Command, steps []map[string]int) error {
	roster := travellers.New(travellers.WithLogger(a.logger))
	for i, step := range steps {
		if err := roster.Mutate(step); err != nil {
			return userError("step %d: %w", i+1, err)
		}
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, partyOutput{Counts: roster.Counts(), Travellers: roster.All()})
	}
	for _, g := range roster.Groups() {
		fmt.Fprintf(out, "%s (%d)\n", g.Type, len(g.Travellers))
		for _, t := range g.Travellers {
			fmt.Fprintf(out, "  %s\n", t.ID)
		}
	}
	if roster.Len() == 0 {
		fmt.Fprintln(out, "empty party")
	}
	return nil
}
