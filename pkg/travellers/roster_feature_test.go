package travellers

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/mesh-intelligence/staybook/pkg/observe"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

type rosterTestContext struct {
	roster  *Roster
	batches []observe.Batch
	named   map[string][]*types.Traveller
	err     error
}

func (c *rosterTestContext) reset() {
	c.roster = New()
	c.batches = nil
	c.named = map[string][]*types.Traveller{}
	c.err = nil
	c.roster.Subscribe(func(b observe.Batch) { c.batches = append(c.batches, b) })
}

// parseCounts reads "kind=n,kind=n".
func parseCounts(list string) (map[string]int, error) {
	counts := map[string]int{}
	for _, part := range strings.Split(list, ",") {
		kind, raw, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("bad count %q", part)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, nil
}

func (c *rosterTestContext) anEmptyRoster() error {
	c.reset()
	return nil
}

func (c *rosterTestContext) aRosterReconciledTo(list string) error {
	counts, err := parseCounts(list)
	if err != nil {
		return err
	}
	return c.roster.Mutate(counts)
}

func (c *rosterTestContext) iReconcileTheRosterTo(list string) error {
	counts, err := parseCounts(list)
	if err != nil {
		return err
	}
	c.batches = nil
	c.err = c.roster.Mutate(counts)
	return nil
}

func (c *rosterTestContext) iNameTheTravellers(kind string) error {
	group := c.roster.ByType(kind)
	for i, t := range group {
		t.Name = fmt.Sprintf("%s #%d", kind, i+1)
	}
	c.named[kind] = group
	return nil
}

func (c *rosterTestContext) theRosterHolds(list string) error {
	want, err := parseCounts(list)
	if err != nil {
		return err
	}
	for kind, n := range want {
		if n == 0 {
			delete(want, kind)
		}
	}
	if got := c.roster.Counts(); !maps.Equal(got, want) {
		return fmt.Errorf("expected counts %v, got %v", want, got)
	}
	return nil
}

func (c *rosterTestContext) theLastReconciliationAddedAndRemoved(added, removed int) error {
	if c.err != nil {
		return fmt.Errorf("reconciliation failed: %v", c.err)
	}
	if len(c.batches) != 1 {
		return fmt.Errorf("expected one batch, got %d", len(c.batches))
	}
	var gotAdded, gotRemoved int
	for _, e := range c.batches[0] {
		switch e.Key {
		case EventAdd:
			gotAdded++
		case EventRemove:
			gotRemoved++
		}
	}
	if gotAdded != added || gotRemoved != removed {
		return fmt.Errorf("expected +%d/-%d, got +%d/-%d", added, removed, gotAdded, gotRemoved)
	}
	return nil
}

func (c *rosterTestContext) subscribersReceivedBatches(n int) error {
	if len(c.batches) != n {
		return fmt.Errorf("expected %d batches, got %d", n, len(c.batches))
	}
	return nil
}

func (c *rosterTestContext) theNamedTravellersAreBack(kind string) error {
	want := c.named[kind]
	got := c.roster.ByType(kind)
	if len(got) != len(want) {
		return fmt.Errorf("expected %d %s travellers, got %d", len(want), kind, len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%s #%d is a new record (name %q)", kind, i+1, got[i].Name)
		}
	}
	return nil
}

func (c *rosterTestContext) theRosterOrderIs(list string) error {
	var got []string
	for _, t := range c.roster.All() {
		got = append(got, t.Type())
	}
	if strings.Join(got, ",") != list {
		return fmt.Errorf("expected order %s, got %s", list, strings.Join(got, ","))
	}
	return nil
}

func (c *rosterTestContext) theReconciliationFailsWith(substring string) error {
	if c.err == nil {
		return errors.New("expected reconciliation to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), substring) {
		return fmt.Errorf("expected error containing %q, got %q", substring, c.err.Error())
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &rosterTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty roster$`, tc.anEmptyRoster)
	ctx.Step(`^a roster reconciled to "([^"]*)"$`, tc.aRosterReconciledTo)
	ctx.Step(`^I name the "([^"]*)" travellers$`, tc.iNameTheTravellers)

	// When steps
	ctx.Step(`^I reconcile the roster to "([^"]*)"$`, tc.iReconcileTheRosterTo)

	// Then steps
	ctx.Step(`^the roster holds "([^"]*)"$`, tc.theRosterHolds)
	ctx.Step(`^the last reconciliation added (\d+) and removed (\d+) travellers$`, tc.theLastReconciliationAddedAndRemoved)
	ctx.Step(`^subscribers received (\d+) batch(?:es)? for the last reconciliation$`, tc.subscribersReceivedBatches)
	ctx.Step(`^the named "([^"]*)" travellers are back in their places$`, tc.theNamedTravellersAreBack)
	ctx.Step(`^the roster order is "([^"]*)"$`, tc.theRosterOrderIs)
	ctx.Step(`^the reconciliation fails with "([^"]*)"$`, tc.theReconciliationFailsWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/roster.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
