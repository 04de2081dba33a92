package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

// LargePriceDelta is the relative price change above which a move is flagged
// as large.
var LargePriceDelta = decimal.RequireFromString("0.35")

// Compute compares the current pricing list against the previous one.
// Records are matched by name. New and updated records keep the order of
// current; removed records keep the order of previous.
func Compute(previous, current []catalog.PricingRecord) *ChangeSet {
	cs := &ChangeSet{}

	existing := make(map[string]catalog.PricingRecord, len(previous))
	for _, r := range previous {
		existing[r.Name] = r
	}

	seen := make(map[string]bool, len(current))
	for _, r := range current {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true

		old, ok := existing[r.Name]
		if !ok {
			cs.New = append(cs.New, ModelChange{Name: r.Name, Record: r})
			continue
		}

		// Compare fields
		changes := computeFieldChanges(old, r)
		if len(changes) > 0 {
			cs.Updated = append(cs.Updated, ModelUpdate{Name: r.Name, Record: r, Changes: changes})
		} else {
			cs.Unchanged++
		}
	}

	reported := make(map[string]bool)
	for _, r := range previous {
		if !seen[r.Name] && !reported[r.Name] {
			reported[r.Name] = true
			cs.Removed = append(cs.Removed, ModelChange{Name: r.Name, Record: r})
		}
	}

	return cs
}

func computeFieldChanges(existing, current catalog.PricingRecord) []FieldChange {
	var changes []FieldChange

	if existing.Provider != current.Provider {
		changes = append(changes, FieldChange{Field: "provider", OldValue: existing.Provider, NewValue: current.Provider})
	}
	if existing.InputCost != current.InputCost {
		changes = append(changes, FieldChange{
			Field: "input_cost", OldValue: existing.InputCost, NewValue: current.InputCost,
			Large: largeMove(existing.InputCost, current.InputCost),
		})
	}
	if existing.OutputCost != current.OutputCost {
		changes = append(changes, FieldChange{
			Field: "output_cost", OldValue: existing.OutputCost, NewValue: current.OutputCost,
			Large: largeMove(existing.OutputCost, current.OutputCost),
		})
	}
	if existing.Category != current.Category {
		changes = append(changes, FieldChange{Field: "category", OldValue: existing.Category, NewValue: current.Category})
	}
	if existing.ContextWindow != current.ContextWindow {
		changes = append(changes, FieldChange{Field: "context_window", OldValue: existing.ContextWindow, NewValue: current.ContextWindow})
	}

	return changes
}

// largeMove reports a relative change above LargePriceDelta. A move away from
// or to zero is always large.
func largeMove(old, cur float64) bool {
	if old == 0 || cur == 0 {
		return old != cur
	}
	o := decimal.NewFromFloat(old)
	return decimal.NewFromFloat(cur).Sub(o).Abs().Div(o).GreaterThan(LargePriceDelta)
}

// RenderSummary formats a change set for logs and the CLI.
func RenderSummary(cs *ChangeSet) string {
	if !cs.HasChanges() {
		return fmt.Sprintf("No pricing changes (%d unchanged).\n", cs.Unchanged)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pricing changes: %d new, %d updated, %d removed, %d unchanged\n",
		len(cs.New), len(cs.Updated), len(cs.Removed), cs.Unchanged)

	if len(cs.New) > 0 {
		b.WriteString("\nNew:\n")
		for _, m := range cs.New {
			fmt.Fprintf(&b, "  + %s (%s) in $%.6f / out $%.6f per 1K\n", m.Name, m.Record.Provider, m.Record.InputCost, m.Record.OutputCost)
		}
	}

	if len(cs.Updated) > 0 {
		b.WriteString("\nUpdated:\n")
		updated := append([]ModelUpdate(nil), cs.Updated...)
		sort.SliceStable(updated, func(i, j int) bool { return updated[i].Name < updated[j].Name })
		for _, u := range updated {
			fmt.Fprintf(&b, "  ~ %s\n", u.Name)
			for _, c := range u.Changes {
				flag := ""
				if c.Large {
					flag = " [large]"
				}
				fmt.Fprintf(&b, "      %s: %v -> %v%s\n", c.Field, c.OldValue, c.NewValue, flag)
			}
		}
	}

	if len(cs.Removed) > 0 {
		b.WriteString("\nRemoved:\n")
		for _, m := range cs.Removed {
			fmt.Fprintf(&b, "  - %s (%s)\n", m.Name, m.Record.Provider)
		}
	}

	return b.String()
}
