// Package seed writes the demo estimates a fresh install starts with.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/pricing"
	"github.com/Simplici0/costestimator/internal/store"
)

// Config contains the values required by the startup seed.
type Config struct {
	Rules    pricing.RuleSource
	Defaults estimate.Defaults
	// Refresh rewrites demo records that already exist.
	Refresh bool
	Now     func() time.Time
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type demoAction struct {
	rule      string
	name      string
	quantity  float64
	unitPrice float64
}

type demoLocation struct {
	name    string
	actions []demoAction
}

type demo struct {
	id        string
	project   estimate.Project
	costs     pricing.Adjustments
	locations []demoLocation
}

var demos = []demo{
	{
		id:      "estimate_demo_kitchen",
		project: estimate.Project{Name: "Demo: Kitchen Refresh", Client: "Sample Client"},
		costs:   pricing.Adjustments{PermitFees: 150, EquipmentCosts: 75, ContingencyPercent: 10},
		locations: []demoLocation{
			{name: "Kitchen", actions: []demoAction{
				{rule: "demo_wall", name: "Remove soffit wall", quantity: 108, unitPrice: 1.5},
				{rule: "drywall_hang", name: "New drywall", quantity: 320, unitPrice: 1.25},
				{rule: "paint_interior", name: "Paint walls", quantity: 400, unitPrice: 2},
			}},
			{name: "Pantry", actions: []demoAction{
				{rule: "paint_interior", name: "Paint pantry", quantity: 120, unitPrice: 2},
			}},
		},
	},
	{
		id:      "estimate_demo_roof",
		project: estimate.Project{Name: "Demo: Roof Replacement", Client: "Sample Client"},
		costs:   pricing.Adjustments{PermitFees: 300, EquipmentCosts: 450, OverheadCosts: 200, ContingencyPercent: 15},
		locations: []demoLocation{
			{name: "Main Roof", actions: []demoAction{
				{rule: "install_class_a_roof", name: "Architectural shingles", quantity: 1800, unitPrice: 3.5},
			}},
		},
	},
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, st store.Store, cfg Config) (Stats, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	stats := Stats{}
	for _, d := range demos {
		_, err := st.Get(ctx, d.id)
		exists := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return stats, fmt.Errorf("check demo estimate %s: %w", d.id, err)
		}
		if exists && !cfg.Refresh {
			continue
		}

		rec, err := build(d, cfg, now().UTC())
		if err != nil {
			return stats, err
		}
		if err := st.Put(ctx, rec); err != nil {
			return stats, fmt.Errorf("insert demo estimate %s: %w", d.id, err)
		}
		if exists {
			stats.Updates++
		} else {
			stats.Inserts++
		}
	}
	return stats, nil
}

func build(d demo, cfg Config, savedAt time.Time) (store.Record, error) {
	defaults := cfg.Defaults
	defaults.Now = func() time.Time { return savedAt }

	e := estimate.New(cfg.Rules, defaults)
	// New opens with one blank location; the demo supplies its own.
	if err := e.RemoveLocation(e.Locations[0].ID); err != nil {
		return store.Record{}, err
	}
	e.Project.Name = d.project.Name
	e.Project.Client = d.project.Client
	e.SetCosts(d.costs)

	for _, dl := range d.locations {
		loc, err := e.AddLocation(dl.name)
		if err != nil {
			return store.Record{}, fmt.Errorf("build demo %s: %w", d.id, err)
		}
		for i, da := range dl.actions {
			actionID := loc.Actions[0].ID
			if i > 0 {
				a, err := e.AddAction(loc.ID)
				if err != nil {
					return store.Record{}, fmt.Errorf("build demo %s: %w", d.id, err)
				}
				actionID = a.ID
			}
			name, quantity, price := da.name, da.quantity, da.unitPrice
			if _, err := e.SelectRule(loc.ID, actionID, da.rule); err != nil {
				return store.Record{}, fmt.Errorf("build demo %s: %w", d.id, err)
			}
			if _, err := e.UpdateAction(loc.ID, actionID, estimate.ActionUpdate{
				Name:      &name,
				Quantity:  &quantity,
				UnitPrice: &price,
			}); err != nil {
				return store.Record{}, fmt.Errorf("build demo %s: %w", d.id, err)
			}
		}
	}

	snap := e.Snapshot()
	snap.Name = d.project.Name
	snap.SavedAt = &savedAt
	payload, err := json.Marshal(snap)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode demo %s: %w", d.id, err)
	}
	return store.Record{
		ID:         d.id,
		Name:       snap.Name,
		SavedAt:    savedAt,
		GrandTotal: snap.GrandTotal,
		Payload:    payload,
	}, nil
}
