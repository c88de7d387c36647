package estimate

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/costestimator/internal/pricing"
)

var validate = validator.New()

// Snapshot is the serialisable form of an estimate, used for saving and export.
// Derived totals are included for readers; they are recomputed on load.
type Snapshot struct {
	Name string `json:"name,omitempty"`
	Project
	pricing.Adjustments
	pricing.EstimateTotals
	Locations []LocationSnapshot `json:"locations" validate:"unique=ID,dive"`
	SavedAt   *time.Time         `json:"savedAt,omitempty"`
}

// LocationSnapshot is one location with its derived totals.
type LocationSnapshot struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name"`
	pricing.LocationTotals
	Actions []ActionSnapshot `json:"actions" validate:"unique=ID,dive"`
}

// ActionSnapshot is one action with its resolved line items.
type ActionSnapshot struct {
	ID          int     `json:"id" validate:"gt=0"`
	RuleID      string  `json:"actionId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	pricing.ActionTotals
	Materials []pricing.LineItem `json:"materials"`
	Subtasks  []pricing.LineItem `json:"subtasks"`
}

// Snapshot captures the live state. Blank names and units appear with their
// fallbacks, so a reloaded estimate snapshots identically.
func (e *Estimate) Snapshot() Snapshot {
	s := Snapshot{
		Project:        e.Project,
		Adjustments:    e.Costs,
		EstimateTotals: e.Totals(),
		Locations:      make([]LocationSnapshot, 0, len(e.Locations)),
	}
	for _, l := range e.Locations {
		ls := LocationSnapshot{
			ID:             l.ID,
			Name:           l.DisplayName(),
			LocationTotals: l.Totals(),
			Actions:        make([]ActionSnapshot, 0, len(l.Actions)),
		}
		for _, a := range l.Actions {
			ls.Actions = append(ls.Actions, ActionSnapshot{
				ID:           a.ID,
				RuleID:       a.RuleID,
				Name:         a.DisplayName(),
				Description:  a.Description,
				Quantity:     a.Quantity,
				Unit:         a.DisplayUnit(),
				UnitPrice:    a.UnitPrice,
				ActionTotals: a.Totals(),
				Materials:    cloneItems(a.Materials),
				Subtasks:     cloneItems(a.Subtasks),
			})
		}
		s.Locations = append(s.Locations, ls)
	}
	return s
}

// FromSnapshot rebuilds a live estimate. Saved ids are kept and the id
// counters continue past the highest one. Numbers are coerced the same way
// user input is, and every action is re-priced against rules, so stored line
// items and totals are ignored.
func FromSnapshot(rules pricing.RuleSource, defaults Defaults, s Snapshot) (*Estimate, error) {
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if limit := defaults.MaxLocations; limit > 0 && len(s.Locations) > limit {
		return nil, fmt.Errorf("%w: snapshot has %d, limit is %d", ErrTooManyLocations, len(s.Locations), limit)
	}

	e := &Estimate{
		Project:        s.Project,
		Locations:      make([]*Location, 0, len(s.Locations)),
		nextLocationID: 1,
		rules:          rules,
		defaults:       defaults,
	}
	e.SetCosts(s.Adjustments)

	for _, ls := range s.Locations {
		if limit := defaults.MaxActionsPerLocation; limit > 0 && len(ls.Actions) > limit {
			return nil, fmt.Errorf("%w: location %d has %d, limit is %d", ErrTooManyActions, ls.ID, len(ls.Actions), limit)
		}
		loc := &Location{
			ID:           ls.ID,
			Name:         ls.Name,
			Actions:      make([]*Action, 0, len(ls.Actions)),
			nextActionID: 1,
		}
		for _, as := range ls.Actions {
			a := &Action{
				ID:          as.ID,
				RuleID:      as.RuleID,
				Name:        as.Name,
				Description: as.Description,
				Quantity:    Coerce(as.Quantity),
				Unit:        as.Unit,
				UnitPrice:   Coerce(as.UnitPrice),
			}
			a.reprice(rules)
			loc.Actions = append(loc.Actions, a)
			if a.ID >= loc.nextActionID {
				loc.nextActionID = a.ID + 1
			}
		}
		e.Locations = append(e.Locations, loc)
		if loc.ID >= e.nextLocationID {
			e.nextLocationID = loc.ID + 1
		}
	}

	return e, nil
}

// FieldErrors maps each failed field of a validation error to its rule.
// It returns nil for any other error.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

func cloneItems(items []pricing.LineItem) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	copy(out, items)
	return out
}
