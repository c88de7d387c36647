// Package estimate is the mutable estimate tree: project metadata, global
// costs and an ordered list of locations, each owning an ordered list of
// actions. Every change to an action's rule or quantity re-prices it through
// the pricing package; totals are always derived, never stored.
//
// An Estimate is not safe for concurrent use. Callers that share one between
// goroutines must serialise access themselves.
package estimate

import (
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/costestimator/internal/pricing"
)

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrActionNotFound   = errors.New("action not found")
	ErrTooManyLocations = errors.New("too many locations")
	ErrTooManyActions   = errors.New("too many actions in location")
)

const (
	DefaultContingencyPercent    = 10
	DefaultMaxLocations          = 20
	DefaultMaxActionsPerLocation = 30
	DefaultUnit                  = "Count"

	dateLayout = "2006-01-02"
)

// Defaults seed new and reset estimates. Zero limits mean unlimited.
type Defaults struct {
	ContingencyPercent    float64
	MaxLocations          int
	MaxActionsPerLocation int
	Now                   func() time.Time
}

// StandardDefaults is 10% contingency with 20 locations of 30 actions each.
func StandardDefaults() Defaults {
	return Defaults{
		ContingencyPercent:    DefaultContingencyPercent,
		MaxLocations:          DefaultMaxLocations,
		MaxActionsPerLocation: DefaultMaxActionsPerLocation,
	}
}

func (d Defaults) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Project is the descriptive metadata of an estimate.
type Project struct {
	Name   string `json:"projectName"`
	Date   string `json:"projectDate"`
	Client string `json:"projectClient"`
}

// Action is one construction task in a location.
type Action struct {
	ID          int
	RuleID      string
	Name        string
	Description string
	Quantity    float64
	Unit        string
	UnitPrice   float64

	Materials    []pricing.LineItem
	Subtasks     []pricing.LineItem
	MaterialCost float64
}

// DisplayName is the action name or "Action <id>" when blank.
func (a *Action) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("Action %d", a.ID)
}

// DisplayUnit is the unit or "Count" when blank.
func (a *Action) DisplayUnit() string {
	if a.Unit != "" {
		return a.Unit
	}
	return DefaultUnit
}

// Totals is the labor and material cost of the action.
func (a *Action) Totals() pricing.ActionTotals {
	return pricing.RollupAction(pricing.ActionInput{
		Quantity:     a.Quantity,
		UnitPrice:    a.UnitPrice,
		MaterialCost: a.MaterialCost,
	})
}

func (a *Action) reprice(rules pricing.RuleSource) {
	res := pricing.Resolve(rules, a.RuleID, a.Quantity)
	a.Materials = res.Materials
	a.Subtasks = res.Subtasks
	a.MaterialCost = res.TotalMaterialCost
}

// Location is a named area of the project.
type Location struct {
	ID      int
	Name    string
	Actions []*Action

	nextActionID int
}

// DisplayName is the location name or "Location <id>" when blank.
func (l *Location) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("Location %d", l.ID)
}

// Totals sums the location's actions.
func (l *Location) Totals() pricing.LocationTotals {
	actions := make([]pricing.ActionTotals, 0, len(l.Actions))
	for _, a := range l.Actions {
		actions = append(actions, a.Totals())
	}
	return pricing.RollupLocation(actions)
}

// Action looks up an action by id.
func (l *Location) Action(id int) (*Action, bool) {
	for _, a := range l.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Estimate is the aggregate root.
type Estimate struct {
	Project   Project
	Costs     pricing.Adjustments
	Locations []*Location

	nextLocationID int
	rules          pricing.RuleSource
	defaults       Defaults
}

// New returns an estimate dated today with one location holding one empty action.
func New(rules pricing.RuleSource, defaults Defaults) *Estimate {
	e := &Estimate{rules: rules, defaults: defaults}
	e.Reset()
	return e
}

// Reset discards all locations and restores defaults, as if newly created.
func (e *Estimate) Reset() {
	e.Project = Project{Date: e.defaults.now().Format(dateLayout)}
	e.Costs = pricing.Adjustments{ContingencyPercent: e.defaults.ContingencyPercent}
	e.Locations = nil
	e.nextLocationID = 1

	// Cannot fail on an empty estimate.
	_, _ = e.AddLocation("")
}

// Rules is the source actions are priced against.
func (e *Estimate) Rules() pricing.RuleSource { return e.rules }

// Defaults returns the values the estimate was created with.
func (e *Estimate) Defaults() Defaults { return e.defaults }

// IsEmpty reports whether there is nothing to export.
func (e *Estimate) IsEmpty() bool { return len(e.Locations) == 0 }

// AddLocation appends a location with a fresh id and one empty action.
func (e *Estimate) AddLocation(name string) (*Location, error) {
	if limit := e.defaults.MaxLocations; limit > 0 && len(e.Locations) >= limit {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyLocations, limit)
	}
	loc := &Location{ID: e.nextLocationID, Name: name, nextActionID: 1}
	e.nextLocationID++
	e.Locations = append(e.Locations, loc)

	if _, err := e.AddAction(loc.ID); err != nil {
		return nil, err
	}
	return loc, nil
}

// Location looks up a location by id.
func (e *Estimate) Location(id int) (*Location, error) {
	for _, l := range e.Locations {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrLocationNotFound, id)
}

// RenameLocation sets a location's display name.
func (e *Estimate) RenameLocation(id int, name string) error {
	loc, err := e.Location(id)
	if err != nil {
		return err
	}
	loc.Name = name
	return nil
}

// RemoveLocation deletes a location and its actions. Sibling ids are untouched.
func (e *Estimate) RemoveLocation(id int) error {
	for i, l := range e.Locations {
		if l.ID == id {
			e.Locations = append(e.Locations[:i], e.Locations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrLocationNotFound, id)
}

// AddAction appends an empty action to a location. The id is never one the
// location has handed out before, even if that action was removed.
func (e *Estimate) AddAction(locationID int) (*Action, error) {
	loc, err := e.Location(locationID)
	if err != nil {
		return nil, err
	}
	if limit := e.defaults.MaxActionsPerLocation; limit > 0 && len(loc.Actions) >= limit {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyActions, limit)
	}

	a := &Action{ID: loc.nextActionID}
	loc.nextActionID++
	a.reprice(e.rules)
	loc.Actions = append(loc.Actions, a)
	return a, nil
}

// Action looks up an action within a location.
func (e *Estimate) Action(locationID, actionID int) (*Action, error) {
	loc, err := e.Location(locationID)
	if err != nil {
		return nil, err
	}
	a, ok := loc.Action(actionID)
	if !ok {
		return nil, fmt.Errorf("%w: %d in location %d", ErrActionNotFound, actionID, locationID)
	}
	return a, nil
}

// RemoveAction deletes an action from a location.
func (e *Estimate) RemoveAction(locationID, actionID int) error {
	loc, err := e.Location(locationID)
	if err != nil {
		return err
	}
	for i, a := range loc.Actions {
		if a.ID == actionID {
			loc.Actions = append(loc.Actions[:i], loc.Actions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d in location %d", ErrActionNotFound, actionID, locationID)
}

// ActionUpdate changes the non-nil fields of an action.
type ActionUpdate struct {
	RuleID      *string
	Name        *string
	Description *string
	Quantity    *float64
	Unit        *string
	UnitPrice   *float64
}

// UpdateAction applies u and re-prices the action. Selecting a known rule
// also switches the unit to the rule's default unless u sets one.
func (e *Estimate) UpdateAction(locationID, actionID int, u ActionUpdate) (*Action, error) {
	a, err := e.Action(locationID, actionID)
	if err != nil {
		return nil, err
	}

	if u.RuleID != nil {
		a.RuleID = *u.RuleID
		if e.rules != nil && a.RuleID != "" {
			if rule, ok := e.rules.FindRule(a.RuleID); ok && rule.DefaultUnit != "" {
				a.Unit = rule.DefaultUnit
			}
		}
	}
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Quantity != nil {
		a.Quantity = Coerce(*u.Quantity)
	}
	if u.Unit != nil {
		a.Unit = *u.Unit
	}
	if u.UnitPrice != nil {
		a.UnitPrice = Coerce(*u.UnitPrice)
	}

	a.reprice(e.rules)
	return a, nil
}

// SelectRule is UpdateAction with only the rule set.
func (e *Estimate) SelectRule(locationID, actionID int, ruleID string) (*Action, error) {
	return e.UpdateAction(locationID, actionID, ActionUpdate{RuleID: &ruleID})
}

// SetQuantity is UpdateAction with only the quantity set.
func (e *Estimate) SetQuantity(locationID, actionID int, quantity float64) (*Action, error) {
	return e.UpdateAction(locationID, actionID, ActionUpdate{Quantity: &quantity})
}

// SetUnitPrice is UpdateAction with only the labor unit price set.
func (e *Estimate) SetUnitPrice(locationID, actionID int, price float64) (*Action, error) {
	return e.UpdateAction(locationID, actionID, ActionUpdate{UnitPrice: &price})
}

// SetCosts replaces the global costs, coercing each to a non-negative number.
func (e *Estimate) SetCosts(c pricing.Adjustments) {
	e.Costs = pricing.Adjustments{
		PermitFees:         Coerce(c.PermitFees),
		EquipmentCosts:     Coerce(c.EquipmentCosts),
		OverheadCosts:      Coerce(c.OverheadCosts),
		ContingencyPercent: Coerce(c.ContingencyPercent),
	}
}

// SetRules switches the source actions are priced against and re-prices them.
func (e *Estimate) SetRules(rules pricing.RuleSource) {
	e.rules = rules
	e.Reprice()
}

// Reprice re-resolves every action, e.g. after the catalog changed.
func (e *Estimate) Reprice() {
	for _, l := range e.Locations {
		for _, a := range l.Actions {
			a.reprice(e.rules)
		}
	}
}

// Totals rolls every location up into the project breakdown.
func (e *Estimate) Totals() pricing.EstimateTotals {
	locations := make([]pricing.LocationTotals, 0, len(e.Locations))
	for _, l := range e.Locations {
		locations = append(locations, l.Totals())
	}
	return pricing.RollupEstimate(locations, e.Costs)
}

// Issue is a field that needs correcting before a calculation is shown.
type Issue struct {
	LocationID int    `json:"locationId"`
	ActionID   int    `json:"actionId"`
	Message    string `json:"message"`
}

// Validate lists actions without a positive quantity. It does not modify anything.
func (e *Estimate) Validate() []Issue {
	var issues []Issue
	for _, l := range e.Locations {
		for _, a := range l.Actions {
			if a.Quantity <= 0 {
				issues = append(issues, Issue{
					LocationID: l.ID,
					ActionID:   a.ID,
					Message:    fmt.Sprintf("%s in %s: quantity must be greater than zero", a.DisplayName(), l.DisplayName()),
				})
			}
		}
	}
	return issues
}
