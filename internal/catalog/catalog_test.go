package catalog

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault_RuleIDsAreUniqueAndResolvable(t *testing.T) {
	c := Default()

	if c.Len() != 18 {
		t.Fatalf("expected 18 built-in rules, got %d", c.Len())
	}

	for _, cr := range c.AllRules() {
		rule, ok := c.FindRule(cr.Rule.ID)
		if !ok {
			t.Fatalf("rule %s not resolvable", cr.Rule.ID)
		}
		if rule.Name != cr.Rule.Name {
			t.Fatalf("rule %s resolved to %q, want %q", cr.Rule.ID, rule.Name, cr.Rule.Name)
		}
		category, _ := c.CategoryOf(cr.Rule.ID)
		if category != cr.Category {
			t.Fatalf("rule %s category = %q, want %q", cr.Rule.ID, category, cr.Category)
		}
	}
}

func TestFindRule_UnknownIsNotFound(t *testing.T) {
	if _, ok := Default().FindRule("does_not_exist"); ok {
		t.Fatalf("expected unknown rule to be not found")
	}
}

func TestNilCatalog_FindsNothing(t *testing.T) {
	var c *Catalog
	if _, ok := c.FindRule("drywall_hang"); ok {
		t.Fatalf("nil catalog found a rule")
	}
	if _, ok := c.CategoryOf("drywall_hang"); ok {
		t.Fatalf("nil catalog found a category")
	}
	if c.Len() != 0 || c.SearchByName("paint") != nil {
		t.Fatalf("nil catalog is not empty")
	}
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New([]Category{
		{Name: "A", Rules: []ActionRule{{ID: "x", Name: "One"}}},
		{Name: "B", Rules: []ActionRule{{ID: "x", Name: "Two"}}},
	})
	if !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}
}

func TestNew_RejectsMalformedFormula(t *testing.T) {
	_, err := New([]Category{{Name: "A", Rules: []ActionRule{{
		ID:        "x",
		Materials: []Formula{{Name: "bad", Quantity: Expr{Op: OpDiv, Args: []Expr{Q()}}}},
	}}}})
	if err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestSearchByName_CaseInsensitiveGroupedInCatalogOrder(t *testing.T) {
	results := Default().SearchByName("INSTALL")

	var categories []string
	for _, r := range results {
		categories = append(categories, r.Category)
	}
	want := []string{"Drywall", "Flooring", "Subfloor", "Install Windows", "Install Doors", "Install Roof"}
	if strings.Join(categories, "|") != strings.Join(want, "|") {
		t.Fatalf("categories = %v, want %v", categories, want)
	}
	if results[1].Rules[0].ID != "floor_hardwood" || results[1].Rules[1].ID != "floor_tile" {
		t.Fatalf("flooring rules out of order: %+v", results[1].Rules)
	}
}

func TestSearchByName_StableAcrossCalls(t *testing.T) {
	c := Default()
	first := c.SearchByName("wall")
	second := c.SearchByName("wall")
	if len(first) != len(second) {
		t.Fatalf("result length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Category != second[i].Category || len(first[i].Rules) != len(second[i].Rules) {
			t.Fatalf("result %d changed between calls", i)
		}
	}
}

func TestSearchByName_EmptyTextMatchesNothing(t *testing.T) {
	if got := Default().SearchByName("   "); len(got) != 0 {
		t.Fatalf("expected no results, got %+v", got)
	}
}

func TestTypeahead_MinCharsAndMaxResults(t *testing.T) {
	c := Default()

	if got := c.Typeahead("i", 2, 10); got != nil {
		t.Fatalf("expected nil below min chars, got %+v", got)
	}

	results := c.Typeahead("in", 2, 3)
	total := 0
	for _, r := range results {
		total += len(r.Rules)
	}
	if total != 3 {
		t.Fatalf("expected 3 capped results, got %d", total)
	}
}

func TestExpr_TotalOverEdgeInputs(t *testing.T) {
	cases := []struct {
		name string
		expr Expr
		q    float64
		want float64
	}{
		{"ceil div", ceilDiv(32), 320, 10},
		{"ceil div rounds up", ceilDiv(32), 321, 11},
		{"zero quantity", ceilDiv(32), 0, 0},
		{"div by zero", Div(Q(), C(0)), 5, 0},
		{"sqrt negative", Sqrt(Q()), -4, 0},
		{"mesh tape at 100", meshTape(), 100, 78},
		{"unknown op", Expr{Op: "pow"}, 3, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.expr.Eval(tc.q)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Eval(%v) = %v, want %v", tc.q, got, tc.want)
			}
		})
	}
}

func TestExpr_String(t *testing.T) {
	if got := ceilDiv(32).String(); got != "ceil(quantity / 32)" {
		t.Fatalf("String() = %q", got)
	}
	if got := Sqrt(Q()).String(); got != "sqrt(quantity)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestLoadYAML_BuildsCatalog(t *testing.T) {
	doc := `
categories:
  - key: paint
    name: Painting
    actions:
      - id: paint_trim
        name: Paint Trim
        defaultUnit: Linear Ft
        materials:
          - name: Trim Paint
            unit: Quarts
            costPerUnit: 12
            quantity:
              op: ceil
              args:
                - op: div
                  args: [{op: quantity}, {op: const, value: 150}]
`
	c, err := LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	rule, ok := c.FindRule("paint_trim")
	if !ok {
		t.Fatalf("paint_trim not found")
	}
	if got := rule.Materials[0].Quantity.Eval(300); got != 2 {
		t.Fatalf("quantity at 300 = %v, want 2", got)
	}
}

func TestLoadYAML_RejectsUnknownOp(t *testing.T) {
	doc := `
categories:
  - name: X
    actions:
      - id: x
        name: X
        materials:
          - name: M
            quantity: {op: eval, value: 1}
`
	if _, err := LoadYAML(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected unknown op error")
	}
}

func TestMarshalYAML_RoundTripsDefault(t *testing.T) {
	c := Default()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = enc.Close()

	loaded, err := LoadYAML(&buf)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("loaded %d rules, want %d", loaded.Len(), c.Len())
	}
	want, _ := c.FindRule("install_class_a_roof")
	got, _ := loaded.FindRule("install_class_a_roof")
	for i := range want.Materials {
		if got.Materials[i].Quantity.Eval(1234) != want.Materials[i].Quantity.Eval(1234) {
			t.Fatalf("material %d evaluates differently after round trip", i)
		}
	}
}
