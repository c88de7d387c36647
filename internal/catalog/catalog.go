// Package catalog holds the static construction rules table: categories of
// actions, each with the material and subtask formulas that scale with the
// action quantity.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateRule is returned when two actions share an identifier.
var ErrDuplicateRule = errors.New("duplicate action rule id")

// Formula derives one material or subtask line from the action quantity.
type Formula struct {
	Name        string  `yaml:"name" json:"name"`
	Unit        string  `yaml:"unit" json:"unit"`
	Quantity    Expr    `yaml:"quantity" json:"quantity"`
	CostPerUnit float64 `yaml:"costPerUnit" json:"costPerUnit"`
}

// ActionRule describes how one construction action prices its materials and subtasks.
type ActionRule struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	DefaultUnit string    `yaml:"defaultUnit" json:"defaultUnit"`
	Materials   []Formula `yaml:"materials" json:"materials"`
	Subtasks    []Formula `yaml:"subtasks" json:"subtasks"`
}

// Category groups action rules under a display name.
type Category struct {
	Key   string       `yaml:"key" json:"key"`
	Name  string       `yaml:"name" json:"name"`
	Rules []ActionRule `yaml:"actions" json:"actions"`
}

// SearchResult is one category with the rules in it that matched a search.
type SearchResult struct {
	Category string       `json:"category"`
	Rules    []ActionRule `json:"actions"`
}

// CategorizedRule is a rule paired with the name of its category.
type CategorizedRule struct {
	Category string
	Rule     ActionRule
}

type ruleRef struct {
	category int
	rule     int
}

// Catalog is an immutable, ordered rules table with an id index.
// Values handed out share backing arrays with the catalog and must not be mutated.
type Catalog struct {
	categories []Category
	index      map[string]ruleRef
}

// New builds a catalog, rejecting duplicate rule ids and malformed formulas.
func New(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, len(categories)),
		index:      make(map[string]ruleRef),
	}
	copy(c.categories, categories)

	for ci, cat := range c.categories {
		for ri, rule := range cat.Rules {
			if rule.ID == "" {
				return nil, fmt.Errorf("category %q: rule %d has no id", cat.Name, ri)
			}
			if _, exists := c.index[rule.ID]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
			}
			if err := validateFormulas(rule.Materials); err != nil {
				return nil, fmt.Errorf("rule %s materials: %w", rule.ID, err)
			}
			if err := validateFormulas(rule.Subtasks); err != nil {
				return nil, fmt.Errorf("rule %s subtasks: %w", rule.ID, err)
			}
			c.index[rule.ID] = ruleRef{category: ci, rule: ri}
		}
	}

	return c, nil
}

func validateFormulas(formulas []Formula) error {
	for _, f := range formulas {
		if err := f.Quantity.Validate(); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if f.CostPerUnit < 0 {
			return fmt.Errorf("%s: negative cost per unit", f.Name)
		}
	}
	return nil
}

// Categories returns the categories in catalog order.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return nil
	}
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// FindRule resolves a rule by id. Not found is a normal outcome, and a nil
// catalog finds nothing.
func (c *Catalog) FindRule(id string) (ActionRule, bool) {
	if c == nil {
		return ActionRule{}, false
	}
	ref, ok := c.index[id]
	if !ok {
		return ActionRule{}, false
	}
	return c.categories[ref.category].Rules[ref.rule], true
}

// CategoryOf returns the category name a rule id belongs to.
func (c *Catalog) CategoryOf(id string) (string, bool) {
	if c == nil {
		return "", false
	}
	ref, ok := c.index[id]
	if !ok {
		return "", false
	}
	return c.categories[ref.category].Name, true
}

// AllRules flattens the catalog in order.
func (c *Catalog) AllRules() []CategorizedRule {
	if c == nil {
		return nil
	}
	out := make([]CategorizedRule, 0, len(c.index))
	for _, cat := range c.categories {
		for _, rule := range cat.Rules {
			out = append(out, CategorizedRule{Category: cat.Name, Rule: rule})
		}
	}
	return out
}

// Len is the number of rules.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.index)
}

// SearchByName returns rules whose name contains text (case-insensitive),
// grouped by category in catalog order. Empty text matches nothing.
func (c *Catalog) SearchByName(text string) []SearchResult {
	return c.search(text, 0)
}

// Typeahead is SearchByName with the autocomplete limits applied: input shorter
// than minChars yields nothing and at most maxResults rules are returned overall.
// A non-positive maxResults means no cap.
func (c *Catalog) Typeahead(text string, minChars, maxResults int) []SearchResult {
	if len([]rune(strings.TrimSpace(text))) < minChars {
		return nil
	}
	return c.search(text, maxResults)
}

func (c *Catalog) search(text string, limit int) []SearchResult {
	needle := strings.ToLower(strings.TrimSpace(text))
	if c == nil || needle == "" {
		return nil
	}

	var results []SearchResult
	count := 0
	for _, cat := range c.categories {
		var matches []ActionRule
		for _, rule := range cat.Rules {
			if limit > 0 && count >= limit {
				break
			}
			if strings.Contains(strings.ToLower(rule.Name), needle) {
				matches = append(matches, rule)
				count++
			}
		}
		if len(matches) > 0 {
			results = append(results, SearchResult{Category: cat.Name, Rules: matches})
		}
		if limit > 0 && count >= limit {
			break
		}
	}
	return results
}
