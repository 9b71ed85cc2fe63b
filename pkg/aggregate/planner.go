package aggregate

import "strings"

// PlanKind selects how an aggregation plan reshapes rows.
type PlanKind string

const (
	// PlanGroup groups rows by a field and reduces each group.
	PlanGroup PlanKind = "group"
	// PlanSort sorts rows by a numeric field descending without grouping.
	PlanSort PlanKind = "sort"
	// PlanTruncate returns the leading rows unmodified.
	PlanTruncate PlanKind = "truncate"
)

// Plan describes how to group, reduce, sort, and truncate raw rows.
type Plan struct {
	Kind       PlanKind
	GroupField string
	AggField   string
	AggType    string
	SortField  string
	Limit      int
}

// Planner decides whether and how a question's result rows should be
// aggregated. Implementations are free to use keywords, rules, or a model.
type Planner interface {
	// NeedsAggregation reports whether the question asks for an aggregate view.
	NeedsAggregation(question string) bool
	// Plan returns the aggregation plan for the question.
	Plan(question string) Plan
}

// Rule matches a question by substrings and yields a plan. A rule matches when
// every entry of All is present and, if Any is non-empty, at least one entry
// of Any is present. Matching is case-insensitive against the question.
type Rule struct {
	All  []string
	Any  []string
	Plan Plan
}

func (r Rule) matches(question string) bool {
	for _, sub := range r.All {
		if !strings.Contains(question, sub) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, sub := range r.Any {
		if strings.Contains(question, sub) {
			return true
		}
	}
	return false
}

// KeywordPlanner is the keyword-table Planner implementation. The trigger
// keyword set and the ordered rule table are injected so tests and future
// schemas can substitute their own.
type KeywordPlanner struct {
	keywords []string
	rules    []Rule
	limit    int
}

// NewKeywordPlanner creates a planner from a trigger keyword set and an
// ordered, first-match-wins rule table.
func NewKeywordPlanner(keywords []string, rules []Rule) *KeywordPlanner {
	return &KeywordPlanner{keywords: keywords, rules: rules, limit: 10}
}

// NewDefaultPlanner creates a planner with the stock sales-analysis keyword
// set and rules.
func NewDefaultPlanner() *KeywordPlanner {
	return NewKeywordPlanner(DefaultKeywords(), DefaultRules())
}

// DefaultKeywords returns the trigger keywords that mark a question as asking
// for an aggregate view.
func DefaultKeywords() []string {
	return []string{"top", "best", "highest", "lowest", "most", "least", "average", "total", "sum", "count"}
}

// DefaultRules returns the stock rule table for the denormalized sales data.
// Order matters: the first matching rule wins, so overlapping questions (for
// example one mentioning both products and customer totals) resolve by
// position.
func DefaultRules() []Rule {
	return []Rule{
		{
			All:  []string{"product", "revenue"},
			Plan: Plan{Kind: PlanGroup, GroupField: "product_name", AggField: "line_total", AggType: "sum"},
		},
		{
			All:  []string{"customer"},
			Any:  []string{"order value", "total"},
			Plan: Plan{Kind: PlanGroup, GroupField: "customer_name", AggField: "line_total", AggType: "sum"},
		},
		{
			All:  []string{"count", "country"},
			Plan: Plan{Kind: PlanGroup, GroupField: "customer_country", AggType: "count"},
		},
		{
			All:  []string{"price"},
			Any:  []string{"highest", "expensive"},
			Plan: Plan{Kind: PlanSort, SortField: "unit_price"},
		},
	}
}

// NeedsAggregation reports whether the lower-cased question contains any
// trigger keyword.
func (p *KeywordPlanner) NeedsAggregation(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range p.keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Plan returns the first matching rule's plan, or a truncate plan when nothing
// matches.
func (p *KeywordPlanner) Plan(question string) Plan {
	q := strings.ToLower(question)
	for _, rule := range p.rules {
		if rule.matches(q) {
			plan := rule.Plan
			if plan.Limit == 0 {
				plan.Limit = p.limit
			}
			return plan
		}
	}
	return Plan{Kind: PlanTruncate, Limit: p.limit}
}

// Engine applies aggregation plans to raw result rows.
type Engine struct {
	planner Planner
}

// NewEngine creates an engine around the given planner.
func NewEngine(planner Planner) *Engine {
	return &Engine{planner: planner}
}

// NeedsAggregation reports whether the question asks for an aggregate view.
func (e *Engine) NeedsAggregation(question string) bool {
	return e.planner.NeedsAggregation(question)
}

// Aggregate reshapes rows according to the question's plan. The output never
// exceeds the plan's row limit.
func (e *Engine) Aggregate(rows []map[string]any, question string) []map[string]any {
	plan := e.planner.Plan(question)

	var out []map[string]any
	switch plan.Kind {
	case PlanGroup:
		out = GroupBy(rows, plan.GroupField, plan.AggField, plan.AggType)
	case PlanSort:
		out = sortByField(rows, plan.SortField)
	default:
		out = rows
	}

	if plan.Limit > 0 && len(out) > plan.Limit {
		out = out[:plan.Limit]
	}
	return out
}
