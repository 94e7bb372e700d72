package domain

import "fmt"

type ScopeKind string

const (
	ScopeJob     ScopeKind = "job"
	ScopeCompany ScopeKind = "company"
)

type CounterScope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

func JobScope(jobID string) CounterScope {
	return CounterScope{Kind: ScopeJob, ID: jobID}
}

func CompanyScope(companyID string) CounterScope {
	return CounterScope{Kind: ScopeCompany, ID: companyID}
}

func (s CounterScope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// AggregateCounters holds per-status counts plus a running total for one
// scope. Invariant: sum(ByStatus) == Total after every applied delta.
type AggregateCounters struct {
	Scope    CounterScope     `json:"scope"`
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
}

func (c *AggregateCounters) Consistent() bool {
	if c == nil {
		return true
	}
	var sum int64
	for _, n := range c.ByStatus {
		sum += n
	}
	return sum == c.Total
}
