package core

import "time"

// GoalStatus is the evaluated state of a category's goal for one month.
type GoalStatus struct {
	Type       GoalType `json:"type"`
	Target     Money    `json:"target"`
	Required   Money    `json:"required"`
	IsMet      bool     `json:"is_met"`
	Percentage int      `json:"percentage"`
	Message    string   `json:"message"`
}

// CategorySummary is one envelope row of the budget view.
type CategorySummary struct {
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Assigned     Money      `json:"assigned"`
	Activity     Money      `json:"activity"`
	Available    Money      `json:"available"`
	Goal         GoalStatus `json:"goal"`
}

// GroupSummary groups envelope rows under their display group.
type GroupSummary struct {
	GroupID    int64             `json:"group_id"`
	GroupName  string            `json:"group_name"`
	Categories []CategorySummary `json:"categories"`
}

// Totals accumulates the per-category columns over the whole view.
type Totals struct {
	Assigned  Money `json:"assigned"`
	Activity  Money `json:"activity"`
	Available Money `json:"available"`
}

// Summary is the budget view for one month: the unallocated pool plus every
// active envelope's assigned/activity/available and goal state.
type Summary struct {
	Month         time.Time      `json:"-"`
	ReadyToAssign Money          `json:"ready_to_assign"`
	Groups        []GroupSummary `json:"groups"`
	Totals        Totals         `json:"totals"`
}
