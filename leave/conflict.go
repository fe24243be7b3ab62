package leave

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/leave-engine/generic"
)

// ConflictDetector finds department colleagues whose approved leave overlaps
// a candidate range. Employees without a department never conflict.
type ConflictDetector struct{}

// Find returns every overlapping approved annual or personal entry of the
// employee's department-mates in the year, ordered by start date.
func (ConflictDetector) Find(ctx context.Context, repo Repository, emp *Employee, rng generic.Period, yearID string) ([]Conflict, error) {
	if emp.DepartmentID == "" {
		return nil, nil
	}

	members, err := repo.DepartmentMembers(ctx, emp.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("load department %s: %w", emp.DepartmentID, err)
	}
	names := make(map[string]string, len(members))
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m.ID == emp.ID {
			continue
		}
		names[m.ID] = m.Name
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	entries, err := repo.ApprovedEntries(ctx, ids, yearID, AllowanceTypes)
	if err != nil {
		return nil, fmt.Errorf("load colleague leave: %w", err)
	}

	var out []Conflict
	for _, e := range entries {
		if !rng.Overlaps(e.Period()) {
			continue
		}
		out = append(out, Conflict{
			EntryID:       e.ID,
			ColleagueID:   e.EmployeeID,
			ColleagueName: names[e.EmployeeID],
			Start:         e.Start,
			End:           e.End,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
