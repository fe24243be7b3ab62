package sqlstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/leave"
)

type employeeRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	DepartmentID sql.NullString `db:"department_id"`
	ManagerID    sql.NullString `db:"manager_id"`
	Role         string         `db:"role"`
}

func (row employeeRow) toEmployee() leave.Employee {
	return leave.Employee{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		DepartmentID: row.DepartmentID.String,
		ManagerID:    row.ManagerID.String,
		Role:         leave.Role(row.Role),
	}
}

const selectEmployee = "SELECT id, name, email, department_id, manager_id, role FROM employees"

func (r repo) Employee(ctx context.Context, id string) (*leave.Employee, error) {
	var row employeeRow
	found, err := r.get(ctx, &row, selectEmployee+" WHERE id = ?", id)
	if err != nil {
		return nil, errors.Wrap(err, "select employee")
	}
	if !found {
		return nil, nil
	}
	e := row.toEmployee()
	return &e, nil
}

func (r repo) DepartmentMembers(ctx context.Context, departmentID string) ([]leave.Employee, error) {
	var rows []employeeRow
	if err := r.selectAll(ctx, &rows, selectEmployee+" WHERE department_id = ? ORDER BY id", departmentID); err != nil {
		return nil, errors.Wrap(err, "select department members")
	}
	out := make([]leave.Employee, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEmployee())
	}
	return out, nil
}

// UpsertEmployee maintains the directory read model. The surrounding
// application owns employee records; this engine only reads them.
func (s *Store) UpsertEmployee(ctx context.Context, e leave.Employee) error {
	role := e.Role
	if role == "" {
		role = leave.RoleEmployee
	}
	_, err := s.exec(ctx, `INSERT INTO employees (id, name, email, department_id, manager_id, role)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department_id = excluded.department_id,
			manager_id = excluded.manager_id,
			role = excluded.role`,
		e.ID, e.Name, e.Email, nullString(e.DepartmentID), nullString(e.ManagerID), string(role))
	return errors.Wrap(err, "upsert employee")
}
