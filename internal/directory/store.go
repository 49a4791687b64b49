package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL directory store. All multi-row mutations run
// inside one transaction so an employee row change and its phone rows
// commit or roll back together.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
    e.id, e.first_name, e.last_name, e.email, e.doc_number, e.age,
    e.position, e.department, e.salary, e.hire_date,
    e.manager_id,
    COALESCE(m.first_name || ' ' || m.last_name, ''),
    e.permission_level, e.created_at, e.updated_at`

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    LEFT JOIN employees m ON e.manager_id = m.id
    ORDER BY e.id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Employee, 0, 16)
	index := map[int64]int{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		index[emp.ID] = len(out)
		out = append(out, *emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	phoneRows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, phone_number, phone_type, is_primary, created_at
    FROM employee_phones
    ORDER BY employee_id, id
  `)
	if err != nil {
		return nil, err
	}
	defer phoneRows.Close()

	for phoneRows.Next() {
		var phone EmployeePhone
		if err := phoneRows.Scan(&phone.ID, &phone.EmployeeID, &phone.PhoneNumber, &phone.PhoneType, &phone.IsPrimary, &phone.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[phone.EmployeeID]; ok {
			out[i].Phones = append(out[i].Phones, phone)
		}
	}
	return out, phoneRows.Err()
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    LEFT JOIN employees m ON e.manager_id = m.id
    WHERE e.id = $1
  `, id)
	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	emp.Phones, err = s.phonesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    LEFT JOIN employees m ON e.manager_id = m.id
    WHERE e.email = $1
  `, email)
	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	emp.Phones, err = s.phonesFor(ctx, emp.ID)
	if err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *Store) EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE email = $1 AND id <> $2
  `, email, excludeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DocNumberInUse(ctx context.Context, docNumber string, excludeID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE doc_number = $1 AND id <> $2
  `, docNumber, excludeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ManagerID(ctx context.Context, employeeID int64) (*int64, error) {
	var managerID *int64
	err := s.DB.QueryRow(ctx, `
    SELECT manager_id FROM employees WHERE id = $1
  `, employeeID).Scan(&managerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return managerID, nil
}

func (s *Store) SubordinateCount(ctx context.Context, employeeID int64) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE manager_id = $1
  `, employeeID).Scan(&count)
	return count, err
}

func (s *Store) Create(ctx context.Context, emp Employee, phones []EmployeePhone) (*Employee, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
    INSERT INTO employees (first_name, last_name, email, doc_number, age, position,
      department, salary, hire_date, manager_id, permission_level)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `,
		emp.FirstName, emp.LastName, emp.Email, emp.DocNumber, emp.Age, emp.Position,
		emp.Department, emp.Salary, emp.HireDate, emp.ManagerID, int(emp.PermissionLevel),
	).Scan(&id)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	if err := insertPhones(ctx, tx, id, phones); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Update(ctx context.Context, emp Employee, replacePhones bool, phones []EmployeePhone) (*Employee, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, `
    UPDATE employees
    SET first_name = $1,
        last_name = $2,
        email = $3,
        doc_number = $4,
        age = $5,
        position = $6,
        department = $7,
        salary = $8,
        hire_date = $9,
        manager_id = $10,
        permission_level = $11,
        updated_at = $12
    WHERE id = $13
  `,
		emp.FirstName, emp.LastName, emp.Email, emp.DocNumber, emp.Age, emp.Position,
		emp.Department, emp.Salary, emp.HireDate, emp.ManagerID, int(emp.PermissionLevel),
		emp.UpdatedAt, emp.ID,
	)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if replacePhones {
		if _, err := tx.Exec(ctx, `DELETE FROM employee_phones WHERE employee_id = $1`, emp.ID); err != nil {
			return nil, err
		}
		if err := insertPhones(ctx, tx, emp.ID, phones); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, emp.ID)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		// Backstop for a subordinate appearing between the pre-check
		// and the delete; the RESTRICT constraint has the final say.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrHasSubordinates
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) phonesFor(ctx context.Context, employeeID int64) ([]EmployeePhone, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, phone_number, phone_type, is_primary, created_at
    FROM employee_phones
    WHERE employee_id = $1
    ORDER BY id
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]EmployeePhone, 0, 2)
	for rows.Next() {
		var phone EmployeePhone
		if err := rows.Scan(&phone.ID, &phone.EmployeeID, &phone.PhoneNumber, &phone.PhoneType, &phone.IsPrimary, &phone.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, phone)
	}
	return out, rows.Err()
}

func insertPhones(ctx context.Context, tx pgx.Tx, employeeID int64, phones []EmployeePhone) error {
	for _, phone := range phones {
		_, err := tx.Exec(ctx, `
      INSERT INTO employee_phones (employee_id, phone_number, phone_type, is_primary, created_at)
      VALUES ($1,$2,$3,$4,$5)
    `, employeeID, phone.PhoneNumber, phone.PhoneType, phone.IsPrimary, phone.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanEmployee(row pgx.Row) (*Employee, error) {
	var emp Employee
	var level int
	err := row.Scan(
		&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.DocNumber, &emp.Age,
		&emp.Position, &emp.Department, &emp.Salary, &emp.HireDate,
		&emp.ManagerID, &emp.ManagerName,
		&level, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	emp.PermissionLevel = PermissionLevel(level)
	return &emp, nil
}

// mapConstraintError turns the storage-layer uniqueness backstop into
// the same conflict kinds the friendly pre-checks produce, so racing
// writers see a 409 and not a bare SQL error.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case "employees_email_key":
			return &ConflictError{Field: "email", Reason: "an employee with this email already exists"}
		case "employees_doc_number_key":
			return &ConflictError{Field: "docNumber", Reason: "an employee with this document number already exists"}
		}
		return &ConflictError{Field: "employee", Reason: "duplicate value"}
	case "23503":
		if pgErr.ConstraintName == "employees_manager_id_fkey" {
			return &ValidationError{Issues: []FieldIssue{{Field: "managerId", Reason: "must reference an existing employee"}}}
		}
	}
	return err
}
