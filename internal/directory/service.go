package directory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
)

// maxManagerChain bounds the ancestor walk. A chain longer than this
// means the forest is already broken, so it is rejected like a cycle.
const maxManagerChain = 1000

const (
	maxNameLen       = 100
	maxEmailLen      = 100
	maxDocNumberLen  = 20
	maxPositionLen   = 100
	maxDepartmentLen = 200
	maxPhoneLen      = 20
	maxPhoneTypeLen  = 50
	minAge           = 16
	maxAge           = 100
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

type CreateEmployeeParams struct {
	FirstName       string
	LastName        string
	Email           string
	DocNumber       string
	Age             int
	Position        string
	Department      string
	Salary          float64
	HireDate        time.Time
	ManagerID       *int64
	PermissionLevel PermissionLevel
	Phones          []PhoneInput
}

type UpdateEmployeeParams struct {
	FirstName       Optional[string]
	LastName        Optional[string]
	Email           Optional[string]
	DocNumber       Optional[string]
	Age             Optional[int]
	Position        Optional[string]
	Department      Optional[string]
	Salary          Optional[float64]
	HireDate        Optional[time.Time]
	ManagerID       Optional[int64]
	PermissionLevel Optional[PermissionLevel]
	Phones          Optional[[]PhoneInput]
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.store.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Employee, error) {
	if id <= 0 {
		return nil, &ValidationError{Issues: []FieldIssue{{Field: "id", Reason: "must be a positive integer"}}}
	}
	return s.store.GetByID(ctx, id)
}

// FindByEmail resolves the employee record behind an authenticated
// email, or ErrNotFound.
func (s *Service) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	return s.store.FindByEmail(ctx, strings.TrimSpace(email))
}

// Create inserts a new employee after validating business rules and
// checking that the acting identity may assign the requested
// permission level.
func (s *Service) Create(ctx context.Context, actorEmail string, p CreateEmployeeParams) (*Employee, error) {
	v := &validator{}
	validateName(v, "firstName", p.FirstName)
	validateName(v, "lastName", p.LastName)
	validateEmail(v, p.Email)
	validateDocNumber(v, p.DocNumber)
	validateAge(v, p.Age)
	validatePosition(v, p.Position)
	validateDepartment(v, p.Department)
	validateSalary(v, p.Salary)
	s.validateHireDate(v, p.HireDate)
	validatePhones(v, p.Phones)

	level := p.PermissionLevel
	if level == 0 {
		level = LevelEmployee
	}
	if !level.Valid() {
		v.add("permissionLevel", "must be Employee, Leader or Director")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.authorizeAssignment(ctx, actorEmail, level); err != nil {
		return nil, err
	}

	// Friendly pre-checks; the unique indexes remain the backstop
	// against racing creates.
	if taken, err := s.store.EmailInUse(ctx, p.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, &ConflictError{Field: "email", Reason: "an employee with this email already exists"}
	}
	if taken, err := s.store.DocNumberInUse(ctx, p.DocNumber, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, &ConflictError{Field: "docNumber", Reason: "an employee with this document number already exists"}
	}

	if p.ManagerID != nil {
		if _, err := s.store.GetByID(ctx, *p.ManagerID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &ValidationError{Issues: []FieldIssue{{Field: "managerId", Reason: "must reference an existing employee"}}}
			}
			return nil, err
		}
	}

	emp := Employee{
		FirstName:       strings.TrimSpace(p.FirstName),
		LastName:        strings.TrimSpace(p.LastName),
		Email:           strings.TrimSpace(p.Email),
		DocNumber:       strings.TrimSpace(p.DocNumber),
		Age:             p.Age,
		Position:        strings.TrimSpace(p.Position),
		Department:      strings.TrimSpace(p.Department),
		Salary:          roundMoney(p.Salary),
		HireDate:        p.HireDate.UTC(),
		ManagerID:       p.ManagerID,
		PermissionLevel: level,
	}
	return s.store.Create(ctx, emp, normalizePhones(p.Phones, s.now()))
}

// Update applies a tri-state partial update: absent fields stay,
// explicit nulls clear the nullable fields, supplied values overwrite.
func (s *Service) Update(ctx context.Context, actorEmail string, id int64, p UpdateEmployeeParams) (*Employee, error) {
	if id <= 0 {
		return nil, &ValidationError{Issues: []FieldIssue{{Field: "id", Reason: "must be a positive integer"}}}
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &validator{}
	emp := *existing
	emp.ManagerName = ""
	emp.Phones = nil

	if p.FirstName.Present {
		if !p.FirstName.Valid {
			v.add("firstName", "cannot be cleared")
		} else {
			validateName(v, "firstName", p.FirstName.Value)
			emp.FirstName = strings.TrimSpace(p.FirstName.Value)
		}
	}
	if p.LastName.Present {
		if !p.LastName.Valid {
			v.add("lastName", "cannot be cleared")
		} else {
			validateName(v, "lastName", p.LastName.Value)
			emp.LastName = strings.TrimSpace(p.LastName.Value)
		}
	}
	if p.Email.Present {
		if !p.Email.Valid {
			v.add("email", "cannot be cleared")
		} else {
			validateEmail(v, p.Email.Value)
			emp.Email = strings.TrimSpace(p.Email.Value)
		}
	}
	if p.DocNumber.Present {
		if !p.DocNumber.Valid {
			v.add("docNumber", "cannot be cleared")
		} else {
			validateDocNumber(v, p.DocNumber.Value)
			emp.DocNumber = strings.TrimSpace(p.DocNumber.Value)
		}
	}
	if p.Age.Present {
		if !p.Age.Valid {
			v.add("age", "cannot be cleared")
		} else {
			validateAge(v, p.Age.Value)
			emp.Age = p.Age.Value
		}
	}
	if p.Position.Present {
		if !p.Position.Valid {
			v.add("position", "cannot be cleared")
		} else {
			validatePosition(v, p.Position.Value)
			emp.Position = strings.TrimSpace(p.Position.Value)
		}
	}
	if p.Department.Present {
		if !p.Department.Valid {
			emp.Department = ""
		} else {
			validateDepartment(v, p.Department.Value)
			emp.Department = strings.TrimSpace(p.Department.Value)
		}
	}
	if p.Salary.Present {
		if !p.Salary.Valid {
			v.add("salary", "cannot be cleared")
		} else {
			validateSalary(v, p.Salary.Value)
			emp.Salary = roundMoney(p.Salary.Value)
		}
	}
	if p.HireDate.Present {
		if !p.HireDate.Valid {
			v.add("hireDate", "cannot be cleared")
		} else {
			s.validateHireDate(v, p.HireDate.Value)
			emp.HireDate = p.HireDate.Value.UTC()
		}
	}
	if p.PermissionLevel.Present {
		if !p.PermissionLevel.Valid {
			v.add("permissionLevel", "cannot be cleared")
		} else if !p.PermissionLevel.Value.Valid() {
			v.add("permissionLevel", "must be Employee, Leader or Director")
		} else {
			emp.PermissionLevel = p.PermissionLevel.Value
		}
	}
	if p.ManagerID.Present {
		if !p.ManagerID.Valid {
			emp.ManagerID = nil
		} else if p.ManagerID.Value <= 0 {
			v.add("managerId", "must be a positive integer")
		} else {
			managerID := p.ManagerID.Value
			emp.ManagerID = &managerID
		}
	}
	if p.Phones.Present && p.Phones.Valid {
		validatePhones(v, p.Phones.Value)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if p.PermissionLevel.Present {
		if err := s.authorizeAssignment(ctx, actorEmail, emp.PermissionLevel); err != nil {
			return nil, err
		}
	}

	if p.Email.Present && emp.Email != existing.Email {
		if taken, err := s.store.EmailInUse(ctx, emp.Email, id); err != nil {
			return nil, err
		} else if taken {
			return nil, &ConflictError{Field: "email", Reason: "an employee with this email already exists"}
		}
	}
	if p.DocNumber.Present && emp.DocNumber != existing.DocNumber {
		if taken, err := s.store.DocNumberInUse(ctx, emp.DocNumber, id); err != nil {
			return nil, err
		} else if taken {
			return nil, &ConflictError{Field: "docNumber", Reason: "an employee with this document number already exists"}
		}
	}

	// Reassignment is exactly the operation that can introduce a cycle,
	// so the guard runs on every manager change, not just at creation.
	if emp.ManagerID != nil {
		if err := s.checkManagerAssignment(ctx, id, *emp.ManagerID); err != nil {
			return nil, err
		}
	}

	updatedAt := s.now().UTC()
	emp.UpdatedAt = &updatedAt

	replacePhones := p.Phones.Present
	var phones []EmployeePhone
	if replacePhones && p.Phones.Valid {
		phones = normalizePhones(p.Phones.Value, s.now())
	}
	return s.store.Update(ctx, emp, replacePhones, phones)
}

// Delete removes an employee and, by cascade, its phones. It refuses
// while any other employee still names the target as manager.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &ValidationError{Issues: []FieldIssue{{Field: "id", Reason: "must be a positive integer"}}}
	}
	count, err := s.store.SubordinateCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrHasSubordinates
	}
	return s.store.Delete(ctx, id)
}

// authorizeAssignment resolves the acting employee by email and checks
// the ordinal policy. The acting level is always looked up fresh from
// the store, never taken from a client-supplied claim.
func (s *Service) authorizeAssignment(ctx context.Context, actorEmail string, target PermissionLevel) error {
	actor, err := s.store.FindByEmail(ctx, strings.TrimSpace(actorEmail))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownActor
		}
		return err
	}
	if !actor.PermissionLevel.CanAssign(target) {
		return ErrForbidden
	}
	return nil
}

// checkManagerAssignment verifies that the candidate manager exists
// and that following its manager chain never reaches employeeID. The
// walk uses repeated id lookups, O(depth) per mutation.
func (s *Service) checkManagerAssignment(ctx context.Context, employeeID, managerID int64) error {
	if managerID == employeeID {
		return &ConflictError{Field: "managerId", Reason: "an employee cannot be its own manager"}
	}
	if _, err := s.store.GetByID(ctx, managerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Issues: []FieldIssue{{Field: "managerId", Reason: "must reference an existing employee"}}}
		}
		return err
	}

	current := managerID
	for depth := 0; depth < maxManagerChain; depth++ {
		next, err := s.store.ManagerID(ctx, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if next == nil {
			return nil
		}
		if *next == employeeID {
			return &ConflictError{Field: "managerId", Reason: "assignment would create a cycle in the manager chain"}
		}
		current = *next
	}
	return &ConflictError{Field: "managerId", Reason: fmt.Sprintf("manager chain exceeds %d levels", maxManagerChain)}
}

func (s *Service) validateHireDate(v *validator, hireDate time.Time) {
	if hireDate.IsZero() {
		v.add("hireDate", "is required")
		return
	}
	if hireDate.After(s.now()) {
		v.add("hireDate", "must not be in the future")
	}
}

func validateName(v *validator, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add(field, "is required")
		return
	}
	if len(value) > maxNameLen {
		v.add(field, fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
}

func validateEmail(v *validator, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add("email", "is required")
		return
	}
	if len(value) > maxEmailLen {
		v.add("email", fmt.Sprintf("must be at most %d characters", maxEmailLen))
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.add("email", "must be a valid email address")
	}
}

func validateDocNumber(v *validator, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add("docNumber", "is required")
		return
	}
	if len(value) > maxDocNumberLen {
		v.add("docNumber", fmt.Sprintf("must be at most %d characters", maxDocNumberLen))
	}
}

func validateAge(v *validator, age int) {
	if age < minAge || age > maxAge {
		v.add("age", fmt.Sprintf("must be between %d and %d", minAge, maxAge))
	}
}

func validatePosition(v *validator, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add("position", "is required")
		return
	}
	if len(value) > maxPositionLen {
		v.add("position", fmt.Sprintf("must be at most %d characters", maxPositionLen))
	}
}

func validateDepartment(v *validator, value string) {
	if len(strings.TrimSpace(value)) > maxDepartmentLen {
		v.add("department", fmt.Sprintf("must be at most %d characters", maxDepartmentLen))
	}
}

func validateSalary(v *validator, salary float64) {
	if salary < 0 {
		v.add("salary", "must not be negative")
	}
}

func validatePhones(v *validator, phones []PhoneInput) {
	for i, phone := range phones {
		if strings.TrimSpace(phone.PhoneNumber) == "" {
			continue // dropped, not an error
		}
		if len(phone.PhoneNumber) > maxPhoneLen {
			v.add(fmt.Sprintf("phones[%d].phoneNumber", i), fmt.Sprintf("must be at most %d characters", maxPhoneLen))
		}
		if len(phone.PhoneType) > maxPhoneTypeLen {
			v.add(fmt.Sprintf("phones[%d].phoneType", i), fmt.Sprintf("must be at most %d characters", maxPhoneTypeLen))
		}
	}
}

// normalizePhones drops entries without a number and applies the
// "Mobile" default, mirroring what callers have always been sent.
func normalizePhones(inputs []PhoneInput, now time.Time) []EmployeePhone {
	out := make([]EmployeePhone, 0, len(inputs))
	for _, input := range inputs {
		number := strings.TrimSpace(input.PhoneNumber)
		if number == "" {
			continue
		}
		phoneType := strings.TrimSpace(input.PhoneType)
		if phoneType == "" {
			phoneType = "Mobile"
		}
		out = append(out, EmployeePhone{
			PhoneNumber: number,
			PhoneType:   phoneType,
			IsPrimary:   input.IsPrimary,
			CreatedAt:   now.UTC(),
		})
	}
	return out
}

func roundMoney(value float64) float64 {
	return math.Round(value*100) / 100
}
