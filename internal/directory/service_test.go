package directory

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	employees map[int64]Employee
	phones    map[int64][]EmployeePhone
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employees: map[int64]Employee{},
		phones:    map[int64][]EmployeePhone{},
		nextID:    1,
	}
}

func (f *fakeStore) List(ctx context.Context) ([]Employee, error) {
	out := make([]Employee, 0, len(f.employees))
	for id := int64(1); id < f.nextID; id++ {
		if emp, ok := f.employees[id]; ok {
			emp.Phones = append([]EmployeePhone(nil), f.phones[id]...)
			out = append(out, emp)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*Employee, error) {
	emp, ok := f.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	emp.Phones = append([]EmployeePhone(nil), f.phones[id]...)
	return &emp, nil
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	for id, emp := range f.employees {
		if emp.Email == email {
			return f.GetByID(ctx, id)
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error) {
	for id, emp := range f.employees {
		if id != excludeID && emp.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DocNumberInUse(ctx context.Context, docNumber string, excludeID int64) (bool, error) {
	for id, emp := range f.employees {
		if id != excludeID && emp.DocNumber == docNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ManagerID(ctx context.Context, employeeID int64) (*int64, error) {
	emp, ok := f.employees[employeeID]
	if !ok {
		return nil, ErrNotFound
	}
	return emp.ManagerID, nil
}

func (f *fakeStore) SubordinateCount(ctx context.Context, employeeID int64) (int, error) {
	count := 0
	for _, emp := range f.employees {
		if emp.ManagerID != nil && *emp.ManagerID == employeeID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Create(ctx context.Context, emp Employee, phones []EmployeePhone) (*Employee, error) {
	emp.ID = f.nextID
	f.nextID++
	emp.CreatedAt = time.Now().UTC()
	f.employees[emp.ID] = emp
	for i := range phones {
		phones[i].EmployeeID = emp.ID
	}
	f.phones[emp.ID] = phones
	return f.GetByID(ctx, emp.ID)
}

func (f *fakeStore) Update(ctx context.Context, emp Employee, replacePhones bool, phones []EmployeePhone) (*Employee, error) {
	if _, ok := f.employees[emp.ID]; !ok {
		return nil, ErrNotFound
	}
	f.employees[emp.ID] = emp
	if replacePhones {
		for i := range phones {
			phones[i].EmployeeID = emp.ID
		}
		f.phones[emp.ID] = phones
	}
	return f.GetByID(ctx, emp.ID)
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.employees[id]; !ok {
		return ErrNotFound
	}
	delete(f.employees, id)
	delete(f.phones, id)
	return nil
}

const directorEmail = "root@example.com"

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	service := NewService(store)

	_, err := store.Create(context.Background(), Employee{
		FirstName:       "Root",
		LastName:        "Director",
		Email:           directorEmail,
		DocNumber:       "DOC-ROOT",
		Age:             45,
		Position:        "CEO",
		Salary:          0,
		HireDate:        time.Now().Add(-24 * time.Hour).UTC(),
		PermissionLevel: LevelDirector,
	}, nil)
	if err != nil {
		t.Fatalf("seed director: %v", err)
	}
	return service, store
}

func validCreateParams(email, doc string) CreateEmployeeParams {
	return CreateEmployeeParams{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           email,
		DocNumber:       doc,
		Age:             30,
		Position:        "Engineer",
		Department:      "R&D",
		Salary:          1234.567,
		HireDate:        time.Now().Add(-time.Hour),
		PermissionLevel: LevelEmployee,
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	params := validCreateParams("ada@example.com", "DOC-1")
	params.Phones = []PhoneInput{
		{PhoneNumber: "555-0100", IsPrimary: true},
		{PhoneNumber: ""}, // dropped
	}

	created, err := service.Create(ctx, directorEmail, params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}
	if created.Salary != 1234.57 {
		t.Fatalf("expected salary rounded to 1234.57, got %v", created.Salary)
	}
	if created.UpdatedAt != nil {
		t.Fatal("expected nil updatedAt on fresh employee")
	}

	fetched, err := service.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Email != "ada@example.com" || fetched.DocNumber != "DOC-1" || fetched.Age != 30 {
		t.Fatalf("stored fields do not match input: %+v", fetched)
	}
	if len(fetched.Phones) != 1 {
		t.Fatalf("expected empty phone entry dropped, got %d phones", len(fetched.Phones))
	}
	if fetched.Phones[0].PhoneType != "Mobile" {
		t.Fatalf("expected default phone type Mobile, got %q", fetched.Phones[0].PhoneType)
	}

	again, err := service.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if again.ID != fetched.ID || again.Email != fetched.Email || len(again.Phones) != len(fetched.Phones) {
		t.Fatal("repeated reads with no writes returned different results")
	}
}

func TestCreateDuplicateEmailAndDocNumber(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, directorEmail, validCreateParams("dup@example.com", "DOC-1")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	before := len(store.employees)

	var conflictErr *ConflictError
	_, err := service.Create(ctx, directorEmail, validCreateParams("dup@example.com", "DOC-2"))
	if !errors.As(err, &conflictErr) || conflictErr.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}

	_, err = service.Create(ctx, directorEmail, validCreateParams("other@example.com", "DOC-1"))
	if !errors.As(err, &conflictErr) || conflictErr.Field != "docNumber" {
		t.Fatalf("expected docNumber conflict, got %v", err)
	}

	if len(store.employees) != before {
		t.Fatalf("conflicting creates must not persist rows: before=%d after=%d", before, len(store.employees))
	}
}

func TestCreateAgeBoundary(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	params := validCreateParams("young@example.com", "DOC-15")
	params.Age = 15
	var validationErr *ValidationError
	if _, err := service.Create(ctx, directorEmail, params); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for age 15, got %v", err)
	}

	params.Age = 16
	if _, err := service.Create(ctx, directorEmail, params); err != nil {
		t.Fatalf("age 16 should be accepted: %v", err)
	}
}

func TestCreateFutureHireDateRejected(t *testing.T) {
	service, _ := newTestService(t)

	params := validCreateParams("future@example.com", "DOC-F")
	params.HireDate = time.Now().Add(48 * time.Hour)
	var validationErr *ValidationError
	if _, err := service.Create(context.Background(), directorEmail, params); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for future hire date, got %v", err)
	}
}

func TestCreateInvalidEmailRejected(t *testing.T) {
	service, _ := newTestService(t)

	params := validCreateParams("not-an-email", "DOC-E")
	var validationErr *ValidationError
	if _, err := service.Create(context.Background(), directorEmail, params); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}
}

func TestAuthorizationPolicy(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	params := validCreateParams("worker@example.com", "DOC-W")
	if _, err := service.Create(ctx, directorEmail, params); err != nil {
		t.Fatalf("director creating employee failed: %v", err)
	}

	// Employee-level actor may only assign Employee.
	escalation := validCreateParams("boss@example.com", "DOC-B")
	escalation.PermissionLevel = LevelDirector
	if _, err := service.Create(ctx, "worker@example.com", escalation); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for employee assigning director, got %v", err)
	}
	peer := validCreateParams("peer@example.com", "DOC-P")
	if _, err := service.Create(ctx, "worker@example.com", peer); err != nil {
		t.Fatalf("employee creating employee-level peer failed: %v", err)
	}

	// Leader may assign up to Leader, never Director.
	leader := validCreateParams("leader@example.com", "DOC-L")
	leader.PermissionLevel = LevelLeader
	if _, err := service.Create(ctx, directorEmail, leader); err != nil {
		t.Fatalf("director creating leader failed: %v", err)
	}
	fromLeader := validCreateParams("ld@example.com", "DOC-LD")
	fromLeader.PermissionLevel = LevelDirector
	if _, err := service.Create(ctx, "leader@example.com", fromLeader); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for leader assigning director, got %v", err)
	}
	fromLeader.PermissionLevel = LevelLeader
	if _, err := service.Create(ctx, "leader@example.com", fromLeader); err != nil {
		t.Fatalf("leader creating leader failed: %v", err)
	}

	// Director assigning Director succeeds.
	top := validCreateParams("top@example.com", "DOC-T")
	top.PermissionLevel = LevelDirector
	if _, err := service.Create(ctx, directorEmail, top); err != nil {
		t.Fatalf("director creating director failed: %v", err)
	}
}

func TestUnresolvedActorRejected(t *testing.T) {
	service, _ := newTestService(t)

	params := validCreateParams("ghost@example.com", "DOC-G")
	_, err := service.Create(context.Background(), "nobody@example.com", params)
	if !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor rejection, got %v", err)
	}
}

func TestManagerCycleAndRestrictedDelete(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// Employee A, Director.
	paramsA := validCreateParams("a@example.com", "DOC-A")
	paramsA.PermissionLevel = LevelDirector
	empA, err := service.Create(ctx, directorEmail, paramsA)
	if err != nil {
		t.Fatalf("create A failed: %v", err)
	}

	// Employee B reports to A.
	paramsB := validCreateParams("b@example.com", "DOC-B")
	paramsB.ManagerID = &empA.ID
	empB, err := service.Create(ctx, "a@example.com", paramsB)
	if err != nil {
		t.Fatalf("create B failed: %v", err)
	}

	// A cannot report to B: the chain B -> A would close on A.
	var conflictErr *ConflictError
	_, err = service.Update(ctx, directorEmail, empA.ID, UpdateEmployeeParams{ManagerID: Some(empB.ID)})
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected cycle conflict, got %v", err)
	}

	// Self-management is rejected too.
	_, err = service.Update(ctx, directorEmail, empA.ID, UpdateEmployeeParams{ManagerID: Some(empA.ID)})
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected self-manager conflict, got %v", err)
	}

	// Deleting A while B references it is restricted, and A stays.
	if err := service.Delete(ctx, empA.ID); !errors.Is(err, ErrHasSubordinates) {
		t.Fatalf("expected restricted delete, got %v", err)
	}
	if _, err := service.GetByID(ctx, empA.ID); err != nil {
		t.Fatalf("A must remain retrievable after restricted delete: %v", err)
	}

	// Clear B's manager, then deleting A succeeds.
	if _, err := service.Update(ctx, directorEmail, empB.ID, UpdateEmployeeParams{ManagerID: Null[int64]()}); err != nil {
		t.Fatalf("clearing manager failed: %v", err)
	}
	if err := service.Delete(ctx, empA.ID); err != nil {
		t.Fatalf("delete A failed: %v", err)
	}
	if _, err := service.GetByID(ctx, empA.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDeepCycleRejected(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// Chain: c1 <- c2 <- c3 (c3 reports to c2 reports to c1).
	c1, err := service.Create(ctx, directorEmail, validCreateParams("c1@example.com", "DOC-C1"))
	if err != nil {
		t.Fatalf("create c1: %v", err)
	}
	p2 := validCreateParams("c2@example.com", "DOC-C2")
	p2.ManagerID = &c1.ID
	c2, err := service.Create(ctx, directorEmail, p2)
	if err != nil {
		t.Fatalf("create c2: %v", err)
	}
	p3 := validCreateParams("c3@example.com", "DOC-C3")
	p3.ManagerID = &c2.ID
	c3, err := service.Create(ctx, directorEmail, p3)
	if err != nil {
		t.Fatalf("create c3: %v", err)
	}

	// c1 -> c3 would make c1 its own ancestor two levels up.
	var conflictErr *ConflictError
	_, err = service.Update(ctx, directorEmail, c1.ID, UpdateEmployeeParams{ManagerID: Some(c3.ID)})
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected cycle conflict through transitive chain, got %v", err)
	}
}

func TestUpdateTriState(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, directorEmail, validCreateParams("tri@example.com", "DOC-TRI"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Absent fields stay untouched.
	updated, err := service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{
		Position: Some("Senior Engineer"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Position != "Senior Engineer" {
		t.Fatalf("position not updated: %q", updated.Position)
	}
	if updated.FirstName != created.FirstName || updated.Department != created.Department {
		t.Fatal("absent fields must not change")
	}
	if updated.UpdatedAt == nil {
		t.Fatal("updatedAt must be set after first update")
	}

	// Explicit null clears department but not required fields.
	updated, err = service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{
		Department: Null[string](),
	})
	if err != nil {
		t.Fatalf("clearing department failed: %v", err)
	}
	if updated.Department != "" {
		t.Fatalf("department should be cleared, got %q", updated.Department)
	}

	var validationErr *ValidationError
	_, err = service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{
		FirstName: Null[string](),
	})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error clearing firstName, got %v", err)
	}
}

func TestUpdatePermissionLevelRequiresPolicy(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	leader := validCreateParams("lead2@example.com", "DOC-LE2")
	leader.PermissionLevel = LevelLeader
	if _, err := service.Create(ctx, directorEmail, leader); err != nil {
		t.Fatalf("create leader: %v", err)
	}
	target, err := service.Create(ctx, directorEmail, validCreateParams("tgt@example.com", "DOC-TGT"))
	if err != nil {
		t.Fatalf("create target: %v", err)
	}

	_, err = service.Update(ctx, "lead2@example.com", target.ID, UpdateEmployeeParams{
		PermissionLevel: Some(LevelDirector),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for leader promoting to director, got %v", err)
	}

	// An update that touches no permission level needs no actor record.
	if _, err := service.Update(ctx, "nobody@example.com", target.ID, UpdateEmployeeParams{
		Position: Some("Analyst"),
	}); err != nil {
		t.Fatalf("non-privileged update should not require actor resolution: %v", err)
	}
}

func TestUpdateDuplicateEmailConflict(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, directorEmail, validCreateParams("one@example.com", "DOC-O1")); err != nil {
		t.Fatalf("create one: %v", err)
	}
	two, err := service.Create(ctx, directorEmail, validCreateParams("two@example.com", "DOC-O2"))
	if err != nil {
		t.Fatalf("create two: %v", err)
	}

	var conflictErr *ConflictError
	_, err = service.Update(ctx, directorEmail, two.ID, UpdateEmployeeParams{
		Email: Some("one@example.com"),
	})
	if !errors.As(err, &conflictErr) || conflictErr.Field != "email" {
		t.Fatalf("expected email conflict on update, got %v", err)
	}
}

func TestUpdatePhoneReplacement(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	params := validCreateParams("phones@example.com", "DOC-PH")
	params.Phones = []PhoneInput{
		{PhoneNumber: "555-0001", PhoneType: "Home"},
		{PhoneNumber: "555-0002"},
	}
	created, err := service.Create(ctx, directorEmail, params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(created.Phones) != 2 {
		t.Fatalf("expected 2 phones, got %d", len(created.Phones))
	}

	updated, err := service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{
		Phones: Some([]PhoneInput{{PhoneNumber: "555-9999", IsPrimary: true}}),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Phones) != 1 || updated.Phones[0].PhoneNumber != "555-9999" {
		t.Fatalf("phone list must be fully replaced, got %+v", updated.Phones)
	}

	// Empty list removes every phone.
	updated, err = service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{
		Phones: Some([]PhoneInput{}),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Phones) != 0 {
		t.Fatalf("expected all phones removed, got %+v", updated.Phones)
	}

	// Absent phone list leaves phones alone.
	updated, err = service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{
		Position: Some("Architect"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Phones) != 0 {
		t.Fatalf("absent phone list must not change phones, got %+v", updated.Phones)
	}
}

func TestGetAndDeleteValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	var validationErr *ValidationError
	if _, err := service.GetByID(ctx, 0); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for id 0, got %v", err)
	}
	if err := service.Delete(ctx, -5); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for negative id, got %v", err)
	}
	if _, err := service.GetByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := service.Delete(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestUpdateManagerMustExist(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, directorEmail, validCreateParams("mgr@example.com", "DOC-M"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var validationErr *ValidationError
	_, err = service.Update(ctx, directorEmail, created.ID, UpdateEmployeeParams{ManagerID: Some(int64(4242))})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for missing manager, got %v", err)
	}
}
