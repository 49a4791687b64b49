package directory

import "context"

// StoreAPI is the persistence surface the service depends on. The
// production implementation is the pgx Store; tests use an in-memory
// fake.
type StoreAPI interface {
	List(ctx context.Context) ([]Employee, error)
	GetByID(ctx context.Context, id int64) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error)
	DocNumberInUse(ctx context.Context, docNumber string, excludeID int64) (bool, error)
	ManagerID(ctx context.Context, employeeID int64) (*int64, error)
	SubordinateCount(ctx context.Context, employeeID int64) (int, error)
	Create(ctx context.Context, emp Employee, phones []EmployeePhone) (*Employee, error)
	Update(ctx context.Context, emp Employee, replacePhones bool, phones []EmployeePhone) (*Employee, error)
	Delete(ctx context.Context, id int64) error
}
