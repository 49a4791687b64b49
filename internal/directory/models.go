package directory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PermissionLevel is the ordinal authorization tier attached to an
// employee. Higher levels may assign lower or equal levels.
type PermissionLevel int

const (
	LevelEmployee PermissionLevel = 1
	LevelLeader   PermissionLevel = 2
	LevelDirector PermissionLevel = 3
)

func (l PermissionLevel) Valid() bool {
	return l >= LevelEmployee && l <= LevelDirector
}

func (l PermissionLevel) String() string {
	switch l {
	case LevelEmployee:
		return "Employee"
	case LevelLeader:
		return "Leader"
	case LevelDirector:
		return "Director"
	}
	return "Unknown"
}

// CanAssign reports whether an actor at level l may create or update
// an employee at the target level. The rule is a plain ordinal
// comparison: nobody hands out a level above their own.
func (l PermissionLevel) CanAssign(target PermissionLevel) bool {
	return target <= l
}

// ParseLevel accepts the level name ("Leader") or its ordinal ("2").
// Earlier revisions of the system serialized the level as a number,
// so both forms stay accepted on the wire.
func ParseLevel(value string) (PermissionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "employee":
		return LevelEmployee, nil
	case "leader":
		return LevelLeader, nil
	case "director":
		return LevelDirector, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		level := PermissionLevel(n)
		if level.Valid() {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown permission level %q", value)
}

func (l PermissionLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *PermissionLevel) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, err := ParseLevel(asString)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var asNumber int
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("permission level must be a name or number")
	}
	level := PermissionLevel(asNumber)
	if !level.Valid() {
		return fmt.Errorf("permission level %d out of range", asNumber)
	}
	*l = level
	return nil
}

type Employee struct {
	ID              int64           `json:"id"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Email           string          `json:"email"`
	DocNumber       string          `json:"docNumber"`
	Age             int             `json:"age"`
	Position        string          `json:"position"`
	Department      string          `json:"department"`
	Salary          float64         `json:"salary"`
	HireDate        time.Time       `json:"hireDate"`
	ManagerID       *int64          `json:"managerId"`
	ManagerName     string          `json:"managerName,omitempty"`
	PermissionLevel PermissionLevel `json:"permissionLevel"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt"`
	Phones          []EmployeePhone `json:"phones"`
}

type EmployeePhone struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"-"`
	PhoneNumber string    `json:"phoneNumber"`
	PhoneType   string    `json:"phoneType"`
	IsPrimary   bool      `json:"isPrimary"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PhoneInput is a phone entry as supplied by a create or update call.
// Entries with an empty number are dropped; an empty type defaults to
// "Mobile".
type PhoneInput struct {
	PhoneNumber string `json:"phoneNumber"`
	PhoneType   string `json:"phoneType"`
	IsPrimary   bool   `json:"isPrimary"`
}
