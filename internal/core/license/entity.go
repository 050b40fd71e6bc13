package license

import "time"

// BusinessType は許可の業種区分を表します。
type BusinessType string

const (
	BusinessTypeBusiness     BusinessType = "business"
	BusinessTypeProfessional BusinessType = "professional"
	BusinessTypeTrade        BusinessType = "trade"
	BusinessTypeFoodService  BusinessType = "food_service"
	BusinessTypeRetail       BusinessType = "retail"
)

// Status は許可の状態を表します。
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

// License は事業許可エンティティです。
type License struct {
	ID               string
	LicenseNumber    string
	BusinessName     string
	BusinessType     BusinessType
	Status           Status
	IssuedDate       time.Time
	ExpirationDate   time.Time
	IssuingAuthority string

	StreetAddress string
	City          string
	State         string
	ZipCode       string

	ContactPerson *string
	Phone         *string
	Email         *string

	Description *string
	Conditions  *string
	IsRenewable bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone は License のディープコピーを返します。
func (l *License) Clone() *License {
	if l == nil {
		return nil
	}
	c := *l
	c.ContactPerson = cloneString(l.ContactPerson)
	c.Phone = cloneString(l.Phone)
	c.Email = cloneString(l.Email)
	c.Description = cloneString(l.Description)
	c.Conditions = cloneString(l.Conditions)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// IsValid は業種区分が定義済みの値かどうかを返します。
func (t BusinessType) IsValid() bool {
	switch t {
	case BusinessTypeBusiness, BusinessTypeProfessional, BusinessTypeTrade, BusinessTypeFoodService, BusinessTypeRetail:
		return true
	default:
		return false
	}
}

// IsValid は状態が定義済みの値かどうかを返します。
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusExpired:
		return true
	default:
		return false
	}
}
