package license

import (
	"context"
	"time"
)

// Repository は許可エンティティの永続化を行うインターフェースです。
// created_at と updated_at はストアが管理します。
type Repository interface {
	Create(ctx context.Context, license *License) (*License, error)
	Update(ctx context.Context, id string, patch Patch) (*License, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*License, error)
	FindByNumber(ctx context.Context, number string) (*License, error)
	Count(ctx context.Context, filter SearchFilter) (int, error)
	List(ctx context.Context, filter SearchFilter, offset, limit int) ([]*License, error)
}

// SearchFilter は検索条件を表します。nil のフィールドは条件に含めません。
type SearchFilter struct {
	LicenseNumber *string
	BusinessName  *string
	BusinessType  *BusinessType
	Status        *Status
	City          *string
	State         *string
	ZipCode       *string
	ExpiresBefore *time.Time
	ExpiresAfter  *time.Time
}

// Patch は部分更新で書き換える列の集合です。Set フラグが false の null 許容列は変更しません。
type Patch struct {
	BusinessName     *string
	BusinessType     *BusinessType
	Status           *Status
	IssuedDate       *time.Time
	ExpirationDate   *time.Time
	IssuingAuthority *string
	StreetAddress    *string
	City             *string
	State            *string
	ZipCode          *string
	IsRenewable      *bool

	ContactPerson    *string
	ContactPersonSet bool
	Phone            *string
	PhoneSet         bool
	Email            *string
	EmailSet         bool
	Description      *string
	DescriptionSet   bool
	Conditions       *string
	ConditionsSet    bool
}

// IsEmpty は変更対象の列が一つもないかどうかを返します。
func (p Patch) IsEmpty() bool {
	return p.BusinessName == nil &&
		p.BusinessType == nil &&
		p.Status == nil &&
		p.IssuedDate == nil &&
		p.ExpirationDate == nil &&
		p.IssuingAuthority == nil &&
		p.StreetAddress == nil &&
		p.City == nil &&
		p.State == nil &&
		p.ZipCode == nil &&
		p.IsRenewable == nil &&
		!p.ContactPersonSet &&
		!p.PhoneSet &&
		!p.EmailSet &&
		!p.DescriptionSet &&
		!p.ConditionsSet
}

// Apply は Patch を License に適用します。
func (p Patch) Apply(l *License) {
	if p.BusinessName != nil {
		l.BusinessName = *p.BusinessName
	}
	if p.BusinessType != nil {
		l.BusinessType = *p.BusinessType
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.IssuedDate != nil {
		l.IssuedDate = *p.IssuedDate
	}
	if p.ExpirationDate != nil {
		l.ExpirationDate = *p.ExpirationDate
	}
	if p.IssuingAuthority != nil {
		l.IssuingAuthority = *p.IssuingAuthority
	}
	if p.StreetAddress != nil {
		l.StreetAddress = *p.StreetAddress
	}
	if p.City != nil {
		l.City = *p.City
	}
	if p.State != nil {
		l.State = *p.State
	}
	if p.ZipCode != nil {
		l.ZipCode = *p.ZipCode
	}
	if p.IsRenewable != nil {
		l.IsRenewable = *p.IsRenewable
	}
	if p.ContactPersonSet {
		l.ContactPerson = cloneString(p.ContactPerson)
	}
	if p.PhoneSet {
		l.Phone = cloneString(p.Phone)
	}
	if p.EmailSet {
		l.Email = cloneString(p.Email)
	}
	if p.DescriptionSet {
		l.Description = cloneString(p.Description)
	}
	if p.ConditionsSet {
		l.Conditions = cloneString(p.Conditions)
	}
}

// Cache は単一レコード参照の読み込みキャッシュです。
// 実装はエラーを呼び出し元へ返さず、障害時はミスまたは何もしない動作に縮退します。
type Cache interface {
	Get(ctx context.Context, key string) (*License, bool)
	Set(ctx context.Context, key string, license *License)
	Delete(ctx context.Context, keys ...string)
}

// NopCache は何もキャッシュしない Cache 実装です。
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*License, bool) { return nil, false }
func (NopCache) Set(context.Context, string, *License)        {}
func (NopCache) Delete(context.Context, ...string)            {}
