package licensedto

import (
	"time"

	"github.com/ogurasousui/business-license-api/internal/core/license"
)

// Record は許可の転送表現です。REST のレスポンスとキャッシュの保存形式で共有します。
type Record struct {
	ID               string    `json:"id"`
	LicenseNumber    string    `json:"license_number"`
	BusinessName     string    `json:"business_name"`
	BusinessType     string    `json:"business_type"`
	Status           string    `json:"status"`
	IssuedDate       time.Time `json:"issued_date"`
	ExpirationDate   time.Time `json:"expiration_date"`
	IssuingAuthority string    `json:"issuing_authority"`
	StreetAddress    string    `json:"street_address"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	ZipCode          string    `json:"zip_code"`
	ContactPerson    *string   `json:"contact_person"`
	Phone            *string   `json:"phone"`
	Email            *string   `json:"email"`
	Description      *string   `json:"description"`
	Conditions       *string   `json:"conditions"`
	IsRenewable      bool      `json:"is_renewable"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Page は検索結果の転送表現です。
type Page struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
	Pages int      `json:"pages"`
}

// FromLicense は License を Record に変換します。
func FromLicense(l *license.License) Record {
	return Record{
		ID:               l.ID,
		LicenseNumber:    l.LicenseNumber,
		BusinessName:     l.BusinessName,
		BusinessType:     string(l.BusinessType),
		Status:           string(l.Status),
		IssuedDate:       l.IssuedDate.UTC(),
		ExpirationDate:   l.ExpirationDate.UTC(),
		IssuingAuthority: l.IssuingAuthority,
		StreetAddress:    l.StreetAddress,
		City:             l.City,
		State:            l.State,
		ZipCode:          l.ZipCode,
		ContactPerson:    l.ContactPerson,
		Phone:            l.Phone,
		Email:            l.Email,
		Description:      l.Description,
		Conditions:       l.Conditions,
		IsRenewable:      l.IsRenewable,
		CreatedAt:        l.CreatedAt.UTC(),
		UpdatedAt:        l.UpdatedAt.UTC(),
	}
}

// FromResult は検索結果を Page に変換します。
func FromResult(res *license.SearchLicensesResult) Page {
	items := make([]Record, 0, len(res.Items))
	for _, l := range res.Items {
		items = append(items, FromLicense(l))
	}
	return Page{Items: items, Total: res.Total, Page: res.Page, Size: res.Size, Pages: res.Pages}
}

// ToLicense は Record を License に戻します。
func (r Record) ToLicense() *license.License {
	l := &license.License{
		ID:               r.ID,
		LicenseNumber:    r.LicenseNumber,
		BusinessName:     r.BusinessName,
		BusinessType:     license.BusinessType(r.BusinessType),
		Status:           license.Status(r.Status),
		IssuedDate:       r.IssuedDate.UTC(),
		ExpirationDate:   r.ExpirationDate.UTC(),
		IssuingAuthority: r.IssuingAuthority,
		StreetAddress:    r.StreetAddress,
		City:             r.City,
		State:            r.State,
		ZipCode:          r.ZipCode,
		ContactPerson:    r.ContactPerson,
		Phone:            r.Phone,
		Email:            r.Email,
		Description:      r.Description,
		Conditions:       r.Conditions,
		IsRenewable:      r.IsRenewable,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	return l.Clone()
}

// ToMap は structpb.NewStruct に渡せる形式へ変換します。時刻は RFC3339 (ナノ秒) 文字列になります。
func (r Record) ToMap() map[string]any {
	return map[string]any{
		"id":                r.ID,
		"license_number":    r.LicenseNumber,
		"business_name":     r.BusinessName,
		"business_type":     r.BusinessType,
		"status":            r.Status,
		"issued_date":       r.IssuedDate.Format(time.RFC3339Nano),
		"expiration_date":   r.ExpirationDate.Format(time.RFC3339Nano),
		"issuing_authority": r.IssuingAuthority,
		"street_address":    r.StreetAddress,
		"city":              r.City,
		"state":             r.State,
		"zip_code":          r.ZipCode,
		"contact_person":    optional(r.ContactPerson),
		"phone":             optional(r.Phone),
		"email":             optional(r.Email),
		"description":       optional(r.Description),
		"conditions":        optional(r.Conditions),
		"is_renewable":      r.IsRenewable,
		"created_at":        r.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":        r.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// ToMap は structpb.NewStruct に渡せる形式へ変換します。
func (p Page) ToMap() map[string]any {
	items := make([]any, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, item.ToMap())
	}
	return map[string]any{
		"items": items,
		"total": p.Total,
		"page":  p.Page,
		"size":  p.Size,
		"pages": p.Pages,
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
