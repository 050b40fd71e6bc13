package license

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type lengthRule struct {
	field    string
	min, max int
}

var (
	licenseNumberRule    = lengthRule{field: "license_number", min: 1, max: 50}
	businessNameRule     = lengthRule{field: "business_name", min: 1, max: 255}
	issuingAuthorityRule = lengthRule{field: "issuing_authority", min: 1, max: 255}
	streetAddressRule    = lengthRule{field: "street_address", min: 1, max: 255}
	cityRule             = lengthRule{field: "city", min: 1, max: 100}
	stateRule            = lengthRule{field: "state", min: 2, max: 50}
	zipCodeRule          = lengthRule{field: "zip_code", min: 5, max: 20}
	contactPersonRule    = lengthRule{field: "contact_person", max: 255}
	phoneRule            = lengthRule{field: "phone", max: 20}
	emailRule            = lengthRule{field: "email", max: 255}
)

func (r lengthRule) normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	if n < r.min || n > r.max {
		return "", invalid(r.field, lengthReason(r.min, r.max))
	}
	return trimmed, nil
}

// normalizeOptional は空文字列を nil として扱います。
func (r lengthRule) normalizeOptional(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	if r.max > 0 && utf8.RuneCountInString(trimmed) > r.max {
		return nil, invalid(r.field, lengthReason(1, r.max))
	}
	return &trimmed, nil
}

func lengthReason(min, max int) string {
	return "must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max) + " characters"
}

func normalizeText(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid("id", "is required")
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", invalid("id", "must be a UUID")
	}
	return parsed.String(), nil
}

func normalizeBusinessType(t BusinessType) (BusinessType, error) {
	if !t.IsValid() {
		return "", invalid("business_type", "must be one of business, professional, trade, food_service, retail")
	}
	return t, nil
}

func normalizeStatus(s Status) (Status, error) {
	if !s.IsValid() {
		return "", invalid("status", "must be one of active, inactive, suspended, expired")
	}
	return s, nil
}

// normalizeTimestamp は UTC に揃え、PostgreSQL の精度 (マイクロ秒) に切り詰めます。
func normalizeTimestamp(field string, t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, invalid(field, "is required")
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

func validateDateRange(issued, expiration time.Time) error {
	if !expiration.After(issued) {
		return invalid("expiration_date", "must be after issued_date")
	}
	return nil
}

func normalizePagination(page, size int) (int, int, error) {
	if size == 0 {
		size = defaultPageSize
	}
	if size < 1 || size > maxPageSize {
		return 0, 0, invalid("size", "must be between 1 and "+strconv.Itoa(maxPageSize))
	}
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, invalid("page", "must be a positive page number")
	}
	if page-1 > math.MaxInt/size {
		return 0, 0, invalid("page", "is too large")
	}
	return page, size, nil
}

// PageCount は total 件を size 件ずつに分けた総ページ数を返します。
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func normalizeFilter(f SearchFilter) (SearchFilter, error) {
	out := SearchFilter{
		LicenseNumber: normalizeText(f.LicenseNumber),
		BusinessName:  normalizeText(f.BusinessName),
		City:          normalizeText(f.City),
		State:         normalizeText(f.State),
		ZipCode:       normalizeText(f.ZipCode),
	}

	if f.BusinessType != nil {
		t, err := normalizeBusinessType(*f.BusinessType)
		if err != nil {
			return SearchFilter{}, err
		}
		out.BusinessType = &t
	}

	if f.Status != nil {
		s, err := normalizeStatus(*f.Status)
		if err != nil {
			return SearchFilter{}, err
		}
		out.Status = &s
	}

	if f.ExpiresBefore != nil {
		t := f.ExpiresBefore.UTC()
		out.ExpiresBefore = &t
	}
	if f.ExpiresAfter != nil {
		t := f.ExpiresAfter.UTC()
		out.ExpiresAfter = &t
	}

	return out, nil
}

func normalizePatch(p Patch) (Patch, error) {
	var (
		out Patch
		err error
	)

	if out.BusinessName, err = normalizeRequiredPtr(businessNameRule, p.BusinessName); err != nil {
		return Patch{}, err
	}
	if out.IssuingAuthority, err = normalizeRequiredPtr(issuingAuthorityRule, p.IssuingAuthority); err != nil {
		return Patch{}, err
	}
	if out.StreetAddress, err = normalizeRequiredPtr(streetAddressRule, p.StreetAddress); err != nil {
		return Patch{}, err
	}
	if out.City, err = normalizeRequiredPtr(cityRule, p.City); err != nil {
		return Patch{}, err
	}
	if out.State, err = normalizeRequiredPtr(stateRule, p.State); err != nil {
		return Patch{}, err
	}
	if out.ZipCode, err = normalizeRequiredPtr(zipCodeRule, p.ZipCode); err != nil {
		return Patch{}, err
	}

	if p.BusinessType != nil {
		t, err := normalizeBusinessType(*p.BusinessType)
		if err != nil {
			return Patch{}, err
		}
		out.BusinessType = &t
	}
	if p.Status != nil {
		s, err := normalizeStatus(*p.Status)
		if err != nil {
			return Patch{}, err
		}
		out.Status = &s
	}
	if p.IssuedDate != nil {
		t, err := normalizeTimestamp("issued_date", *p.IssuedDate)
		if err != nil {
			return Patch{}, err
		}
		out.IssuedDate = &t
	}
	if p.ExpirationDate != nil {
		t, err := normalizeTimestamp("expiration_date", *p.ExpirationDate)
		if err != nil {
			return Patch{}, err
		}
		out.ExpirationDate = &t
	}
	if p.IsRenewable != nil {
		v := *p.IsRenewable
		out.IsRenewable = &v
	}

	if p.ContactPersonSet {
		out.ContactPersonSet = true
		if out.ContactPerson, err = contactPersonRule.normalizeOptional(p.ContactPerson); err != nil {
			return Patch{}, err
		}
	}
	if p.PhoneSet {
		out.PhoneSet = true
		if out.Phone, err = phoneRule.normalizeOptional(p.Phone); err != nil {
			return Patch{}, err
		}
	}
	if p.EmailSet {
		out.EmailSet = true
		if out.Email, err = emailRule.normalizeOptional(p.Email); err != nil {
			return Patch{}, err
		}
	}
	if p.DescriptionSet {
		out.DescriptionSet = true
		out.Description = normalizeText(p.Description)
	}
	if p.ConditionsSet {
		out.ConditionsSet = true
		out.Conditions = normalizeText(p.Conditions)
	}

	return out, nil
}

func normalizeRequiredPtr(rule lengthRule, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := rule.normalize(*raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
