package licensedto

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/business-license-api/internal/core/license"
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"}

var (
	createFields = map[string]bool{
		"license_number": true, "business_name": true, "business_type": true, "status": true,
		"issued_date": true, "expiration_date": true, "issuing_authority": true,
		"street_address": true, "city": true, "state": true, "zip_code": true,
		"contact_person": true, "phone": true, "email": true,
		"description": true, "conditions": true, "is_renewable": true,
	}
	immutableFields = map[string]bool{"id": true, "license_number": true, "created_at": true, "updated_at": true}
)

func invalid(field, reason string) error {
	return &license.ValidationError{Field: field, Reason: reason}
}

// DecodeCreate は作成リクエストのペイロードを入力値へ変換します。
func DecodeCreate(body map[string]any) (license.CreateLicenseInput, error) {
	var in license.CreateLicenseInput

	if err := rejectUnknown(body, createFields); err != nil {
		return in, err
	}

	var err error
	required := []struct {
		field string
		dest  *string
	}{
		{"license_number", &in.LicenseNumber},
		{"business_name", &in.BusinessName},
		{"issuing_authority", &in.IssuingAuthority},
		{"street_address", &in.StreetAddress},
		{"city", &in.City},
		{"state", &in.State},
		{"zip_code", &in.ZipCode},
	}
	for _, r := range required {
		if *r.dest, err = requiredString(body, r.field); err != nil {
			return in, err
		}
	}

	businessType, err := requiredString(body, "business_type")
	if err != nil {
		return in, err
	}
	in.BusinessType = license.BusinessType(businessType)

	if in.IssuedDate, err = requiredTime(body, "issued_date"); err != nil {
		return in, err
	}
	if in.ExpirationDate, err = requiredTime(body, "expiration_date"); err != nil {
		return in, err
	}

	if status, ok, err := optionalString(body, "status"); err != nil {
		return in, err
	} else if ok && status != nil {
		s := license.Status(*status)
		in.Status = &s
	}

	nullable := []struct {
		field string
		dest  **string
	}{
		{"contact_person", &in.ContactPerson},
		{"phone", &in.Phone},
		{"email", &in.Email},
		{"description", &in.Description},
		{"conditions", &in.Conditions},
	}
	for _, n := range nullable {
		if *n.dest, _, err = optionalString(body, n.field); err != nil {
			return in, err
		}
	}

	if v, ok := body["is_renewable"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return in, invalid("is_renewable", "must be a boolean")
		}
		in.IsRenewable = &b
	}

	return in, nil
}

// DecodeUpdate は部分更新のペイロードを Patch へ変換します。
// 含まれないキーは変更せず、null 許容列に null が指定された場合は値を消去します。
func DecodeUpdate(body map[string]any) (license.Patch, error) {
	var p license.Patch

	for _, key := range sortedKeys(body) {
		if immutableFields[key] {
			return license.Patch{}, invalid(key, "cannot be updated")
		}
		if !createFields[key] {
			return license.Patch{}, invalid(key, "is not a known field")
		}
	}

	var err error
	required := []struct {
		field string
		dest  **string
	}{
		{"business_name", &p.BusinessName},
		{"issuing_authority", &p.IssuingAuthority},
		{"street_address", &p.StreetAddress},
		{"city", &p.City},
		{"state", &p.State},
		{"zip_code", &p.ZipCode},
	}
	for _, r := range required {
		if *r.dest, err = nonNullString(body, r.field); err != nil {
			return license.Patch{}, err
		}
	}

	if v, err := nonNullString(body, "business_type"); err != nil {
		return license.Patch{}, err
	} else if v != nil {
		t := license.BusinessType(*v)
		p.BusinessType = &t
	}
	if v, err := nonNullString(body, "status"); err != nil {
		return license.Patch{}, err
	} else if v != nil {
		s := license.Status(*v)
		p.Status = &s
	}

	for _, f := range []struct {
		field string
		dest  **time.Time
	}{{"issued_date", &p.IssuedDate}, {"expiration_date", &p.ExpirationDate}} {
		raw, ok := body[f.field]
		if !ok {
			continue
		}
		if raw == nil {
			return license.Patch{}, invalid(f.field, "cannot be null")
		}
		t, err := parseTime(f.field, raw)
		if err != nil {
			return license.Patch{}, err
		}
		*f.dest = &t
	}

	if v, ok := body["is_renewable"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return license.Patch{}, invalid("is_renewable", "must be a boolean")
		}
		p.IsRenewable = &b
	}

	nullable := []struct {
		field string
		dest  **string
		set   *bool
	}{
		{"contact_person", &p.ContactPerson, &p.ContactPersonSet},
		{"phone", &p.Phone, &p.PhoneSet},
		{"email", &p.Email, &p.EmailSet},
		{"description", &p.Description, &p.DescriptionSet},
		{"conditions", &p.Conditions, &p.ConditionsSet},
	}
	for _, n := range nullable {
		if *n.dest, *n.set, err = optionalString(body, n.field); err != nil {
			return license.Patch{}, err
		}
	}

	return p, nil
}

// DecodeSearch は検索パラメーターを入力値へ変換します。空文字列は未指定として扱い、未知のキーは無視します。
func DecodeSearch(params map[string]any) (license.SearchLicensesInput, error) {
	var in license.SearchLicensesInput

	text := func(field string) (*string, error) {
		raw, ok := params[field]
		if !ok || raw == nil {
			return nil, nil
		}
		s, isString := raw.(string)
		if !isString {
			return nil, invalid(field, "must be a string")
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return &s, nil
	}

	var err error
	for _, f := range []struct {
		field string
		dest  **string
	}{
		{"license_number", &in.Filter.LicenseNumber},
		{"business_name", &in.Filter.BusinessName},
		{"city", &in.Filter.City},
		{"state", &in.Filter.State},
		{"zip_code", &in.Filter.ZipCode},
	} {
		if *f.dest, err = text(f.field); err != nil {
			return in, err
		}
	}

	if v, err := text("business_type"); err != nil {
		return in, err
	} else if v != nil {
		t := license.BusinessType(strings.TrimSpace(*v))
		in.Filter.BusinessType = &t
	}
	if v, err := text("status"); err != nil {
		return in, err
	} else if v != nil {
		s := license.Status(strings.TrimSpace(*v))
		in.Filter.Status = &s
	}

	for _, f := range []struct {
		field string
		dest  **time.Time
	}{{"expires_before", &in.Filter.ExpiresBefore}, {"expires_after", &in.Filter.ExpiresAfter}} {
		v, err := text(f.field)
		if err != nil {
			return in, err
		}
		if v == nil {
			continue
		}
		t, err := parseTime(f.field, *v)
		if err != nil {
			return in, err
		}
		*f.dest = &t
	}

	if in.Page, err = integer(params, "page"); err != nil {
		return in, err
	}
	if in.Size, err = integer(params, "size"); err != nil {
		return in, err
	}

	return in, nil
}

func rejectUnknown(body map[string]any, allowed map[string]bool) error {
	for _, key := range sortedKeys(body) {
		if !allowed[key] {
			return invalid(key, "is not a known field")
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requiredString(body map[string]any, field string) (string, error) {
	raw, ok := body[field]
	if !ok || raw == nil {
		return "", invalid(field, "is required")
	}
	s, isString := raw.(string)
	if !isString {
		return "", invalid(field, "must be a string")
	}
	return s, nil
}

func nonNullString(body map[string]any, field string) (*string, error) {
	raw, ok := body[field]
	if !ok {
		return nil, nil
	}
	if raw == nil {
		return nil, invalid(field, "cannot be null")
	}
	s, isString := raw.(string)
	if !isString {
		return nil, invalid(field, "must be a string")
	}
	return &s, nil
}

// optionalString はキーの有無 (supplied) と値を返します。null は supplied かつ nil です。
func optionalString(body map[string]any, field string) (*string, bool, error) {
	raw, ok := body[field]
	if !ok {
		return nil, false, nil
	}
	if raw == nil {
		return nil, true, nil
	}
	s, isString := raw.(string)
	if !isString {
		return nil, true, invalid(field, "must be a string")
	}
	return &s, true, nil
}

func requiredTime(body map[string]any, field string) (time.Time, error) {
	raw, ok := body[field]
	if !ok || raw == nil {
		return time.Time{}, invalid(field, "is required")
	}
	return parseTime(field, raw)
}

func parseTime(field string, raw any) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, invalid(field, "must be an ISO 8601 date or timestamp")
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid(field, "must be an ISO 8601 date or timestamp")
}

func integer(params map[string]any, field string) (int, error) {
	raw, ok := params[field]
	if !ok || raw == nil {
		return 0, nil
	}

	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, invalid(field, "must be a positive integer")
		}
		return n, nil
	case float64:
		if v != math.Trunc(v) || v < 1 || v >= float64(math.MaxInt) {
			return 0, invalid(field, "must be a positive integer")
		}
		return int(v), nil
	case int:
		if v < 1 {
			return 0, invalid(field, "must be a positive integer")
		}
		return v, nil
	default:
		return 0, invalid(field, "must be a positive integer")
	}
}
