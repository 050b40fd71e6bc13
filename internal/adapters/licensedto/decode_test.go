package licensedto

import (
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/business-license-api/internal/core/license"
	"github.com/stretchr/testify/require"
)

func createBody() map[string]any {
	return map[string]any{
		"license_number":    "BL-1",
		"business_name":     "Acme Coffee",
		"business_type":     "food_service",
		"issued_date":       "2024-01-15",
		"expiration_date":   "2025-01-15T00:00:00Z",
		"issuing_authority": "City Licensing Office",
		"street_address":    "100 Pike St",
		"city":              "Seattle",
		"state":             "WA",
		"zip_code":          "98101",
		"phone":             nil,
		"email":             "owner@example.com",
	}
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()

	var verr *license.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	require.Equal(t, field, verr.Field)
	require.ErrorIs(t, err, license.ErrValidation)
}

func TestDecodeCreate(t *testing.T) {
	t.Parallel()

	in, err := DecodeCreate(createBody())
	require.NoError(t, err)

	require.Equal(t, "BL-1", in.LicenseNumber)
	require.Equal(t, license.BusinessTypeFoodService, in.BusinessType)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), in.IssuedDate)
	require.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), in.ExpirationDate)
	require.Nil(t, in.Status)
	require.Nil(t, in.IsRenewable)
	require.Nil(t, in.Phone)
	require.NotNil(t, in.Email)
	require.Equal(t, "owner@example.com", *in.Email)
}

func TestDecodeCreate_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(map[string]any)
		field  string
	}{
		"missing number": {func(b map[string]any) { delete(b, "license_number") }, "license_number"},
		"numeric name":   {func(b map[string]any) { b["business_name"] = 42.0 }, "business_name"},
		"bad date":       {func(b map[string]any) { b["issued_date"] = "15/01/2024" }, "issued_date"},
		"unknown field":  {func(b map[string]any) { b["owner"] = "x" }, "owner"},
		"string bool":    {func(b map[string]any) { b["is_renewable"] = "yes" }, "is_renewable"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			body := createBody()
			tc.mutate(body)

			_, err := DecodeCreate(body)
			requireFieldError(t, err, tc.field)
		})
	}
}

func TestDecodeUpdate_SuppliedVersusNull(t *testing.T) {
	t.Parallel()

	p, err := DecodeUpdate(map[string]any{
		"city":         "Tacoma",
		"phone":        nil,
		"is_renewable": false,
	})
	require.NoError(t, err)

	require.NotNil(t, p.City)
	require.Equal(t, "Tacoma", *p.City)
	require.True(t, p.PhoneSet)
	require.Nil(t, p.Phone)
	require.False(t, p.EmailSet)
	require.NotNil(t, p.IsRenewable)
	require.False(t, *p.IsRenewable)
	require.Nil(t, p.BusinessName)
}

func TestDecodeUpdate_Errors(t *testing.T) {
	t.Parallel()

	requireFieldError(t, firstErr(DecodeUpdate(map[string]any{"license_number": "BL-2"})), "license_number")
	requireFieldError(t, firstErr(DecodeUpdate(map[string]any{"created_at": "2024-01-01"})), "created_at")
	requireFieldError(t, firstErr(DecodeUpdate(map[string]any{"city": nil})), "city")
	requireFieldError(t, firstErr(DecodeUpdate(map[string]any{"expiration_date": nil})), "expiration_date")
	requireFieldError(t, firstErr(DecodeUpdate(map[string]any{"nickname": "x"})), "nickname")
}

func firstErr(_ license.Patch, err error) error {
	return err
}

func TestDecodeSearch(t *testing.T) {
	t.Parallel()

	in, err := DecodeSearch(map[string]any{
		"city":           "Seattle",
		"state":          "",
		"status":         "active",
		"expires_before": "2026-01-01",
		"page":           "2",
		"size":           10.0,
		"sort":           "name",
	})
	require.NoError(t, err)

	require.NotNil(t, in.Filter.City)
	require.Equal(t, "Seattle", *in.Filter.City)
	require.Nil(t, in.Filter.State)
	require.NotNil(t, in.Filter.Status)
	require.Equal(t, license.StatusActive, *in.Filter.Status)
	require.NotNil(t, in.Filter.ExpiresBefore)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *in.Filter.ExpiresBefore)
	require.Equal(t, 2, in.Page)
	require.Equal(t, 10, in.Size)
}

func TestDecodeSearch_LargePage(t *testing.T) {
	t.Parallel()

	in, err := DecodeSearch(map[string]any{"page": "30000000"})
	require.NoError(t, err)
	require.Equal(t, 30_000_000, in.Page)

	in, err = DecodeSearch(map[string]any{"page": 3e9})
	require.NoError(t, err)
	require.Equal(t, 3_000_000_000, in.Page)
}

func TestDecodeSearch_InvalidPagination(t *testing.T) {
	t.Parallel()

	_, err := DecodeSearch(map[string]any{"page": "zero"})
	requireFieldError(t, err, "page")

	_, err = DecodeSearch(map[string]any{"size": 2.5})
	requireFieldError(t, err, "size")
}

func TestRecord_RoundTrip(t *testing.T) {
	t.Parallel()

	phone := "555-0100"
	l := &license.License{
		ID:             "3f2504e0-4f89-11d3-9a0c-0305e82c3301",
		LicenseNumber:  "BL-1",
		BusinessType:   license.BusinessTypeRetail,
		Status:         license.StatusActive,
		IssuedDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Phone:          &phone,
		IsRenewable:    true,
		CreatedAt:      time.Date(2025, 1, 1, 12, 0, 0, 123456000, time.UTC),
	}

	back := FromLicense(l).ToLicense()
	require.Equal(t, l, back)
	require.NotSame(t, l.Phone, back.Phone)

	m := FromLicense(l).ToMap()
	require.Equal(t, "2025-01-01T12:00:00.123456Z", m["created_at"])
	require.Nil(t, m["email"])
	require.Equal(t, "555-0100", m["phone"])
}
