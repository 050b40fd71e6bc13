package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

const testLicenseID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

var licenseColumnNames = []string{
	"id", "license_number", "business_name", "business_type", "status", "issued_date", "expiration_date",
	"issuing_authority", "street_address", "city", "state", "zip_code",
	"contact_person", "phone", "email", "description", "conditions", "is_renewable",
	"created_at", "updated_at",
}

func licenseRow(rows *pgxmock.Rows, id, number, city string, createdAt time.Time) *pgxmock.Rows {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, number, "Acme Coffee", "food_service", "active", issued, issued.AddDate(1, 0, 0),
		"City Licensing Office", "100 Pike St", city, "WA", "98101",
		nil, "555-0100", nil, nil, nil, true,
		createdAt, createdAt,
	)
}

type stubLicenseRow struct {
	scanFn func(dest ...any) error
}

func (s stubLicenseRow) Scan(dest ...any) error {
	return s.scanFn(dest...)
}

func TestScanLicense_NullableColumns(t *testing.T) {
	t.Parallel()

	row := stubLicenseRow{scanFn: func(dest ...any) error {
		if len(dest) != len(licenseColumnNames) {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = testLicenseID
		*(dest[3].(*string)) = "retail"
		*(dest[4].(*string)) = "suspended"
		phone := dest[13].(*sql.NullString)
		phone.String = "555-0100"
		phone.Valid = true
		*(dest[17].(*bool)) = true
		return nil
	}}

	l, err := scanLicense(row)
	if err != nil {
		t.Fatalf("scanLicense returned error: %v", err)
	}
	if l.BusinessType != license.BusinessTypeRetail || l.Status != license.StatusSuspended {
		t.Fatalf("unexpected enums: %s %s", l.BusinessType, l.Status)
	}
	if l.Phone == nil || *l.Phone != "555-0100" {
		t.Fatalf("expected phone, got %+v", l.Phone)
	}
	if l.Email != nil || l.ContactPerson != nil {
		t.Fatalf("expected null columns to stay nil, got %+v %+v", l.Email, l.ContactPerson)
	}
	if !l.IsRenewable {
		t.Fatal("expected is_renewable true")
	}
}

func TestScanLicense_NoRows(t *testing.T) {
	t.Parallel()

	row := stubLicenseRow{scanFn: func(dest ...any) error {
		return pgx.ErrNoRows
	}}

	if _, err := scanLicense(row); !errors.Is(err, license.ErrLicenseNotFound) {
		t.Fatalf("expected ErrLicenseNotFound, got %v", err)
	}
}

func TestTranslateLicensePgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateLicensePgError(&pgconn.PgError{Code: licenseUniqueViolationCode}), license.ErrLicenseNumberAlreadyExists) {
		t.Fatal("expected unique violation to map to ErrLicenseNumberAlreadyExists")
	}

	checkErr := translateLicensePgError(&pgconn.PgError{Code: licenseCheckViolationCode})
	var verr *license.ValidationError
	if !errors.As(checkErr, &verr) || verr.Field != "expiration_date" {
		t.Fatalf("expected check violation to map to expiration_date validation error, got %v", checkErr)
	}

	if !errors.Is(translateLicensePgError(pgx.ErrNoRows), license.ErrLicenseNotFound) {
		t.Fatal("expected ErrNoRows to map to ErrLicenseNotFound")
	}

	other := errors.New("connection reset")
	translated := translateLicensePgError(other)
	if !errors.Is(translated, license.ErrStoreUnavailable) || !errors.Is(translated, other) {
		t.Fatalf("expected generic error to wrap ErrStoreUnavailable, got %v", translated)
	}
}

func TestBuildLicenseWhere(t *testing.T) {
	t.Parallel()

	city := "sea_tt%"
	state := "WA"
	status := license.StatusActive
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildLicenseWhere(license.SearchFilter{
		City:          &city,
		State:         &state,
		Status:        &status,
		ExpiresBefore: &before,
	})

	want := " WHERE status = $1 AND city ILIKE '%' || $2 || '%' AND state = $3 AND expiration_date <= $4"
	if where != want {
		t.Fatalf("unexpected where clause:\n got %q\nwant %q", where, want)
	}
	if len(args) != 4 || args[1] != `sea\_tt\%` {
		t.Fatalf("expected escaped like pattern, got %+v", args)
	}

	if where, args := buildLicenseWhere(license.SearchFilter{}); where != "" || len(args) != 0 {
		t.Fatalf("expected empty filter to produce no where clause, got %q %v", where, args)
	}
}

func TestLicenseRepository_Count(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)
	city := "Seattle"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM business_licenses WHERE city ILIKE '%' || $1 || '%'`)).
		WithArgs("Seattle").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	total, err := repo.Count(context.Background(), license.SearchFilter{City: &city})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3, got %d", total)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBuildLicenseWhere_ExpirationRange(t *testing.T) {
	t.Parallel()

	before := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	after := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildLicenseWhere(license.SearchFilter{ExpiresBefore: &before, ExpiresAfter: &after})

	want := " WHERE expiration_date <= $1 AND expiration_date >= $2"
	if where != want {
		t.Fatalf("unexpected where clause:\n got %q\nwant %q", where, want)
	}
	if len(args) != 2 || args[0] != before || args[1] != after {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestLicenseRepository_Count_ExpiresAfter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM business_licenses WHERE expiration_date >= $1`)).
		WithArgs(after).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	total, err := repo.Count(context.Background(), license.SearchFilter{ExpiresAfter: &after})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2, got %d", total)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLicenseRepository_List_WithFilters(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)
	businessType := license.BusinessTypeFoodService

	query := regexp.QuoteMeta(`
          FROM business_licenses WHERE business_type = $1
         ORDER BY created_at DESC, insert_seq DESC
         LIMIT $2
        OFFSET $3
    `)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(licenseColumnNames)
	licenseRow(rows, "id-2", "BL-2", "Portland", now)
	licenseRow(rows, "id-1", "BL-1", "Seattle", now.Add(-time.Minute))

	mock.ExpectQuery(query).
		WithArgs("food_service", 10, 20).
		WillReturnRows(rows)

	licenses, err := repo.List(context.Background(), license.SearchFilter{BusinessType: &businessType}, 20, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(licenses) != 2 {
		t.Fatalf("expected 2 licenses, got %d", len(licenses))
	}
	if licenses[0].LicenseNumber != "BL-2" || licenses[1].LicenseNumber != "BL-1" {
		t.Fatalf("expected store order to be preserved, got %s, %s", licenses[0].LicenseNumber, licenses[1].LicenseNumber)
	}
	if licenses[0].Phone == nil || licenses[0].Email != nil {
		t.Fatalf("unexpected nullable mapping: %+v %+v", licenses[0].Phone, licenses[0].Email)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLicenseRepository_Update_OnlySuppliedColumns(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)
	city := "Tacoma"
	updatedAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	query := regexp.QuoteMeta(`
        UPDATE business_licenses
           SET city = $1, email = $2, updated_at = now()
         WHERE id = $3
        RETURNING id, license_number`)

	rows := pgxmock.NewRows(licenseColumnNames)
	licenseRow(rows, testLicenseID, "BL-1", "Tacoma", updatedAt)

	mock.ExpectQuery(query).
		WithArgs("Tacoma", nil, testLicenseID).
		WillReturnRows(rows)

	updated, err := repo.Update(context.Background(), testLicenseID, license.Patch{City: &city, EmailSet: true})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.City != "Tacoma" {
		t.Fatalf("expected city Tacoma, got %s", updated.City)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLicenseRepository_Update_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE business_licenses`)).
		WithArgs(testLicenseID).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Update(context.Background(), testLicenseID, license.Patch{}); !errors.Is(err, license.ErrLicenseNotFound) {
		t.Fatalf("expected ErrLicenseNotFound, got %v", err)
	}
}

func TestLicenseRepository_Create_StoreAssignsTimestamps(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	storedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	query := regexp.QuoteMeta(`contact_person, phone, email, description, conditions, is_renewable)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)

	rows := pgxmock.NewRows(licenseColumnNames)
	licenseRow(rows, testLicenseID, "BL-1", "Seattle", storedAt)

	mock.ExpectQuery(query).
		WithArgs("BL-1", "Acme Coffee", "food_service", "active", issued, issued.AddDate(1, 0, 0),
			"City Licensing Office", "100 Pike St", "Seattle", "WA", "98101",
			nil, nil, nil, nil, nil, true).
		WillReturnRows(rows)

	created, err := repo.Create(context.Background(), &license.License{
		LicenseNumber:    "BL-1",
		BusinessName:     "Acme Coffee",
		BusinessType:     license.BusinessTypeFoodService,
		Status:           license.StatusActive,
		IssuedDate:       issued,
		ExpirationDate:   issued.AddDate(1, 0, 0),
		IssuingAuthority: "City Licensing Office",
		StreetAddress:    "100 Pike St",
		City:             "Seattle",
		State:            "WA",
		ZipCode:          "98101",
		IsRenewable:      true,
		CreatedAt:        time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.CreatedAt.Equal(storedAt) || !created.UpdatedAt.Equal(storedAt) {
		t.Fatalf("expected timestamps from the store, got %v and %v", created.CreatedAt, created.UpdatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLicenseRepository_Create_DuplicateNumber(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)
	now := time.Now().UTC()

	anyArgs := make([]any, 17)
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO business_licenses`)).
		WithArgs(anyArgs...).
		WillReturnError(&pgconn.PgError{Code: licenseUniqueViolationCode, ConstraintName: "ix_business_licenses_license_number"})

	_, err = repo.Create(context.Background(), &license.License{
		LicenseNumber:  "BL-1",
		BusinessType:   license.BusinessTypeRetail,
		Status:         license.StatusActive,
		IssuedDate:     now,
		ExpirationDate: now.AddDate(1, 0, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if !errors.Is(err, license.ErrLicenseNumberAlreadyExists) {
		t.Fatalf("expected ErrLicenseNumberAlreadyExists, got %v", err)
	}
}

func TestLicenseRepository_Delete(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewLicenseRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM business_licenses WHERE id = $1`)).
		WithArgs(testLicenseID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM business_licenses WHERE id = $1`)).
		WithArgs(testLicenseID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), testLicenseID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Delete(context.Background(), testLicenseID); !errors.Is(err, license.ErrLicenseNotFound) {
		t.Fatalf("expected ErrLicenseNotFound on second delete, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
