package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	pgdb "github.com/ogurasousui/business-license-api/internal/platform/db/postgres"
)

const (
	licenseUniqueViolationCode = "23505"
	licenseCheckViolationCode  = "23514"
	licenseInvalidTextCode     = "22P02"
)

const licenseColumns = `id, license_number, business_name, business_type, status, issued_date, expiration_date,
               issuing_authority, street_address, city, state, zip_code,
               contact_person, phone, email, description, conditions, is_renewable,
               created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LicenseRepository は PostgreSQL を利用した許可永続化の実装です。
type LicenseRepository struct {
	pool pgdb.Queryer
}

// NewLicenseRepository は LicenseRepository を生成します。
func NewLicenseRepository(pool pgdb.Queryer) *LicenseRepository {
	return &LicenseRepository{pool: pool}
}

// Create は許可を新規作成します。created_at と updated_at はデータベースが設定します。
func (r *LicenseRepository) Create(ctx context.Context, l *license.License) (*license.License, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO business_licenses (license_number, business_name, business_type, status, issued_date, expiration_date,
                                       issuing_authority, street_address, city, state, zip_code,
                                       contact_person, phone, email, description, conditions, is_renewable)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING `+licenseColumns,
		l.LicenseNumber,
		l.BusinessName,
		string(l.BusinessType),
		string(l.Status),
		l.IssuedDate,
		l.ExpirationDate,
		l.IssuingAuthority,
		l.StreetAddress,
		l.City,
		l.State,
		l.ZipCode,
		nullableString(l.ContactPerson),
		nullableString(l.Phone),
		nullableString(l.Email),
		nullableString(l.Description),
		nullableString(l.Conditions),
		l.IsRenewable,
	)

	created, err := scanLicense(row)
	if err != nil {
		return nil, translateLicensePgError(err)
	}
	return created, nil
}

// Update は Patch に含まれる列のみを更新し、updated_at をデータベースの現在時刻に進めます。
func (r *LicenseRepository) Update(ctx context.Context, id string, patch license.Patch) (*license.License, error) {
	args := make([]any, 0, 18)
	sets := make([]string, 0, 17)

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.BusinessName != nil {
		set("business_name", *patch.BusinessName)
	}
	if patch.BusinessType != nil {
		set("business_type", string(*patch.BusinessType))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.IssuedDate != nil {
		set("issued_date", *patch.IssuedDate)
	}
	if patch.ExpirationDate != nil {
		set("expiration_date", *patch.ExpirationDate)
	}
	if patch.IssuingAuthority != nil {
		set("issuing_authority", *patch.IssuingAuthority)
	}
	if patch.StreetAddress != nil {
		set("street_address", *patch.StreetAddress)
	}
	if patch.City != nil {
		set("city", *patch.City)
	}
	if patch.State != nil {
		set("state", *patch.State)
	}
	if patch.ZipCode != nil {
		set("zip_code", *patch.ZipCode)
	}
	if patch.ContactPersonSet {
		set("contact_person", nullableString(patch.ContactPerson))
	}
	if patch.PhoneSet {
		set("phone", nullableString(patch.Phone))
	}
	if patch.EmailSet {
		set("email", nullableString(patch.Email))
	}
	if patch.DescriptionSet {
		set("description", nullableString(patch.Description))
	}
	if patch.ConditionsSet {
		set("conditions", nullableString(patch.Conditions))
	}
	if patch.IsRenewable != nil {
		set("is_renewable", *patch.IsRenewable)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := `
        UPDATE business_licenses
           SET ` + strings.Join(sets, ", ") + `
         WHERE id = $` + strconv.Itoa(len(args)) + `
        RETURNING ` + licenseColumns

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	updated, err := scanLicense(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateLicensePgError(err)
	}
	return updated, nil
}

// Delete は許可を物理削除します。
func (r *LicenseRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM business_licenses WHERE id = $1`, id)
	if err != nil {
		return translateLicensePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return license.ErrLicenseNotFound
	}
	return nil
}

// FindByID は ID で許可を取得します。
func (r *LicenseRepository) FindByID(ctx context.Context, id string) (*license.License, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+licenseColumns+`
          FROM business_licenses
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanLicense(row)
	if err != nil {
		return nil, translateLicensePgError(err)
	}
	return found, nil
}

// FindByNumber は許可番号で許可を取得します。
func (r *LicenseRepository) FindByNumber(ctx context.Context, number string) (*license.License, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+licenseColumns+`
          FROM business_licenses
         WHERE license_number = $1
         LIMIT 1
    `, number)

	found, err := scanLicense(row)
	if err != nil {
		return nil, translateLicensePgError(err)
	}
	return found, nil
}

// Count は条件に一致する件数を返します。
func (r *LicenseRepository) Count(ctx context.Context, filter license.SearchFilter) (int, error) {
	whereClause, args := buildLicenseWhere(filter)

	var total int64
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM business_licenses`+whereClause, args...).Scan(&total); err != nil {
		return 0, translateLicensePgError(err)
	}
	return int(total), nil
}

// List は条件に一致する許可を作成日時の降順で返します。
func (r *LicenseRepository) List(ctx context.Context, filter license.SearchFilter, offset, limit int) ([]*license.License, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: offset=%d limit=%d", license.ErrValidation, offset, limit)
	}

	whereClause, args := buildLicenseWhere(filter)

	limitPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, limit)
	offsetPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, offset)

	query := `
        SELECT ` + licenseColumns + `
          FROM business_licenses` + whereClause + `
         ORDER BY created_at DESC, insert_seq DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateLicensePgError(err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0, limit)
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, translateLicensePgError(err)
		}
		licenses = append(licenses, l)
	}

	if err := rows.Err(); err != nil {
		return nil, translateLicensePgError(err)
	}

	return licenses, nil
}

// buildLicenseWhere は検索条件を AND で連結した WHERE 句とその引数を返します。
func buildLicenseWhere(filter license.SearchFilter) (string, []any) {
	args := make([]any, 0, 9)
	conditions := make([]string, 0, 9)

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(condition, "?", "$"+strconv.Itoa(len(args))))
	}

	if filter.LicenseNumber != nil {
		add("license_number ILIKE '%' || ? || '%'", likeEscaper.Replace(*filter.LicenseNumber))
	}
	if filter.BusinessName != nil {
		add("business_name ILIKE '%' || ? || '%'", likeEscaper.Replace(*filter.BusinessName))
	}
	if filter.BusinessType != nil {
		add("business_type = ?", string(*filter.BusinessType))
	}
	if filter.Status != nil {
		add("status = ?", string(*filter.Status))
	}
	if filter.City != nil {
		add("city ILIKE '%' || ? || '%'", likeEscaper.Replace(*filter.City))
	}
	if filter.State != nil {
		add("state = ?", *filter.State)
	}
	if filter.ZipCode != nil {
		add("zip_code = ?", *filter.ZipCode)
	}
	if filter.ExpiresBefore != nil {
		add("expiration_date <= ?", *filter.ExpiresBefore)
	}
	if filter.ExpiresAfter != nil {
		add("expiration_date >= ?", *filter.ExpiresAfter)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanLicense(row pgx.Row) (*license.License, error) {
	var (
		l             license.License
		businessType  string
		status        string
		contactPerson sql.NullString
		phone         sql.NullString
		email         sql.NullString
		description   sql.NullString
		conditions    sql.NullString
	)

	if err := row.Scan(
		&l.ID,
		&l.LicenseNumber,
		&l.BusinessName,
		&businessType,
		&status,
		&l.IssuedDate,
		&l.ExpirationDate,
		&l.IssuingAuthority,
		&l.StreetAddress,
		&l.City,
		&l.State,
		&l.ZipCode,
		&contactPerson,
		&phone,
		&email,
		&description,
		&conditions,
		&l.IsRenewable,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrLicenseNotFound
		}
		return nil, err
	}

	l.BusinessType = license.BusinessType(businessType)
	l.Status = license.Status(status)
	l.IssuedDate = l.IssuedDate.UTC()
	l.ExpirationDate = l.ExpirationDate.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	l.ContactPerson = stringPtr(contactPerson)
	l.Phone = stringPtr(phone)
	l.Email = stringPtr(email)
	l.Description = stringPtr(description)
	l.Conditions = stringPtr(conditions)

	return &l, nil
}

func translateLicensePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, license.ErrLicenseNotFound) {
		return license.ErrLicenseNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case licenseUniqueViolationCode:
			return license.ErrLicenseNumberAlreadyExists
		case licenseCheckViolationCode:
			return &license.ValidationError{Field: "expiration_date", Reason: "must be after issued_date"}
		case licenseInvalidTextCode:
			return &license.ValidationError{Field: "id", Reason: "must be a UUID"}
		}
	}

	return fmt.Errorf("%w: %w", license.ErrStoreUnavailable, err)
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
