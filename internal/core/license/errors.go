package license

import (
	"errors"
	"fmt"
)

var (
	// ErrLicenseNotFound は許可が存在しない場合に返却されます。
	ErrLicenseNotFound = errors.New("license: not found")
	// ErrLicenseNumberAlreadyExists は許可番号が重複した場合に返却されます。
	ErrLicenseNumberAlreadyExists = errors.New("license: license number already exists")
	// ErrValidation は入力値が制約を満たさない場合に返却されます。
	ErrValidation = errors.New("license: validation failed")
	// ErrStoreUnavailable は永続化層の障害時に返却されます。
	ErrStoreUnavailable = errors.New("license: store unavailable")
)

// ValidationError はフィールド単位の検証エラーです。errors.Is(err, ErrValidation) を満たします。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("license: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
