package license

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Service は事業許可に関するユースケース (検索エンジン) をまとめます。
// レコードは Repository と Cache のみが保持し、Service 自体は並行呼び出しに対して安全です。
type Service struct {
	repo  Repository
	cache Cache
	tx    TransactionManager

	// invalidations は無効化の世代です。読み込み開始後に世代が進んだ場合、その結果はキャッシュしません。
	invalidations atomic.Uint64
	populateMu    sync.RWMutex
}

// UseCase は許可ユースケースの公開インターフェースです。
type UseCase interface {
	CreateLicense(ctx context.Context, in CreateLicenseInput) (*License, error)
	GetLicense(ctx context.Context, in GetLicenseInput) (*License, error)
	GetLicenseByNumber(ctx context.Context, in GetLicenseByNumberInput) (*License, error)
	SearchLicenses(ctx context.Context, in SearchLicensesInput) (*SearchLicensesResult, error)
	UpdateLicense(ctx context.Context, in UpdateLicenseInput) (*License, error)
	DeleteLicense(ctx context.Context, in DeleteLicenseInput) (bool, error)
}

// NewService は Service を生成します。cache が nil の場合はキャッシュを使用しません。
func NewService(repo Repository, cache Cache, tx TransactionManager) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, cache: cache, tx: tx}
}

// CreateLicenseInput は許可作成時の入力です。
type CreateLicenseInput struct {
	LicenseNumber    string
	BusinessName     string
	BusinessType     BusinessType
	Status           *Status
	IssuedDate       time.Time
	ExpirationDate   time.Time
	IssuingAuthority string
	StreetAddress    string
	City             string
	State            string
	ZipCode          string
	ContactPerson    *string
	Phone            *string
	Email            *string
	Description      *string
	Conditions       *string
	IsRenewable      *bool
}

// GetLicenseInput は ID による取得時の入力です。
type GetLicenseInput struct {
	ID string
}

// GetLicenseByNumberInput は許可番号による取得時の入力です。
type GetLicenseByNumberInput struct {
	LicenseNumber string
}

// UpdateLicenseInput は部分更新時の入力です。
type UpdateLicenseInput struct {
	ID     string
	Fields Patch
}

// DeleteLicenseInput は削除時の入力です。
type DeleteLicenseInput struct {
	ID string
}

// SearchLicensesInput は検索時の入力です。Page と Size が 0 の場合は既定値を使用します。
type SearchLicensesInput struct {
	Filter SearchFilter
	Page   int
	Size   int
}

// SearchLicensesResult は検索結果の 1 ページです。
type SearchLicensesResult struct {
	Items []*License
	Total int
	Page  int
	Size  int
	Pages int
}

// CreateLicense は新しい許可を作成します。
func (s *Service) CreateLicense(ctx context.Context, in CreateLicenseInput) (*License, error) {
	l, err := in.toLicense()
	if err != nil {
		return nil, err
	}

	var created *License
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureNumberNotExists(txCtx, l.LicenseNumber); err != nil {
			return err
		}

		result, err := s.repo.Create(txCtx, l)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// GetLicense は ID で許可を取得します。キャッシュを優先し、ミス時のみストアを参照します。
func (s *Service) GetLicense(ctx context.Context, in GetLicenseInput) (*License, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	return s.readThrough(ctx, IDCacheKey(id), func(txCtx context.Context) (*License, error) {
		return s.repo.FindByID(txCtx, id)
	})
}

// GetLicenseByNumber は許可番号で許可を取得します。
func (s *Service) GetLicenseByNumber(ctx context.Context, in GetLicenseByNumberInput) (*License, error) {
	number, err := licenseNumberRule.normalize(in.LicenseNumber)
	if err != nil {
		return nil, err
	}

	return s.readThrough(ctx, NumberCacheKey(number), func(txCtx context.Context) (*License, error) {
		return s.repo.FindByNumber(txCtx, number)
	})
}

// SearchLicenses は条件に一致する許可を作成日時の降順でページ分割して返します。
func (s *Service) SearchLicenses(ctx context.Context, in SearchLicensesInput) (*SearchLicensesResult, error) {
	page, size, err := normalizePagination(in.Page, in.Size)
	if err != nil {
		return nil, err
	}

	filter, err := normalizeFilter(in.Filter)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * size

	var (
		total int
		items []*License
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		count, err := s.repo.Count(txCtx, filter)
		if err != nil {
			return err
		}
		total = count

		if total == 0 || offset >= total {
			return nil
		}

		result, err := s.repo.List(txCtx, filter, offset, size)
		if err != nil {
			return err
		}
		items = result
		return nil
	}); err != nil {
		return nil, err
	}

	if items == nil {
		items = []*License{}
	}

	return &SearchLicensesResult{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: PageCount(total, size),
	}, nil
}

// UpdateLicense は指定されたフィールドのみを更新します。許可番号は変更できません。
func (s *Service) UpdateLicense(ctx context.Context, in UpdateLicenseInput) (*License, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	patch, err := normalizePatch(in.Fields)
	if err != nil {
		return nil, err
	}

	var updated *License
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if patch.IssuedDate != nil || patch.ExpirationDate != nil {
			merged := existing.Clone()
			patch.Apply(merged)
			if err := validateDateRange(merged.IssuedDate, merged.ExpirationDate); err != nil {
				return err
			}
		}

		result, err := s.repo.Update(txCtx, id, patch)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated)
	return updated, nil
}

// DeleteLicense は許可を削除します。対象が存在しない場合は false を返します。
func (s *Service) DeleteLicense(ctx context.Context, in DeleteLicenseInput) (bool, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return false, err
	}

	var deleted *License
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, ErrLicenseNotFound) {
				return nil
			}
			return err
		}

		if err := s.repo.Delete(txCtx, id); err != nil {
			if errors.Is(err, ErrLicenseNotFound) {
				return nil
			}
			return err
		}

		deleted = existing
		return nil
	}); err != nil {
		return false, err
	}

	if deleted == nil {
		return false, nil
	}

	s.invalidate(ctx, deleted)
	return true, nil
}

func (s *Service) readThrough(ctx context.Context, key string, load func(context.Context) (*License, error)) (*License, error) {
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	generation := s.invalidations.Load()

	var found *License
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := load(txCtx)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.populate(ctx, key, found, generation)
	return found, nil
}

// populate は読み込み開始後に無効化が起きていない場合に限りキャッシュへ保存します。
func (s *Service) populate(ctx context.Context, key string, l *License, generation uint64) {
	s.populateMu.RLock()
	defer s.populateMu.RUnlock()

	if s.invalidations.Load() != generation {
		return
	}
	s.cache.Set(ctx, key, l)
}

// invalidate はコミット後に呼び出し、ID と許可番号の両方のキーを破棄します。
func (s *Service) invalidate(ctx context.Context, l *License) {
	s.populateMu.Lock()
	s.invalidations.Add(1)
	s.populateMu.Unlock()

	s.cache.Delete(ctx, IDCacheKey(l.ID), NumberCacheKey(l.LicenseNumber))
}

func (s *Service) ensureNumberNotExists(ctx context.Context, number string) error {
	existing, err := s.repo.FindByNumber(ctx, number)
	if err != nil && !errors.Is(err, ErrLicenseNotFound) {
		return err
	}
	if existing != nil {
		return ErrLicenseNumberAlreadyExists
	}
	return nil
}

func (in CreateLicenseInput) toLicense() (*License, error) {
	var (
		l   License
		err error
	)

	if l.LicenseNumber, err = licenseNumberRule.normalize(in.LicenseNumber); err != nil {
		return nil, err
	}
	if l.BusinessName, err = businessNameRule.normalize(in.BusinessName); err != nil {
		return nil, err
	}
	if l.BusinessType, err = normalizeBusinessType(in.BusinessType); err != nil {
		return nil, err
	}

	l.Status = StatusActive
	if in.Status != nil {
		if l.Status, err = normalizeStatus(*in.Status); err != nil {
			return nil, err
		}
	}

	if l.IssuedDate, err = normalizeTimestamp("issued_date", in.IssuedDate); err != nil {
		return nil, err
	}
	if l.ExpirationDate, err = normalizeTimestamp("expiration_date", in.ExpirationDate); err != nil {
		return nil, err
	}
	if err := validateDateRange(l.IssuedDate, l.ExpirationDate); err != nil {
		return nil, err
	}

	if l.IssuingAuthority, err = issuingAuthorityRule.normalize(in.IssuingAuthority); err != nil {
		return nil, err
	}
	if l.StreetAddress, err = streetAddressRule.normalize(in.StreetAddress); err != nil {
		return nil, err
	}
	if l.City, err = cityRule.normalize(in.City); err != nil {
		return nil, err
	}
	if l.State, err = stateRule.normalize(in.State); err != nil {
		return nil, err
	}
	if l.ZipCode, err = zipCodeRule.normalize(in.ZipCode); err != nil {
		return nil, err
	}

	if l.ContactPerson, err = contactPersonRule.normalizeOptional(in.ContactPerson); err != nil {
		return nil, err
	}
	if l.Phone, err = phoneRule.normalizeOptional(in.Phone); err != nil {
		return nil, err
	}
	if l.Email, err = emailRule.normalizeOptional(in.Email); err != nil {
		return nil, err
	}
	l.Description = normalizeText(in.Description)
	l.Conditions = normalizeText(in.Conditions)

	l.IsRenewable = true
	if in.IsRenewable != nil {
		l.IsRenewable = *in.IsRenewable
	}

	return &l, nil
}
