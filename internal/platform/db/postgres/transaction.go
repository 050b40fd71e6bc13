package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	readOnlyTxOptions  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	readWriteTxOptions = pgx.TxOptions{AccessMode: pgx.ReadWrite}
)

// ErrReadWriteInReadOnly は読み取り専用トランザクション内で読み書きトランザクションを要求した場合に返却されます。
var ErrReadWriteInReadOnly = errors.New("postgres: read-write transaction requested inside a read-only transaction")

type txContextKey struct{}

// txState はコンテキストに格納される実行中トランザクションです。
type txState struct {
	tx       pgx.Tx
	readOnly bool
}

// txStarter は pgxpool.Pool と pgxmock が満たすトランザクション開始インターフェースです。
type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// 既にトランザクションを持つコンテキストでは新たに開始せず、外側のトランザクションに参加します。
type TransactionManager struct {
	pool txStarter
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter) *TransactionManager {
	if pool == nil {
		return nil
	}
	return &TransactionManager{pool: pool}
}

// WithinReadOnly は REPEATABLE READ の読み取り専用トランザクションを開始し、fn を実行します。
// 件数取得と一覧取得を同一スナップショットで行うために使用します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, readOnlyTxOptions, fn)
}

// WithinReadWrite は読み書きトランザクションを開始し、fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, readWriteTxOptions, fn)
}

func (m *TransactionManager) within(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) (err error) {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	readOnly := opts.AccessMode == pgx.ReadOnly
	if state, ok := stateFromContext(ctx); ok {
		if state.readOnly && !readOnly {
			return ErrReadWriteInReadOnly
		}
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// ロールバックは呼び出し元のキャンセル後も実行する。
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
		}
	}()

	if err = fn(context.WithValue(ctx, txContextKey{}, txState{tx: tx, readOnly: readOnly})); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}

	committed = true
	return nil
}

func stateFromContext(ctx context.Context) (txState, bool) {
	if ctx == nil {
		return txState{}, false
	}
	state, ok := ctx.Value(txContextKey{}).(txState)
	return state, ok
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	state, ok := stateFromContext(ctx)
	return state.tx, ok
}

// QueryerFromContext はコンテキスト内にトランザクションが存在すればそれを返し、存在しなければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
