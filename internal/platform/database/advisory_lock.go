package database

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/jinford/course-rag/internal/core/ingestion"
)

// LockManager はトランザクション内でアドバイザリロックを取得します
type LockManager struct {
	tx pgx.Tx
}

// NewLockManager はトランザクションからロックマネージャーを生成します
func NewLockManager(tx pgx.Tx) *LockManager {
	return &LockManager{tx: tx}
}

// GenerateLockID は文字列からロックIDを生成します
func GenerateLockID(parts ...string) int64 {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
	}
	hash := h.Sum(nil)

	// ハッシュの最初の8バイトをint64として使用
	var id int64
	for i := range 8 {
		id = (id << 8) | int64(hash[i])
	}

	return id
}

// Acquire はPostgreSQLアドバイザリロックを取得します。
// トランザクションスコープのロック（pg_advisory_xact_lock）なので、トランザクション終了時に解放されます。
func (m *LockManager) Acquire(ctx context.Context, lockID int64) error {
	if _, err := m.tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockID); err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return nil
}

// ScopeLocker は同期スコープ単位でアドバイザリロックを取る ingestion.ScopeLocker 実装。
// 別プロセスが同じコレクション・コースを同期している間は待機する。
type ScopeLocker struct {
	tx     *TransactionProvider
	logger *slog.Logger
}

var _ ingestion.ScopeLocker = (*ScopeLocker)(nil)

// NewScopeLocker は新しい ScopeLocker を返します
func NewScopeLocker(tx *TransactionProvider, logger *slog.Logger) *ScopeLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScopeLocker{tx: tx, logger: logger}
}

// WithLock はロックを保持したまま fn を実行します。fn のエラーはそのまま返す。
func (l *ScopeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	_, err := Transact(ctx, l.tx, func(a *Adapter) (struct{}, error) {
		lockID := GenerateLockID(key)
		l.logger.Debug("スコープロックを取得します", "key", key, "lockID", lockID)
		if err := a.Locks.Acquire(ctx, lockID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, fn(ctx)
	})
	return err
}
