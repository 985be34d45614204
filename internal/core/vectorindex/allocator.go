package vectorindex

import (
	"context"
	"log/slog"
)

const (
	// DefaultIDScanLimit は次の点IDを決めるために走査する既存点の上限
	DefaultIDScanLimit = 10000
	idScanPageSize     = 1000
)

// IDAllocator は既存点の最大IDから次の点IDを決める。
// 走査は ScanLimit 件までなので、それを超える既存点があると衝突し得る。
// 同一コレクションへの同時書き込みは想定しない。
type IDAllocator struct {
	store     Store
	scanLimit int
	logger    *slog.Logger
}

// IDAllocatorOption は IDAllocator のオプション
type IDAllocatorOption func(*IDAllocator)

// WithScanLimit は走査上限を設定する
func WithScanLimit(limit int) IDAllocatorOption {
	return func(a *IDAllocator) {
		if limit > 0 {
			a.scanLimit = limit
		}
	}
}

// WithAllocatorLogger はロガーを設定する
func WithAllocatorLogger(logger *slog.Logger) IDAllocatorOption {
	return func(a *IDAllocator) {
		a.logger = logger
	}
}

// NewIDAllocator は新しい IDAllocator を作成する
func NewIDAllocator(store Store, opts ...IDAllocatorOption) *IDAllocator {
	a := &IDAllocator{
		store:     store,
		scanLimit: DefaultIDScanLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Next は max(既存ID)+1 を返す。点がなければ 0。
// 走査に失敗した場合は警告を出して (0, false) を返す。
func (a *IDAllocator) Next(ctx context.Context, collection string) (uint64, bool) {
	var (
		maxID   uint64
		found   bool
		scanned int
		offset  *uint64
	)

	for scanned < a.scanLimit {
		limit := min(idScanPageSize, a.scanLimit-scanned)
		page, err := a.store.Scroll(ctx, collection, ScrollRequest{
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			a.logger.Warn("次の点IDを決定できませんでした。ID 0 から開始します",
				"collection", collection,
				"error", err,
			)
			return 0, false
		}

		for _, p := range page.Points {
			if !found || p.ID > maxID {
				maxID = p.ID
				found = true
			}
		}
		scanned += len(page.Points)

		if page.NextOffset == nil || len(page.Points) == 0 {
			break
		}
		offset = page.NextOffset
	}

	if !found {
		return 0, true
	}
	return maxID + 1, true
}
