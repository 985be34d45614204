package ingestion

import (
	"time"

	"github.com/google/uuid"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// Stage は同期処理の段階
type Stage string

const (
	StageStarted      Stage = "STARTED"
	StageFetched      Stage = "FETCHED"
	StageTransformed  Stage = "TRANSFORMED"
	StageValidated    Stage = "VALIDATED"
	StageEmbedded     Stage = "EMBEDDED"
	StageScopeCleared Stage = "SCOPE_CLEARED"
	StageUploaded     Stage = "UPLOADED"
	StageDone         Stage = "DONE"
	StageFailed       Stage = "FAILED"
)

// SyncResult は同期1回分の結果。Success が唯一の成否判定。
type SyncResult struct {
	RunID      uuid.UUID
	Success    bool
	Stage      Stage
	FailedAt   Stage
	Message    string
	Reason     string
	Err        error
	Scope      vectorindex.Scope
	Collection string

	ResourcesFetched   int
	ResourcesProcessed int
	ResourcesSkipped   int
	ChunksBuilt        int
	FailedEmbeddings   int
	VectorsUploaded    int
	Deleted            uint64
	Residual           uint64
	TotalVectors       uint64
	StartID            uint64
	IDFallback         bool
	IndexOutcomes      []vectorindex.IndexOutcome

	StartedAt time.Time
	Duration  time.Duration
}

func newSyncResult(scope vectorindex.Scope, collection string) *SyncResult {
	return &SyncResult{
		RunID:      uuid.New(),
		Stage:      StageStarted,
		Scope:      scope,
		Collection: collection,
		StartedAt:  time.Now(),
	}
}

func (r *SyncResult) advance(stage Stage) {
	r.Stage = stage
}

func (r *SyncResult) fail(reason string, err error) *SyncResult {
	r.Success = false
	r.FailedAt = r.Stage
	r.Stage = StageFailed
	r.Reason = reason
	r.Err = err
	if err != nil {
		r.Message = err.Error()
	} else {
		r.Message = reason
	}
	r.Duration = time.Since(r.StartedAt)
	return r
}

func (r *SyncResult) succeed(message string) *SyncResult {
	r.Success = true
	r.Stage = StageDone
	r.Message = message
	r.Duration = time.Since(r.StartedAt)
	return r
}
