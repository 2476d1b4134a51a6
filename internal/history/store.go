// internal/history/store.go

// Package history persists pipeline runs and compliance queries to
// Postgres, with a secondary copy indexed into Elasticsearch for
// full-text search. Both backends are optional.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"compliance-agent/internal/clients/gemini"
	apperrors "compliance-agent/internal/common/errors"
	"compliance-agent/internal/models"
)

const (
	runsIndex    = "pipeline-runs"
	queriesIndex = "compliance-queries"
)

// Logger interface definition
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// Indexer writes documents to the search index.
type Indexer interface {
	IndexJSON(ctx context.Context, index, docID string, doc interface{}) error
}

type Store struct {
	db      *sql.DB
	indexer Indexer
	logger  Logger
}

// NewStore builds the history store. Either backend may be nil, in
// which case writes to it are skipped.
func NewStore(db *sql.DB, indexer Indexer, log Logger) *Store {
	return &Store{
		db:      db,
		indexer: indexer,
		logger:  log,
	}
}

// SaveRun records a completed pipeline run. The Elasticsearch copy is
// best-effort: an index failure is logged, not returned.
func (s *Store) SaveRun(ctx context.Context, result models.PipelineResult) error {
	if s.db != nil {
		stages, err := json.Marshal(result.Stages)
		if err != nil {
			return fmt.Errorf("failed to marshal stages: %w", err)
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO pipeline_runs
			 (id, topic, final_content, accuracy_score, engagement_score, stages, sources, started_at, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.RunID, result.Topic, result.FinalContent,
			result.AccuracyScore, result.EngagementScore,
			stages, pq.Array(result.Sources),
			result.StartedAt, result.CompletedAt,
		)
		if err != nil {
			return apperrors.NewDatabaseInsertFailedError(fmt.Errorf("pipeline run: %w", err))
		}
	}

	s.index(ctx, runsIndex, result.RunID, result)
	return nil
}

// SaveQuery records an answered compliance question.
func (s *Store) SaveQuery(ctx context.Context, query string, analysis *gemini.ComplianceAnalysis) error {
	id := uuid.NewString()

	if s.db != nil {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO compliance_queries
			 (id, query, status, score, jurisdiction, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, query, analysis.Status, analysis.Score, analysis.Jurisdiction, time.Now().UTC(),
		)
		if err != nil {
			return apperrors.NewDatabaseInsertFailedError(fmt.Errorf("compliance query: %w", err))
		}
	}

	s.index(ctx, queriesIndex, id, map[string]interface{}{
		"id":        id,
		"query":     query,
		"analysis":  analysis,
		"createdAt": time.Now().UTC(),
	})
	return nil
}

func (s *Store) index(ctx context.Context, index, docID string, doc interface{}) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexJSON(ctx, index, docID, doc); err != nil {
		stdErr := apperrors.NewIndexWriteFailedError(index, err)
		s.logger.Warn("Search index write failed", map[string]interface{}{
			"index":     index,
			"docId":     docID,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
	}
}
