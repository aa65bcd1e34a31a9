package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// BronzeTable is the raw landing table for enriched statuses.
const BronzeTable = "transformed_toots_with_sentiment_data"

const uniqueViolationCode = "23505"

// bronzeColumns is the exact landing column order used by both the COPY
// path and the per-row fallback.
var bronzeColumns = []string{
	"id", "created_at", "edited_at", "in_reply_to_id",
	"content", "content_clean", "spoiler_text", "language", "visibility",
	"sensitive", "is_reblog", "has_poll", "has_card", "quote",
	"tags", "mentions", "media_attachments",
	"media_count", "media_types", "tag_names", "mention_usernames",
	"account_id", "account_username", "account_display_name",
	"account_followers_count", "account_following_count",
	"account_statuses_count", "account_is_bot", "account_created_at",
	"replies_count", "reblogs_count", "favourites_count", "quotes_count",
	"sentiment_value", "sentiment_score", "sentiment_model_name",
	"ingestion_timestamp", "pipeline_run_id", "data_version",
}

// BronzeRepository persists raw enriched statuses with lineage metadata.
type BronzeRepository struct {
	db     *sqlx.DB
	schema string
	log    logger.Logger
}

// NewBronzeRepository creates a Bronze repository for the given schema.
func NewBronzeRepository(db *sqlx.DB, schema string, log logger.Logger) *BronzeRepository {
	return &BronzeRepository{db: db, schema: schema, log: log}
}

// InsertBatch writes a deduplicated batch using COPY. Records whose natural
// key already exists make COPY fail as a unit, so on a unique violation the
// whole batch is retried row by row, skipping keys that are already landed.
// Returns how many rows were inserted and how many were skipped.
func (r *BronzeRepository) InsertBatch(
	ctx context.Context,
	records []domain.EnrichedStatus,
	runID string,
	ingestedAt time.Time,
) (inserted, duplicates int64, err error) {
	if len(records) == 0 {
		return 0, 0, domain.ErrEmptyBatch
	}

	copyErr := r.copyBatch(ctx, records, runID, ingestedAt)
	if copyErr == nil {
		r.log.Debug("bronze batch landed via copy",
			logger.String("run_id", runID),
			logger.Int("rows", len(records)))

		return int64(len(records)), 0, nil
	}

	if !isUniqueViolation(copyErr) {
		return 0, 0, &domain.LoadError{Table: BronzeTable, Err: copyErr}
	}

	r.log.Warn("bronze copy hit existing keys, falling back to per-row insert",
		logger.String("run_id", runID),
		logger.Error(copyErr))

	inserted, duplicates, err = r.insertRows(ctx, records, runID, ingestedAt)
	if err != nil {
		return 0, 0, &domain.LoadError{Table: BronzeTable, Err: err}
	}

	return inserted, duplicates, nil
}

func (r *BronzeRepository) copyBatch(
	ctx context.Context,
	records []domain.EnrichedStatus,
	runID string,
	ingestedAt time.Time,
) error {
	tx, beginErr := r.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("begin copy transaction: %w", beginErr)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, prepareErr := tx.PrepareContext(ctx, pq.CopyInSchema(r.schema, BronzeTable, bronzeColumns...))
	if prepareErr != nil {
		return fmt.Errorf("prepare copy: %w", prepareErr)
	}

	for i := range records {
		if _, execErr := stmt.ExecContext(ctx, bronzeValues(&records[i], runID, ingestedAt)...); execErr != nil {
			stmt.Close()
			return fmt.Errorf("buffer copy row %s: %w", records[i].ID, execErr)
		}
	}

	// Flush the buffered rows; constraint violations surface here
	if _, flushErr := stmt.ExecContext(ctx); flushErr != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", flushErr)
	}

	if closeErr := stmt.Close(); closeErr != nil {
		return fmt.Errorf("close copy: %w", closeErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit copy: %w", commitErr)
	}

	return nil
}

func (r *BronzeRepository) insertRows(
	ctx context.Context,
	records []domain.EnrichedStatus,
	runID string,
	ingestedAt time.Time,
) (inserted, duplicates int64, err error) {
	query := r.insertQuery()

	for i := range records {
		result, execErr := r.db.ExecContext(ctx, query, bronzeValues(&records[i], runID, ingestedAt)...)
		if execErr != nil {
			return 0, 0, fmt.Errorf("insert row %s: %w", records[i].ID, execErr)
		}

		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return 0, 0, fmt.Errorf("rows affected for %s: %w", records[i].ID, affectedErr)
		}

		if affected > 0 {
			inserted++
		} else {
			duplicates++
		}
	}

	return inserted, duplicates, nil
}

func (r *BronzeRepository) insertQuery() string {
	placeholders := make([]string, len(bronzeColumns))
	for i := range bronzeColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf(
		`INSERT INTO %s.%s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING`,
		r.schema, BronzeTable,
		strings.Join(bronzeColumns, ", "), strings.Join(placeholders, ", "),
	)
}

// Stats reports the Bronze layer's current row count, distinct pipeline
// runs, and latest ingestion time.
func (r *BronzeRepository) Stats(ctx context.Context) (*domain.BronzeLayerStats, error) {
	stats := &domain.BronzeLayerStats{}

	query := fmt.Sprintf(
		`SELECT COUNT(*), COUNT(DISTINCT pipeline_run_id), MAX(ingestion_timestamp) FROM %s.%s`,
		r.schema, BronzeTable,
	)

	if scanErr := r.db.QueryRowContext(ctx, query).
		Scan(&stats.RowCount, &stats.PipelineRuns, &stats.LatestIngestion); scanErr != nil {
		return nil, fmt.Errorf("failed to read bronze stats: %w", scanErr)
	}

	return stats, nil
}

func bronzeValues(s *domain.EnrichedStatus, runID string, ingestedAt time.Time) []any {
	return []any{
		s.ID, s.CreatedAt, s.EditedAt, s.InReplyToID,
		s.Content, s.ContentClean, s.SpoilerText, s.Language, s.Visibility,
		s.Sensitive, s.IsReblog, s.HasPoll, s.HasCard, s.Quote,
		rawText(s.Tags), rawText(s.Mentions), rawText(s.MediaAttachments),
		s.MediaCount, s.MediaTypes, s.TagNames, s.MentionUsernames,
		s.AccountID, s.AccountUsername, s.AccountDisplayName,
		s.AccountFollowersCount, s.AccountFollowingCount,
		s.AccountStatusesCount, s.AccountIsBot, s.AccountCreatedAt,
		s.RepliesCount, s.ReblogsCount, s.FavouritesCount, s.QuotesCount,
		s.SentimentValue, s.SentimentScore, s.SentimentModelName,
		ingestedAt, runID, domain.BronzeSchemaVersion,
	}
}

// rawText stores opaque JSON payloads as text, NULL when absent.
func rawText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	return string(raw)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode
}
