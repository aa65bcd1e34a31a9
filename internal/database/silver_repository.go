package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/toot-warehouse/internal/domain"
	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// Silver layer table names.
const (
	DateDimTable      = "dim_date"
	AccountDimTable   = "dim_account"
	ContentDimTable   = "dim_content"
	SentimentDimTable = "dim_sentiment"
	FactTable         = "fact_toot_engagement"
)

// SilverRepository rebuilds the star schema from the Bronze layer.
type SilverRepository struct {
	db           *sqlx.DB
	bronzeSchema string
	silverSchema string
	log          logger.Logger
}

// NewSilverRepository creates a Silver repository reading from bronzeSchema
// and writing to silverSchema.
func NewSilverRepository(db *sqlx.DB, bronzeSchema, silverSchema string, log logger.Logger) *SilverRepository {
	return &SilverRepository{
		db:           db,
		bronzeSchema: bronzeSchema,
		silverSchema: silverSchema,
		log:          log,
	}
}

// RunETL transforms everything currently landed in Bronze into the
// dimensional model. The whole transform runs in one transaction: dimensions
// first, then the fact table, so facts only ever bind to dimension rows that
// exist. Re-running against unchanged Bronze data is a no-op.
func (r *SilverRepository) RunETL(ctx context.Context) (*domain.SilverStats, error) {
	tx, beginErr := r.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return nil, fmt.Errorf("begin silver transaction: %w", beginErr)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stats := &domain.SilverStats{}

	steps := []struct {
		name string
		run  func(context.Context, *sqlx.Tx) (int64, error)
		dest *int64
	}{
		{"dim_date", r.loadDateDim, &stats.DateRows},
		{"dim_account", r.loadAccountDim, &stats.AccountVersions},
		{"dim_content", r.loadContentDim, &stats.ContentRows},
		{"dim_sentiment", r.loadSentimentDim, &stats.SentimentRows},
		{"fact_toot_engagement", r.loadFacts, &stats.FactRows},
	}

	for _, step := range steps {
		rows, stepErr := step.run(ctx, tx)
		if stepErr != nil {
			return nil, fmt.Errorf("silver etl %s: %w", step.name, stepErr)
		}

		*step.dest = rows
	}

	unresolved, unresolvedErr := r.countUnresolvedSentiment(ctx, tx)
	if unresolvedErr != nil {
		return nil, fmt.Errorf("silver etl unresolved sentiment: %w", unresolvedErr)
	}

	stats.UnresolvedSentiment = unresolved

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, fmt.Errorf("commit silver transaction: %w", commitErr)
	}

	if unresolved > 0 {
		r.log.Warn("facts with scored sentiment did not resolve to a sentiment bucket",
			logger.Int64("unresolved", unresolved))
	}

	return stats, nil
}

func (r *SilverRepository) loadDateDim(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s.dim_date
			(date_key, date, year, quarter, month, month_name,
			 week_of_year, day_of_month, day_of_week, day_name, is_weekend)
		SELECT DISTINCT
			(EXTRACT(YEAR FROM created_at) * 10000
			 + EXTRACT(MONTH FROM created_at) * 100
			 + EXTRACT(DAY FROM created_at))::INTEGER,
			created_at::DATE,
			EXTRACT(YEAR FROM created_at)::INTEGER,
			EXTRACT(QUARTER FROM created_at)::INTEGER,
			EXTRACT(MONTH FROM created_at)::INTEGER,
			TRIM(TO_CHAR(created_at, 'Month')),
			EXTRACT(WEEK FROM created_at)::INTEGER,
			EXTRACT(DAY FROM created_at)::INTEGER,
			EXTRACT(ISODOW FROM created_at)::INTEGER,
			TRIM(TO_CHAR(created_at, 'Day')),
			EXTRACT(ISODOW FROM created_at) IN (6, 7)
		FROM %[2]s.%[3]s
		ON CONFLICT (date_key) DO NOTHING`,
		r.silverSchema, r.bronzeSchema, BronzeTable)

	return execRows(ctx, tx, query)
}

// loadAccountDim maintains the account dimension as slowly changing
// history. Two statements in the enclosing transaction: first close every
// current version whose latest Bronze snapshot differs on a tracked
// attribute, then open a new current version for every account left
// without one. Latest snapshot per account is picked by ingestion time.
func (r *SilverRepository) loadAccountDim(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	expire := fmt.Sprintf(`
		WITH latest AS (
			SELECT DISTINCT ON (account_id)
				account_id, account_username, account_display_name,
				account_followers_count, account_following_count,
				account_statuses_count, account_is_bot
			FROM %[2]s.%[3]s
			ORDER BY account_id, ingestion_timestamp DESC, created_at DESC
		)
		UPDATE %[1]s.dim_account d
		SET is_current = FALSE,
		    valid_to = CURRENT_TIMESTAMP,
		    updated_at = NOW()
		FROM latest l
		WHERE d.account_id = l.account_id
		  AND d.is_current
		  AND (d.username        IS DISTINCT FROM l.account_username
		    OR d.display_name    IS DISTINCT FROM l.account_display_name
		    OR d.followers_count IS DISTINCT FROM l.account_followers_count
		    OR d.following_count IS DISTINCT FROM l.account_following_count
		    OR d.statuses_count  IS DISTINCT FROM l.account_statuses_count
		    OR d.is_bot          IS DISTINCT FROM l.account_is_bot)`,
		r.silverSchema, r.bronzeSchema, BronzeTable)

	if _, expireErr := tx.ExecContext(ctx, expire); expireErr != nil {
		return 0, fmt.Errorf("expire changed accounts: %w", expireErr)
	}

	open := fmt.Sprintf(`
		WITH latest AS (
			SELECT DISTINCT ON (account_id)
				account_id, account_username, account_display_name,
				account_followers_count, account_following_count,
				account_statuses_count, account_is_bot, account_created_at
			FROM %[2]s.%[3]s
			ORDER BY account_id, ingestion_timestamp DESC, created_at DESC
		)
		INSERT INTO %[1]s.dim_account
			(account_id, username, display_name, followers_count, following_count,
			 statuses_count, is_bot, account_created_at, account_age_days,
			 influence_tier, engagement_ratio, valid_from)
		SELECT
			l.account_id, l.account_username, l.account_display_name,
			l.account_followers_count, l.account_following_count,
			l.account_statuses_count, l.account_is_bot, l.account_created_at,
			CASE WHEN l.account_created_at IS NOT NULL
			     THEN EXTRACT(DAY FROM NOW() - l.account_created_at)::INTEGER
			END,
			%[4]s,
			CASE WHEN l.account_following_count > 0
			     THEN l.account_followers_count::DOUBLE PRECISION / l.account_following_count
			     ELSE 0
			END,
			CURRENT_TIMESTAMP
		FROM latest l
		LEFT JOIN %[1]s.dim_account d
			ON d.account_id = l.account_id AND d.is_current
		WHERE d.account_key IS NULL`,
		r.silverSchema, r.bronzeSchema, BronzeTable,
		influenceTierCase("l.account_followers_count"))

	return execRows(ctx, tx, open)
}

func (r *SilverRepository) loadContentDim(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s.dim_content
			(toot_id, language, visibility, content_length, content_clean_length,
			 has_media, media_count, media_types, has_poll, has_card, is_reblog,
			 is_reply, is_sensitive, has_spoiler, hashtag_count, mention_count,
			 tag_names, mention_usernames, content_type)
		SELECT DISTINCT ON (id)
			id, language, visibility,
			COALESCE(LENGTH(content), 0),
			COALESCE(LENGTH(content_clean), 0),
			media_count > 0, media_count, media_types,
			has_poll, has_card, is_reblog,
			in_reply_to_id IS NOT NULL,
			sensitive,
			COALESCE(spoiler_text, '') != '',
			CASE WHEN COALESCE(tag_names, '') = '' THEN 0
			     ELSE ARRAY_LENGTH(STRING_TO_ARRAY(tag_names, ','), 1)
			END,
			CASE WHEN COALESCE(mention_usernames, '') = '' THEN 0
			     ELSE ARRAY_LENGTH(STRING_TO_ARRAY(mention_usernames, ','), 1)
			END,
			tag_names, mention_usernames,
			%[4]s
		FROM %[2]s.%[3]s
		ORDER BY id, ingestion_timestamp DESC
		ON CONFLICT (toot_id) DO UPDATE SET
			language             = EXCLUDED.language,
			visibility           = EXCLUDED.visibility,
			content_length       = EXCLUDED.content_length,
			content_clean_length = EXCLUDED.content_clean_length,
			has_media            = EXCLUDED.has_media,
			media_count          = EXCLUDED.media_count,
			media_types          = EXCLUDED.media_types,
			hashtag_count        = EXCLUDED.hashtag_count,
			mention_count        = EXCLUDED.mention_count,
			tag_names            = EXCLUDED.tag_names,
			mention_usernames    = EXCLUDED.mention_usernames,
			content_type         = EXCLUDED.content_type`,
		r.silverSchema, r.bronzeSchema, BronzeTable, contentTypeCase())

	return execRows(ctx, tx, query)
}

// loadSentimentDim inserts any bucket combination observed in Bronze that
// the seeded reference rows do not already cover, such as a new scoring
// model name.
func (r *SilverRepository) loadSentimentDim(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s.dim_sentiment
			(sentiment_value, sentiment_score_min, sentiment_score_max,
			 sentiment_confidence, sentiment_model_name)
		SELECT DISTINCT
			b.sentiment_value, r.score_min, r.score_max, r.confidence, b.sentiment_model_name
		FROM %[2]s.%[3]s b
		CROSS JOIN (VALUES
			%[4]s
		) AS r (score_min, score_max, confidence)
		WHERE b.sentiment_value IS NOT NULL
		  AND b.sentiment_model_name IS NOT NULL
		ON CONFLICT (sentiment_value, sentiment_score_min, sentiment_score_max, sentiment_model_name)
		DO NOTHING`,
		r.silverSchema, r.bronzeSchema, BronzeTable, confidenceRangeValues())

	return execRows(ctx, tx, query)
}

// loadFacts builds one fact row per status, binding to the current account
// version and recomputing total_engagement from the four counters. The
// sentiment join treats the top score bucket as closed so a score of
// exactly 1.0 still resolves.
func (r *SilverRepository) loadFacts(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s.fact_toot_engagement
			(toot_id, date_key, account_key, content_key, sentiment_key,
			 replies_count, reblogs_count, favourites_count, quotes_count,
			 total_engagement, visibility, language, created_at, edited_at, loaded_at)
		SELECT
			b.id,
			(EXTRACT(YEAR FROM b.created_at) * 10000
			 + EXTRACT(MONTH FROM b.created_at) * 100
			 + EXTRACT(DAY FROM b.created_at))::INTEGER,
			da.account_key,
			dc.content_key,
			ds.sentiment_key,
			b.replies_count, b.reblogs_count, b.favourites_count, b.quotes_count,
			b.replies_count + b.reblogs_count + b.favourites_count + b.quotes_count,
			b.visibility, b.language, b.created_at, b.edited_at, NOW()
		FROM (
			SELECT DISTINCT ON (id) *
			FROM %[2]s.%[3]s
			ORDER BY id, ingestion_timestamp DESC
		) b
		LEFT JOIN %[1]s.dim_account da
			ON da.account_id = b.account_id AND da.is_current
		LEFT JOIN %[1]s.dim_content dc
			ON dc.toot_id = b.id
		LEFT JOIN %[1]s.dim_sentiment ds
			ON ds.sentiment_value = b.sentiment_value
			AND ds.sentiment_model_name = b.sentiment_model_name
			AND b.sentiment_score >= ds.sentiment_score_min
			AND (b.sentiment_score < ds.sentiment_score_max
				OR (ds.sentiment_score_max >= %[4]v AND b.sentiment_score <= ds.sentiment_score_max))
		ON CONFLICT (toot_id) DO UPDATE SET
			account_key      = EXCLUDED.account_key,
			sentiment_key    = EXCLUDED.sentiment_key,
			replies_count    = EXCLUDED.replies_count,
			reblogs_count    = EXCLUDED.reblogs_count,
			favourites_count = EXCLUDED.favourites_count,
			quotes_count     = EXCLUDED.quotes_count,
			total_engagement = EXCLUDED.total_engagement,
			edited_at        = EXCLUDED.edited_at,
			loaded_at        = EXCLUDED.loaded_at`,
		r.silverSchema, r.bronzeSchema, BronzeTable, domain.ScoreCeiling)

	return execRows(ctx, tx, query)
}

// countUnresolvedSentiment counts facts whose status carries a sentiment
// score yet bound to no sentiment bucket. Each is a resolution warning,
// never an error: the fact row still lands with a null sentiment key.
func (r *SilverRepository) countUnresolvedSentiment(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %[1]s.fact_toot_engagement f
		JOIN %[2]s.%[3]s b ON b.id = f.toot_id
		WHERE f.sentiment_key IS NULL
		  AND b.sentiment_value IS NOT NULL`,
		r.silverSchema, r.bronzeSchema, BronzeTable)

	var count int64
	if scanErr := tx.QueryRowContext(ctx, query).Scan(&count); scanErr != nil {
		return 0, scanErr
	}

	return count, nil
}

// Stats reports per-table row counts and how many accounts are current.
func (r *SilverRepository) Stats(ctx context.Context) (*domain.SilverLayerStats, error) {
	stats := &domain.SilverLayerStats{TableCounts: make(map[string]int64)}

	tables := []string{DateDimTable, AccountDimTable, ContentDimTable, SentimentDimTable, FactTable}
	for _, table := range tables {
		var count int64

		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, r.silverSchema, table)
		if scanErr := r.db.QueryRowContext(ctx, query).Scan(&count); scanErr != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, scanErr)
		}

		stats.TableCounts[table] = count
	}

	current := fmt.Sprintf(`SELECT COUNT(*) FROM %s.dim_account WHERE is_current`, r.silverSchema)
	if scanErr := r.db.QueryRowContext(ctx, current).Scan(&stats.CurrentAccounts); scanErr != nil {
		return nil, fmt.Errorf("failed to count current accounts: %w", scanErr)
	}

	return stats, nil
}

// influenceTierCase renders the influence ladder from the domain
// definition as a SQL CASE over the given follower-count column.
func influenceTierCase(column string) string {
	var b strings.Builder

	b.WriteString("CASE\n")
	for _, threshold := range domain.InfluenceTierThresholds() {
		fmt.Fprintf(&b, "\t\t\t\tWHEN %s >= %d THEN '%s'\n", column, threshold.MinFollowers, threshold.Tier)
	}
	fmt.Fprintf(&b, "\t\t\t\tELSE '%s'\n\t\t\tEND", domain.TierMicro)

	return b.String()
}

// contentTypeCase renders the content classification as a SQL CASE,
// labels taken from the domain definition. Precedence matches the
// domain's: Reblog, then Reply, then Quote.
func contentTypeCase() string {
	return fmt.Sprintf(`CASE
				WHEN is_reblog THEN '%s'
				WHEN in_reply_to_id IS NOT NULL THEN '%s'
				WHEN quote IS NOT NULL THEN '%s'
				ELSE '%s'
			END`,
		domain.ContentTypeReblog, domain.ContentTypeReply,
		domain.ContentTypeQuote, domain.ContentTypeOriginal)
}

// confidenceRangeValues renders the domain's confidence bands as SQL
// VALUES rows of (score_min, score_max, confidence).
func confidenceRangeValues() string {
	ranges := domain.ConfidenceRanges()
	rows := make([]string, len(ranges))
	for i, band := range ranges {
		rows[i] = fmt.Sprintf("(%.2f, %.2f, '%s')", band.ScoreMin, band.ScoreMax, band.Confidence)
	}

	return strings.Join(rows, ",\n\t\t\t")
}

func execRows(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	result, execErr := tx.ExecContext(ctx, query, args...)
	if execErr != nil {
		return 0, execErr
	}

	return rowsAffected(result)
}

func rowsAffected(result sql.Result) (int64, error) {
	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, fmt.Errorf("rows affected: %w", affectedErr)
	}

	return affected, nil
}
