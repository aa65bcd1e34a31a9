// Package domain contains the core domain models for the warehouse service.
package domain

import (
	"encoding/json"
	"time"
)

// BronzeSchemaVersion is stamped on every Bronze row as data_version.
const BronzeSchemaVersion = "1.0"

// EnrichedStatus is the input contract: one already-cleaned, already-scored
// Mastodon status as produced by the upstream transform stage. Structured
// sub-objects (tags, mentions, media attachments) arrive both as opaque
// serialized payloads, preserved for audit, and as the flattened fields the
// dimensional model needs.
type EnrichedStatus struct {
	ID          string     `binding:"required" json:"id"`
	CreatedAt   time.Time  `binding:"required" json:"created_at"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	InReplyToID *string    `json:"in_reply_to_id,omitempty"`

	Content      string  `json:"content"`
	ContentClean string  `json:"content_clean"`
	SpoilerText  string  `json:"spoiler_text,omitempty"`
	Language     string  `json:"language"`
	Visibility   string  `json:"visibility"`
	Sensitive    bool    `json:"sensitive"`
	IsReblog     bool    `json:"is_reblog"`
	HasPoll      bool    `json:"has_poll"`
	HasCard      bool    `json:"has_card"`
	Quote        *string `json:"quote,omitempty"`

	// Opaque source structures, kept serialized for Bronze audit fidelity.
	Tags             json.RawMessage `json:"tags,omitempty"`
	Mentions         json.RawMessage `json:"mentions,omitempty"`
	MediaAttachments json.RawMessage `json:"media_attachments,omitempty"`

	MediaCount       int    `json:"media_count"`
	MediaTypes       string `json:"media_types"`
	TagNames         string `json:"tag_names"`
	MentionUsernames string `json:"mention_usernames"`

	AccountID             string     `binding:"required" json:"account_id"`
	AccountUsername       string     `json:"account_username"`
	AccountDisplayName    string     `json:"account_display_name"`
	AccountFollowersCount int64      `json:"account_followers_count"`
	AccountFollowingCount int64      `json:"account_following_count"`
	AccountStatusesCount  int64      `json:"account_statuses_count"`
	AccountIsBot          bool       `json:"account_is_bot"`
	AccountCreatedAt      *time.Time `json:"account_created_at,omitempty"`

	RepliesCount    int64 `json:"replies_count"`
	ReblogsCount    int64 `json:"reblogs_count"`
	FavouritesCount int64 `json:"favourites_count"`
	QuotesCount     int64 `json:"quotes_count"`

	SentimentValue     *string  `json:"sentiment_value,omitempty"`
	SentimentScore     *float64 `json:"sentiment_score,omitempty"`
	SentimentModelName *string  `json:"sentiment_model_name,omitempty"`
}

// BatchLoadRequest wraps a batch of enriched statuses for loading.
// RunID is optional; the service generates one when absent.
type BatchLoadRequest struct {
	RunID    string           `json:"run_id,omitempty"`
	Statuses []EnrichedStatus `binding:"required,min=1" json:"statuses"`
}
