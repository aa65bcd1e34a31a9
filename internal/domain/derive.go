package domain

// Influence tiers bucketed by follower count.
const (
	TierMega  = "Mega"
	TierMacro = "Macro"
	TierMid   = "Mid"
	TierMicro = "Micro"
)

// TierThreshold is one rung of the influence ladder: the minimum follower
// count that places an account in a tier.
type TierThreshold struct {
	Tier         string
	MinFollowers int64
}

// InfluenceTierThresholds returns the influence ladder, highest tier
// first. Accounts below every rung are TierMicro. The Silver ETL builds
// its tier expression from this ladder, so classification has a single
// definition.
func InfluenceTierThresholds() []TierThreshold {
	return []TierThreshold{
		{Tier: TierMega, MinFollowers: 1_000_000},
		{Tier: TierMacro, MinFollowers: 100_000},
		{Tier: TierMid, MinFollowers: 10_000},
	}
}

// InfluenceTier buckets a follower count into an influence tier.
func InfluenceTier(followers int64) string {
	for _, threshold := range InfluenceTierThresholds() {
		if followers >= threshold.MinFollowers {
			return threshold.Tier
		}
	}

	return TierMicro
}

// Content type classification values, in precedence order: a reblog of a
// reply classifies as Reblog, a reply that quotes as Reply.
const (
	ContentTypeReblog   = "Reblog"
	ContentTypeReply    = "Reply"
	ContentTypeQuote    = "Quote"
	ContentTypeOriginal = "Original"
)

// SentimentBucket is one row of the sentiment reference dimension.
type SentimentBucket struct {
	Label      string  `json:"label"`
	ScoreMin   float64 `json:"score_min"`
	ScoreMax   float64 `json:"score_max"`
	Confidence string  `json:"confidence"`
	ModelName  string  `json:"model_name"`
}

// Sentiment confidence labels and the model score ceiling.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"

	ScoreCeiling = 1.0
)

// ConfidenceRange is one confidence band of the sentiment score scale.
type ConfidenceRange struct {
	Confidence string
	ScoreMin   float64
	ScoreMax   float64
}

// ConfidenceRanges returns the score bands, highest first. Bands are
// half-open [min, max) except the top band, which is closed at the model
// ceiling. The Silver ETL builds both the sentiment dimension rows and
// the fact resolution predicate from these bands.
func ConfidenceRanges() []ConfidenceRange {
	return []ConfidenceRange{
		{Confidence: ConfidenceHigh, ScoreMin: 0.75, ScoreMax: ScoreCeiling},
		{Confidence: ConfidenceMedium, ScoreMin: 0.50, ScoreMax: 0.75},
		{Confidence: ConfidenceLow, ScoreMin: 0, ScoreMax: 0.50},
	}
}

// ConfidenceBucket maps a sentiment score to its confidence band.
func ConfidenceBucket(score float64) (confidence string, scoreMin, scoreMax float64) {
	ranges := ConfidenceRanges()
	for _, band := range ranges[:len(ranges)-1] {
		if score >= band.ScoreMin {
			return band.Confidence, band.ScoreMin, band.ScoreMax
		}
	}

	low := ranges[len(ranges)-1]

	return low.Confidence, low.ScoreMin, low.ScoreMax
}

// Contains reports whether score falls inside the bucket's range,
// treating the ceiling bucket as closed on the right.
func (b SentimentBucket) Contains(score float64) bool {
	if score < b.ScoreMin {
		return false
	}
	if b.ScoreMax >= ScoreCeiling {
		return score <= b.ScoreMax
	}
	return score < b.ScoreMax
}
