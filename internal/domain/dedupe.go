package domain

// DeduplicateBatch reduces a batch to at most one record per status id so
// the Bronze store only ever needs a plain uniqueness constraint.
//
// For colliding ids the winner is last-write-wins by edited_at; records
// without an edit time lose to records with one, and ties (including two
// unedited records) resolve to the later batch position. The first-seen
// order of ids is preserved.
func DeduplicateBatch(batch []EnrichedStatus) []EnrichedStatus {
	if len(batch) <= 1 {
		return batch
	}

	index := make(map[string]int, len(batch))
	out := make([]EnrichedStatus, 0, len(batch))

	for i := range batch {
		rec := batch[i]

		pos, seen := index[rec.ID]
		if !seen {
			index[rec.ID] = len(out)
			out = append(out, rec)
			continue
		}

		if supersedes(&rec, &out[pos]) {
			out[pos] = rec
		}
	}

	return out
}

// supersedes reports whether candidate should replace current for the same
// status id. candidate always appears later in the batch than current.
func supersedes(candidate, current *EnrichedStatus) bool {
	switch {
	case candidate.EditedAt == nil && current.EditedAt == nil:
		// Neither edited: batch order decides, later wins.
		return true
	case candidate.EditedAt == nil:
		return false
	case current.EditedAt == nil:
		return true
	default:
		return !candidate.EditedAt.Before(*current.EditedAt)
	}
}
