package stocklots

// LotSelection tells the recorder which lots may satisfy a deduction.
// Exactly one of the fields is used: an explicit lot, an ordered candidate
// list, or neither for auto-select (earliest entry first, chosen by the
// repository ordering, not by the allocation planner).
type LotSelection struct {
	LotID        *int64  `json:"lot_id,omitempty"`
	CandidateIDs []int64 `json:"candidate_ids,omitempty"`
}

// Explicit reports whether the caller pinned a single lot.
func (s LotSelection) Explicit() bool {
	return s.LotID != nil
}

// Ordered reports whether the caller supplied its own candidate ordering.
func (s LotSelection) Ordered() bool {
	return len(s.CandidateIDs) > 0
}
