package domain

type Recommendation string

const (
	RecommendationStrong    Recommendation = "strong_match"
	RecommendationPotential Recommendation = "potential_match"
	RecommendationWeak      Recommendation = "weak_match"
	RecommendationNone      Recommendation = "no_match"
)

// MatchResult is a derived projection, never a source of truth. It is
// recomputed on demand or served from a cache keyed by job version.
type MatchResult struct {
	CandidateID    string         `json:"candidate_id"`
	JobID          string         `json:"job_id"`
	Score          float64        `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	Strengths      []string       `json:"strengths"`
	Gaps           []string       `json:"gaps"`
	Reason         string         `json:"reason,omitempty"`
}

// VectorEntry is one row of a similarity-ranking corpus.
type VectorEntry struct {
	ID     string
	Vector []float32
}

type RankedMatch struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}
