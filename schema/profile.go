package schema

import "time"

// AuditSchemaVersion is bumped whenever the AuditRecord layout changes.
const AuditSchemaVersion = 2

// MaxAuditRecords bounds the audit trail kept on a profile, newest last.
const MaxAuditRecords = 20

// ProfileUpdate is the normalized payload any practice modality sends to the profile write path.
type ProfileUpdate struct {
	UserID                string             `json:"user_id"`
	RawTier               Tier               `json:"raw_tier"`
	RawScore              float64            `json:"raw_score"`
	ConfidenceScore       float64            `json:"confidence_score"`
	ConfidenceBand        ConfidenceBand     `json:"confidence_band"`
	ConfidenceExplanation string             `json:"confidence_explanation"`
	Metrics               ConfidenceMetrics  `json:"metrics"`
	WordCount             int                `json:"word_count"`
	LexicalBlockers       []LexicalDetection `json:"lexical_blockers,omitempty"`
	Modality              Modality           `json:"modality"`
	SessionRef            string             `json:"session_ref"`
}

// TierTransition records one step between the caller's preliminary tier and the final tier.
type TierTransition struct {
	Gate   string `json:"gate"`
	From   Tier   `json:"from"`
	To     Tier   `json:"to"`
	Reason string `json:"reason"`
}

// AuditRecord is the versioned record of every input and gate decision behind one update.
type AuditRecord struct {
	ID              string           `json:"id"`
	SchemaVersion   int              `json:"schema_version"`
	ModelVersion    string           `json:"model_version"`
	Timestamp       time.Time        `json:"timestamp"`
	Inputs          ProfileUpdate    `json:"inputs"`
	ResolvedUserID  string           `json:"resolved_user_id"`
	CurrentTier     Tier             `json:"current_tier"`
	PreliminaryTier Tier             `json:"preliminary_tier"`
	FinalTier       Tier             `json:"final_tier"`
	Eligible        bool             `json:"eligible"`
	Gates           []GateStatus     `json:"gates"`
	Failures        []FailureCode    `json:"failures"`
	Transitions     []TierTransition `json:"transitions"`
}

// FluencyProfile is the canonical per-user profile. It is upserted, never deleted.
type FluencyProfile struct {
	UserID                string             `json:"user_id"`
	Tier                  Tier               `json:"tier"`
	LastFluencyScore      float64            `json:"last_fluency_score"`
	ConfidenceScore       float64            `json:"confidence_score"`
	ConfidenceBand        ConfidenceBand     `json:"confidence_band"`
	ConfidenceExplanation string             `json:"confidence_explanation"`
	Metrics               ConfidenceMetrics  `json:"metrics"`
	WordCount             int                `json:"word_count"`
	LexicalBlockers       []LexicalDetection `json:"lexical_blockers"`
	SourceModality        Modality           `json:"source_modality"`
	SourceRef             string             `json:"source_ref"`
	ModelVersion          string             `json:"model_version"`
	AuditTrail            []AuditRecord      `json:"audit_trail"`
	GateFailures          []FailureCode      `json:"gate_failures"`
	Aggregated            *AggregatedMetrics `json:"aggregated,omitempty"`
	AggregatedAt          *time.Time         `json:"aggregated_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// UpdateOutcome reports what the profile write path did with one payload.
type UpdateOutcome struct {
	Applied bool             `json:"applied"`
	Reason  string           `json:"reason,omitempty"`
	Profile *FluencyProfile  `json:"profile,omitempty"`
	Result  *PromotionResult `json:"result,omitempty"`
}

// StoreStatus holds status information about the persistent store.
type StoreStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	SchemaVersion  uint             `json:"schema_version"`
	Dirty          bool             `json:"dirty"`
	TableSizes     map[string]int64 `json:"table_sizes"`
	ActiveSessions int64            `json:"active_sessions"`
	Profiles       int64            `json:"profiles"`
}
