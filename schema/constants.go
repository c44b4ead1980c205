package schema

// Custom string types for type safety.
type (
	// Tier is an ordinal proficiency level on the CEFR scale.
	Tier string

	// ConfidenceBand is the ordinal Low/Medium/High classification of speaking automaticity.
	ConfidenceBand string

	// SessionStatus is the persisted status of a live practice session.
	SessionStatus string

	// Modality identifies a practice source feeding the behavioral profile.
	Modality string

	// WeaknessTag labels a detected weakness in a session summary.
	WeaknessTag string

	// FailureCode identifies a failed promotion gate.
	FailureCode string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string
)

// All tiers, lowest first.
const (
	TierA1 Tier = "A1"
	TierA2 Tier = "A2" // default for users without a profile
	TierB1 Tier = "B1"
	TierB2 Tier = "B2"
	TierC1 Tier = "C1"
	TierC2 Tier = "C2"
)

// All confidence bands, lowest first.
const (
	BandLow    ConfidenceBand = "Low"
	BandMedium ConfidenceBand = "Medium"
	BandHigh   ConfidenceBand = "High"
)

// All session statuses.
const (
	StatusWaiting SessionStatus = "waiting"
	StatusLive    SessionStatus = "live"
	StatusEnded   SessionStatus = "ended"
)

// All practice modalities.
const (
	LiveModality        Modality = "live"        // peer-to-peer live rooms
	InteractiveModality Modality = "interactive" // AI conversation practice
	DrillModality       Modality = "drill"       // remedial drill attempts
)

// Weakness tags, in detection priority order.
const (
	WeaknessHesitation WeaknessTag = "HESITATION"
	WeaknessSpeed      WeaknessTag = "SPEED"
	WeaknessGrammar    WeaknessTag = "GRAMMAR"
	WeaknessConfidence WeaknessTag = "CONFIDENCE"
	WeaknessPassivity  WeaknessTag = "PASSIVITY"
	WeaknessSilence    WeaknessTag = "SILENCE"
	WeaknessNone       WeaknessTag = "MAINTENANCE"
)

// Promotion gate failure codes.
const (
	FailSpeakingTime     FailureCode = "INSUFFICIENT_SPEAKING_TIME"
	FailWordCount        FailureCode = "INSUFFICIENT_WORDS"
	FailSessionCount     FailureCode = "INSUFFICIENT_SESSIONS"
	FailActiveDays       FailureCode = "INSUFFICIENT_ACTIVE_DAYS"
	FailMidSentencePause FailureCode = "MID_SENTENCE_PAUSE_TOO_LONG"
	FailConfidence       FailureCode = "CONFIDENCE_BAND_TOO_LOW"
	FailLexicalCeiling   FailureCode = "LEXICAL_CEILING_PRESENT"
	FailPracticeTypes    FailureCode = "INSUFFICIENT_PRACTICE_DIVERSITY"
	FailFillerRate       FailureCode = "FILLER_RATE_TOO_HIGH"
	FailNonEnglish       FailureCode = "NON_ENGLISH_SPEECH"
)

// Gate names used in gate status lists and audit transitions.
const (
	GateSpeakingTime     = "speaking_time"
	GateWordCount        = "word_count"
	GateSessionCount     = "session_count"
	GateActiveDays       = "active_days"
	GateMidSentencePause = "mid_sentence_pause"
	GateConfidence       = "confidence"
	GateLexicalCeiling   = "lexical_ceiling"
	GatePracticeTypes    = "practice_types"
	GateFillerRate       = "filler_rate"
	GateNonEnglish       = "non_english"
	GatePromotion        = "promotion"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
)

// All persistence backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllTiers lists every tier in ascending order.
var AllTiers = []Tier{TierA1, TierA2, TierB1, TierB2, TierC1, TierC2}

// AllModalities lists every practice modality.
var AllModalities = []Modality{LiveModality, InteractiveModality, DrillModality}

// WeaknessPriority is the order in which weaknesses are kept when more than three apply.
var WeaknessPriority = []WeaknessTag{
	WeaknessHesitation,
	WeaknessSpeed,
	WeaknessGrammar,
	WeaknessConfidence,
	WeaknessPassivity,
}

// FillerWords is the closed set of filler words recognized by the analyzers.
var FillerWords = map[string]struct{}{
	"um":    {},
	"uh":    {},
	"hmm":   {},
	"ah":    {},
	"er":    {},
	"well":  {},
	"like":  {},
	"so":    {},
	"right": {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
	CSVOut:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
