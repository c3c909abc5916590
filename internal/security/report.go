package security

import (
	"math"
	"time"
)

// Strategy values mirror goPasswordless.TokenStrategyType.
const (
	StrategySequence = iota
	StrategyOpaque
	StrategyUUID
)

const (
	opaqueBits = 256
	uuidBits   = 122
	hexBits    = 4

	// A single token should resist guessing at better than one in a million
	// across all of its attempts.
	minGuessBits = 20
)

type Report struct {
	ProductionMode   bool
	SigningAlgorithm string
	AccessTTL        time.Duration
	SessionLifetime  time.Duration
	SlidingSessions  bool

	TokenStrategy    string
	TokenEntropyBits int
	// GuessResistanceBits is the entropy left after every allowed attempt
	// on one token: log2(2^bits / MaxAttempts).
	GuessResistanceBits float64
	TokenTTL            time.Duration
	MaxAttempts         int

	UserCreationAllowed   bool
	MagicLinksEnabled     bool
	RequestThrottleActive bool
	RedeemThrottleActive  bool
	AuditEnabled          bool

	Warnings []string
}

type ReportInput struct {
	ProductionMode    bool
	SigningAlgorithm  string
	AccessTTL         time.Duration
	SessionLifetime   time.Duration
	SlidingSessions   bool
	Strategy          int
	StrategyName      string
	SequenceLength    int
	TokenTTL          time.Duration
	MaxAttempts       int
	AllowUserCreation bool
	MagicLinkBaseURL  string
	IdentifierLimit   bool
	IPLimit           bool
	MaxRequests       int
	MaxRedeems        int
	AuditEnabled      bool
}

func BuildReport(input ReportInput) Report {
	bits := EntropyBits(input.Strategy, input.SequenceLength)
	resistance := float64(bits)
	if input.MaxAttempts > 1 {
		resistance -= math.Log2(float64(input.MaxAttempts))
	}

	throttled := input.IdentifierLimit || input.IPLimit
	r := Report{
		ProductionMode:        input.ProductionMode,
		SigningAlgorithm:      input.SigningAlgorithm,
		AccessTTL:             input.AccessTTL,
		SessionLifetime:       input.SessionLifetime,
		SlidingSessions:       input.SlidingSessions,
		TokenStrategy:         input.StrategyName,
		TokenEntropyBits:      bits,
		GuessResistanceBits:   resistance,
		TokenTTL:              input.TokenTTL,
		MaxAttempts:           input.MaxAttempts,
		UserCreationAllowed:   input.AllowUserCreation,
		MagicLinksEnabled:     input.MagicLinkBaseURL != "",
		RequestThrottleActive: throttled && input.MaxRequests > 0,
		RedeemThrottleActive:  throttled && input.MaxRedeems > 0,
		AuditEnabled:          input.AuditEnabled,
	}

	if resistance < minGuessBits {
		r.Warnings = append(r.Warnings, "login token can be guessed within its attempt budget; lengthen the sequence or lower MaxAttempts")
	}
	if !r.RedeemThrottleActive {
		r.Warnings = append(r.Warnings, "redeem throttling is off")
	}
	if input.SigningAlgorithm == "hs256" {
		r.Warnings = append(r.Warnings, "hs256 shares the signing secret with every verifier")
	}
	if !input.AuditEnabled && input.ProductionMode {
		r.Warnings = append(r.Warnings, "audit is disabled in production mode")
	}

	return r
}

// EntropyBits returns the random bits in one token of the given strategy.
func EntropyBits(strategy, sequenceLength int) int {
	switch strategy {
	case StrategySequence:
		return sequenceLength * hexBits
	case StrategyOpaque:
		return opaqueBits
	case StrategyUUID:
		return uuidBits
	default:
		return 0
	}
}
