package goPasswordless

import "github.com/MrEthical07/goPasswordless/internal/security"

// SecurityReport summarizes the engine's configured security posture.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return security.BuildReport(security.ReportInput{
		ProductionMode:    cfg.Security.ProductionMode,
		SigningAlgorithm:  cfg.JWT.SigningMethod,
		AccessTTL:         cfg.JWT.AccessTTL,
		SessionLifetime:   cfg.Session.AbsoluteLifetime,
		SlidingSessions:   cfg.Session.SlidingExpiration,
		Strategy:          int(cfg.LoginToken.Strategy),
		StrategyName:      cfg.LoginToken.Strategy.String(),
		SequenceLength:    cfg.LoginToken.SequenceLength,
		TokenTTL:          cfg.LoginToken.TokenTTL,
		MaxAttempts:       cfg.LoginToken.MaxAttempts,
		AllowUserCreation: cfg.LoginToken.AllowUserCreation,
		MagicLinkBaseURL:  cfg.LoginToken.MagicLinkBaseURL,
		IdentifierLimit:   cfg.LoginToken.EnableIdentifierThrottle,
		IPLimit:           cfg.LoginToken.EnableIPThrottle,
		MaxRequests:       cfg.LoginToken.MaxRequestsPerWindow,
		MaxRedeems:        cfg.LoginToken.MaxRedeemsPerWindow,
		AuditEnabled:      cfg.Audit.Enabled,
	})
}
