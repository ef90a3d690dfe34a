package service

// AuthMetrics records authentication outcomes.
type AuthMetrics interface {
	// RecordAttempt counts a login attempt. outcome is "success" or a reject reason.
	RecordAttempt(strategy, outcome string)

	// RecordRegistration counts a registration attempt.
	RecordRegistration(outcome string)

	// RecordSessionResolve counts RequireUser lookups. result is "user", "anonymous" or "error".
	RecordSessionResolve(result string)
}

// AuditMetrics records account events seen by the audit worker.
type AuditMetrics interface {
	// RecordAccountEvent counts a consumed event. result is "recorded" or "rejected".
	RecordAccountEvent(eventType, result string)
}
