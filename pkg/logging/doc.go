// Package logging provides the subsystem-tagged logger used across scoreboard.
//
// It is a thin layer over log/slog: every entry carries a "subsystem"
// attribute and, for errors, an "error" attribute.
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("OAuth", "Authorization URL built for state %s", logging.Truncate(state))
//	logging.Warn("RateLimit", "Hourly quota reached, waiting %s", wait)
//	logging.Error("Intra", err, "Request to %s failed", endpoint)
//
// # Audit Logging
//
// Credential lifecycle events go through Audit so they can be filtered by
// log aggregation:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "token_revoke",
//	    Outcome: "success",
//	})
//
// Token values are never passed to the logger. Use Truncate for opaque
// identifiers that help correlate entries.
package logging
