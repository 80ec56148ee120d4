package store

import (
	"context"

	"parking-report-importer/pkg/logger"

	"github.com/google/uuid"
)

// Audit entity types and actions recorded by the importer.
const (
	AuditEntityProvider = "PROVIDER"
	AuditEntityImport   = "IMPORT"

	AuditActionActivation = "ACTIVATION"
	AuditActionNote       = "NOTE"

	AuditStatusFinished = "FINISHED"
)

// AuditSink writes free-text structured entries to the audit log table.
// Audit writes must never fail a run: errors are logged and swallowed.
type AuditSink struct {
	db     Querier
	logger logger.Logger
}

// NewAuditSink creates an audit sink backed by the database.
func NewAuditSink(db Querier) *AuditSink {
	return &AuditSink{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("audit"),
	}
}

// Record writes one audit entry.
func (a *AuditSink) Record(ctx context.Context, entityType, entityID, action, subject, description string) {
	_, err := a.db.Exec(ctx,
		`INSERT INTO audit_log (id, entity_type, entity_id, action, subject, description, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), entityType, entityID, action, subject, description, AuditStatusFinished)
	if err != nil {
		a.logger.WithError(err).WithFields(logger.Fields{
			"entity_type": entityType,
			"entity_id":   entityID,
			"subject":     subject,
		}).Error("Failed to write audit entry")
		return
	}

	a.logger.WithField("subject", subject).Debug("Audit entry created")
}
