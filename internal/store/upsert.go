package store

import (
	"context"

	"parking-report-importer/internal/models"
	apperrors "parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"
)

// DefaultBatchSize is the commit boundary of the upsert engine. Committing
// every N records bounds both transaction size and the amount of work
// replayed after a record-level failure.
const DefaultBatchSize = 50

const upsertTransactionSQL = `
INSERT INTO parking_transaction (
	id, provider_id, service_id, transaction_date, service_label,
	billing_group, price, quantity, amount
)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (provider_id, transaction_date, service_label, billing_group)
DO UPDATE SET
	price    = EXCLUDED.price,
	quantity = EXCLUDED.quantity,
	amount   = EXCLUDED.amount
RETURNING (xmax = 0) AS inserted`

// ImportConfig holds configuration for the upsert engine
type ImportConfig struct {
	BatchSize int
}

// DefaultImportConfig returns the reference batch behavior
func DefaultImportConfig() *ImportConfig {
	return &ImportConfig{BatchSize: DefaultBatchSize}
}

// Validate checks the import configuration
func (c *ImportConfig) Validate() error {
	if c.BatchSize < 1 {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "batch_size", c.BatchSize, nil)
	}
	return nil
}

// RecordFailure captures one record that could not be persisted, for
// external reporting.
type RecordFailure struct {
	Record models.ParkingRecord `json:"record"`
	Err    error                `json:"-"`
	Reason string               `json:"reason"`
}

// ImportResult distinguishes inserted from updated outcomes per record and
// counts errored records separately.
type ImportResult struct {
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Errored  int             `json:"errored"`
	Failures []RecordFailure `json:"failures,omitempty"`
}

// Total returns the number of records the engine attempted.
func (r *ImportResult) Total() int {
	return r.Inserted + r.Updated + r.Errored
}

// Merge folds another result into this one.
func (r *ImportResult) Merge(other *ImportResult) {
	if other == nil {
		return
	}
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Errored += other.Errored
	r.Failures = append(r.Failures, other.Failures...)
}

// Engine merges normalized records into the parking_transaction table with
// insert-or-update semantics on the conflict key (provider, date, service
// label, billing group). An update replaces the numeric fields and leaves
// identity and creation timestamp untouched.
//
// Failure isolation: a record that fails poisons only its current batch
// transaction; the batch is rolled back, the failed record is counted, and
// the previously pending records of that batch are replayed in fresh
// transactions before the walk continues.
type Engine struct {
	begin  func(ctx context.Context) (RecordTx, error)
	config *ImportConfig
	logger logger.Logger
}

// NewEngine creates an upsert engine on top of a transaction beginner
// (normally the pgx pool).
func NewEngine(db TxBeginner, config *ImportConfig) (*Engine, error) {
	if config == nil {
		config = DefaultImportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		begin: func(ctx context.Context) (RecordTx, error) {
			tx, err := db.Begin(ctx)
			if err != nil {
				return nil, err
			}
			return tx, nil
		},
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("upsert_engine"),
	}, nil
}

type pendingRecord struct {
	record   models.ParkingRecord
	inserted bool
}

// ImportTransactions merges the record set into storage. Records that fail
// the import-time filter (non-prepaid, nil date, non-positive quantity) or
// that lack resolved identities are counted as errored, never silently
// dropped. The returned error is non-nil only for run-level failures such
// as a lost connection; record-level failures are reported in the result.
func (e *Engine) ImportTransactions(ctx context.Context, records []models.ParkingRecord) (*ImportResult, error) {
	result := &ImportResult{}
	total := len(records)

	var tx RecordTx
	var pending []pendingRecord

	commitPending := func() error {
		if tx == nil {
			return nil
		}
		if err := tx.Commit(ctx); err != nil {
			// The whole batch is lost; count every pending record.
			for _, p := range pending {
				result.Errored++
				result.Failures = append(result.Failures, RecordFailure{
					Record: p.record,
					Err:    err,
					Reason: "batch commit failed",
				})
			}
			tx = nil
			pending = nil
			return apperrors.StorageError(apperrors.CodeTransactionFailed, "batch commit", err)
		}
		for _, p := range pending {
			if p.inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		tx = nil
		pending = nil
		return nil
	}

	for i, rec := range records {
		if !rec.Persistable() || !rec.Resolved() {
			result.Errored++
			result.Failures = append(result.Failures, RecordFailure{
				Record: rec,
				Reason: "record failed import-time validation",
			})
			continue
		}

		if tx == nil {
			var err error
			tx, err = e.begin(ctx)
			if err != nil {
				return result, apperrors.StorageError(apperrors.CodeConnectionFailed, "transaction begin", err)
			}
		}

		inserted, err := e.upsertOne(ctx, tx, rec)
		if err != nil {
			e.logger.WithError(err).WithFields(logger.Fields{
				"record":   i + 1,
				"total":    total,
				"provider": rec.ProviderName,
				"service":  rec.ServiceLabel,
			}).Error("Failed to upsert record")

			result.Errored++
			result.Failures = append(result.Failures, RecordFailure{
				Record: rec,
				Err:    err,
				Reason: err.Error(),
			})

			// The failed statement poisoned the batch transaction. Roll it
			// back and replay the records that had already succeeded.
			_ = tx.Rollback(ctx)
			tx = nil
			replay := pending
			pending = nil
			e.replay(ctx, replay, result)
			continue
		}

		pending = append(pending, pendingRecord{record: rec, inserted: inserted})

		if len(pending) >= e.config.BatchSize {
			if err := commitPending(); err != nil {
				e.logger.WithError(err).Warn("Batch commit failed, continuing with next batch")
			} else {
				e.logger.Infof("Processed %d/%d records...", i+1, total)
			}
		}
	}

	if err := commitPending(); err != nil {
		e.logger.WithError(err).Warn("Final commit failed")
	}

	e.logger.WithFields(logger.Fields{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"errored":  result.Errored,
	}).Info("Import completed")

	return result, nil
}

// replay re-applies records whose batch was rolled back, one transaction
// per record so a second failure cannot poison the others.
func (e *Engine) replay(ctx context.Context, records []pendingRecord, result *ImportResult) {
	for _, p := range records {
		tx, err := e.begin(ctx)
		if err != nil {
			result.Errored++
			result.Failures = append(result.Failures, RecordFailure{
				Record: p.record,
				Err:    err,
				Reason: "replay transaction begin failed",
			})
			continue
		}

		inserted, err := e.upsertOne(ctx, tx, p.record)
		if err != nil {
			_ = tx.Rollback(ctx)
			result.Errored++
			result.Failures = append(result.Failures, RecordFailure{
				Record: p.record,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}

		if err := tx.Commit(ctx); err != nil {
			result.Errored++
			result.Failures = append(result.Failures, RecordFailure{
				Record: p.record,
				Err:    err,
				Reason: "replay commit failed",
			})
			continue
		}

		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
}

func (e *Engine) upsertOne(ctx context.Context, tx RecordTx, rec models.ParkingRecord) (bool, error) {
	var inserted bool
	err := tx.QueryRow(ctx, upsertTransactionSQL,
		rec.ProviderID,
		rec.ServiceID,
		rec.TransactionDate,
		rec.ServiceLabel,
		rec.BillingGroup.String(),
		rec.Price,
		rec.Quantity,
		rec.Amount,
	).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}
