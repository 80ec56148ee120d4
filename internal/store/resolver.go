package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"parking-report-importer/internal/models"
	apperrors "parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultRevenuePercentage is the revenue share assigned to contracts the
// importer creates on demand. Operators adjust it afterwards.
const DefaultRevenuePercentage = "10.00"

// Resolver maps natural keys onto durable entity identities, creating
// missing providers, services, contracts, and contract-service links on
// demand. Results are memoized for the lifetime of one run so a natural key
// touches the database at most once, however many records reference it.
//
// The run is sequential, but the memo is guarded anyway so independent
// files could be resolved concurrently without read-then-write races; the
// database unique constraints remain the final arbiter.
type Resolver struct {
	db     Querier
	logger logger.Logger

	mu        sync.Mutex
	providers map[string]uuid.UUID
	services  map[string]uuid.UUID
	contracts map[uuid.UUID]uuid.UUID
	links     map[linkKey]struct{}
}

type linkKey struct {
	contractID uuid.UUID
	serviceID  uuid.UUID
}

// NewResolver creates a Resolver with an empty per-run memo.
func NewResolver(db Querier) *Resolver {
	return &Resolver{
		db:        db,
		logger:    logger.GetGlobalLogger().WithComponent("resolver"),
		providers: make(map[string]uuid.UUID),
		services:  make(map[string]uuid.UUID),
		contracts: make(map[uuid.UUID]uuid.UUID),
		links:     make(map[linkKey]struct{}),
	}
}

// ResolveProvider finds a provider by exact name or creates it as active.
// Repeated calls with the same name within one run return the memoized
// identity and create the backing entity exactly once.
func (r *Resolver) ResolveProvider(ctx context.Context, name string) (uuid.UUID, error) {
	r.mu.Lock()
	if id, ok := r.providers[name]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM provider WHERE name = $1`, name).Scan(&id)
	switch {
	case err == nil:
		r.logger.WithFields(logger.Fields{"provider": name, "id": id}).Debug("Found existing provider")
	case err == pgx.ErrNoRows:
		id = uuid.New()
		_, err = r.db.Exec(ctx,
			`INSERT INTO provider (id, name, is_active) VALUES ($1, $2, true)`, id, name)
		if err != nil {
			return uuid.Nil, apperrors.StorageError(apperrors.CodeResolveFailed, "provider creation", err).
				WithContext("provider", name)
		}
		r.logger.WithFields(logger.Fields{"provider": name, "id": id}).Info("Created provider")
	default:
		return uuid.Nil, apperrors.StorageError(apperrors.CodeResolveFailed, "provider lookup", err).
			WithContext("provider", name)
	}

	r.mu.Lock()
	r.providers[name] = id
	r.mu.Unlock()
	return id, nil
}

// ResolveService finds a service by its short code or creates it with the
// fixed parking category and prepaid billing classification. The label of
// the first record that referenced the code becomes the service name.
func (r *Resolver) ResolveService(ctx context.Context, code, label string) (uuid.UUID, error) {
	r.mu.Lock()
	if id, ok := r.services[code]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM service WHERE code = $1`, code).Scan(&id)
	switch {
	case err == nil:
		r.logger.WithFields(logger.Fields{"code": code, "id": id}).Debug("Found existing service")
	case err == pgx.ErrNoRows:
		id = uuid.New()
		_, err = r.db.Exec(ctx,
			`INSERT INTO service (id, code, name, service_type, billing_type, is_active)
			 VALUES ($1, $2, $3, $4, $5, true)`,
			id, code, label, models.ServiceTypeParking, models.BillingTypePrepaid)
		if err != nil {
			return uuid.Nil, apperrors.StorageError(apperrors.CodeResolveFailed, "service creation", err).
				WithContext("code", code)
		}
		r.logger.WithFields(logger.Fields{"code": code, "id": id}).Info("Created service")
	default:
		return uuid.Nil, apperrors.StorageError(apperrors.CodeResolveFailed, "service lookup", err).
			WithContext("code", code)
	}

	r.mu.Lock()
	r.services[code] = id
	r.mu.Unlock()
	return id, nil
}

// EnsureContractLink guarantees a single active contract exists for the
// provider and that the service is linked to it. When the provider has no
// contract yet, one is created with a derived reference number and the
// default revenue share before the per-service link. Calling twice with
// the same pair reuses the existing link rather than duplicating it.
func (r *Resolver) EnsureContractLink(ctx context.Context, providerID uuid.UUID, providerName string, serviceID uuid.UUID) error {
	contractID, err := r.resolveContract(ctx, providerID, providerName)
	if err != nil {
		return err
	}

	key := linkKey{contractID: contractID, serviceID: serviceID}
	r.mu.Lock()
	if _, ok := r.links[key]; ok {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	var linkID uuid.UUID
	err = r.db.QueryRow(ctx,
		`SELECT id FROM contract_service WHERE contract_id = $1 AND service_id = $2`,
		contractID, serviceID).Scan(&linkID)
	switch {
	case err == nil:
		// Existing link, reuse.
	case err == pgx.ErrNoRows:
		_, err = r.db.Exec(ctx,
			`INSERT INTO contract_service (id, contract_id, service_id) VALUES ($1, $2, $3)`,
			uuid.New(), contractID, serviceID)
		if err != nil && !IsUniqueViolation(err) {
			return apperrors.StorageError(apperrors.CodeResolveFailed, "contract link creation", err).
				WithContext("contract_id", contractID).
				WithContext("service_id", serviceID)
		}
		r.logger.WithFields(logger.Fields{
			"contract_id": contractID,
			"service_id":  serviceID,
		}).Info("Linked service to contract")
	default:
		return apperrors.StorageError(apperrors.CodeResolveFailed, "contract link lookup", err)
	}

	r.mu.Lock()
	r.links[key] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *Resolver) resolveContract(ctx context.Context, providerID uuid.UUID, providerName string) (uuid.UUID, error) {
	r.mu.Lock()
	if id, ok := r.contracts[providerID]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM contract WHERE provider_id = $1 AND status = 'ACTIVE'`,
		providerID).Scan(&id)
	switch {
	case err == nil:
		r.logger.WithFields(logger.Fields{"provider_id": providerID, "contract_id": id}).Debug("Found existing contract")
	case err == pgx.ErrNoRows:
		id = uuid.New()
		_, err = r.db.Exec(ctx,
			`INSERT INTO contract (id, provider_id, contract_number, status, revenue_percentage, start_date)
			 VALUES ($1, $2, $3, 'ACTIVE', $4, $5)`,
			id, providerID, ContractNumber(providerName, time.Now()), DefaultRevenuePercentage, time.Now())
		if err != nil {
			return uuid.Nil, apperrors.StorageError(apperrors.CodeResolveFailed, "contract creation", err).
				WithContext("provider_id", providerID)
		}
		r.logger.WithFields(logger.Fields{
			"provider_id": providerID,
			"contract_id": id,
		}).Info("Created contract")
	default:
		return uuid.Nil, apperrors.StorageError(apperrors.CodeResolveFailed, "contract lookup", err).
			WithContext("provider_id", providerID)
	}

	r.mu.Lock()
	r.contracts[providerID] = id
	r.mu.Unlock()
	return id, nil
}

// ContractNumber derives a human-readable contract reference from the
// provider name and the year the contract was first seen.
func ContractNumber(providerName string, at time.Time) string {
	slug := strings.ToUpper(strings.Join(strings.Fields(providerName), "-"))
	if slug == "" {
		slug = "UNKNOWN"
	}
	return fmt.Sprintf("PARK-%s-%d", slug, at.Year())
}
