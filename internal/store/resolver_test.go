package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRow satisfies pgx.Row with a scripted Scan.
type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

// fakeDB routes QueryRow and Exec by SQL substring. Unmatched lookups
// behave like an empty table.
type fakeDB struct {
	rows    map[string]func(dest ...any) error
	execErr map[string]error
	execs   []string
	queries []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:    make(map[string]func(dest ...any) error),
		execErr: make(map[string]error),
	}
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	for key, scan := range f.rows {
		if strings.Contains(sql, key) {
			return fakeRow{scan: scan}
		}
	}
	return fakeRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	for key, err := range f.execErr {
		if strings.Contains(sql, key) {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) execCount(substr string) int {
	count := 0
	for _, sql := range f.execs {
		if strings.Contains(sql, substr) {
			count++
		}
	}
	return count
}

func scanUUID(id uuid.UUID) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*uuid.UUID)) = id
		return nil
	}
}

func TestResolveProviderCreatesOnce(t *testing.T) {
	db := newFakeDB()
	r := NewResolver(db)
	ctx := context.Background()

	first, err := r.ResolveProvider(ctx, "Grad Beograd")
	if err != nil {
		t.Fatalf("ResolveProvider() error = %v", err)
	}
	if first == uuid.Nil {
		t.Fatal("ResolveProvider() returned the nil identity")
	}
	if db.execCount("INSERT INTO provider") != 1 {
		t.Errorf("provider inserts = %d, want 1", db.execCount("INSERT INTO provider"))
	}

	second, err := r.ResolveProvider(ctx, "Grad Beograd")
	if err != nil {
		t.Fatalf("second ResolveProvider() error = %v", err)
	}
	if second != first {
		t.Errorf("memoized identity %s != first %s", second, first)
	}
	if db.execCount("INSERT INTO provider") != 1 {
		t.Error("memoized resolution must not create a second provider")
	}
}

func TestResolveProviderFindsExisting(t *testing.T) {
	existing := uuid.New()
	db := newFakeDB()
	db.rows["FROM provider"] = scanUUID(existing)

	r := NewResolver(db)

	got, err := r.ResolveProvider(context.Background(), "Grad Beograd")
	if err != nil {
		t.Fatalf("ResolveProvider() error = %v", err)
	}
	if got != existing {
		t.Errorf("ResolveProvider() = %s, want existing %s", got, existing)
	}
	if len(db.execs) != 0 {
		t.Errorf("no inserts expected for an existing provider, got %v", db.execs)
	}
}

func TestResolveProviderInsertFailure(t *testing.T) {
	db := newFakeDB()
	db.execErr["INSERT INTO provider"] = fmt.Errorf("connection reset")

	r := NewResolver(db)

	if _, err := r.ResolveProvider(context.Background(), "Grad Beograd"); err == nil {
		t.Fatal("ResolveProvider() should surface the insert failure")
	}

	// The failed name must not be memoized; a retry hits the database again.
	if _, err := r.ResolveProvider(context.Background(), "Grad Beograd"); err == nil {
		t.Error("retry should fail the same way, not return a cached identity")
	}
}

func TestResolveServiceCreatesWithClassification(t *testing.T) {
	db := newFakeDB()
	r := NewResolver(db)

	id, err := r.ResolveService(context.Background(), "9111", "Parking zona 1 - 9111")
	if err != nil {
		t.Fatalf("ResolveService() error = %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("ResolveService() returned the nil identity")
	}
	if db.execCount("INSERT INTO service") != 1 {
		t.Errorf("service inserts = %d, want 1", db.execCount("INSERT INTO service"))
	}

	again, err := r.ResolveService(context.Background(), "9111", "different label, same code")
	if err != nil {
		t.Fatalf("second ResolveService() error = %v", err)
	}
	if again != id {
		t.Error("same code must resolve to the same service")
	}
	if db.execCount("INSERT INTO service") != 1 {
		t.Error("memoized code must not create a second service")
	}
}

func TestEnsureContractLink(t *testing.T) {
	db := newFakeDB()
	r := NewResolver(db)
	ctx := context.Background()

	providerID := uuid.New()
	serviceID := uuid.New()

	if err := r.EnsureContractLink(ctx, providerID, "Grad Beograd", serviceID); err != nil {
		t.Fatalf("EnsureContractLink() error = %v", err)
	}

	if db.execCount("INSERT INTO contract ") != 1 {
		t.Errorf("contract inserts = %d, want 1", db.execCount("INSERT INTO contract "))
	}
	if db.execCount("INSERT INTO contract_service") != 1 {
		t.Errorf("link inserts = %d, want 1", db.execCount("INSERT INTO contract_service"))
	}

	// A second service joins the same contract.
	otherService := uuid.New()
	if err := r.EnsureContractLink(ctx, providerID, "Grad Beograd", otherService); err != nil {
		t.Fatalf("second EnsureContractLink() error = %v", err)
	}
	if db.execCount("INSERT INTO contract ") != 1 {
		t.Error("the provider's contract must be created only once")
	}
	if db.execCount("INSERT INTO contract_service") != 2 {
		t.Errorf("link inserts = %d, want 2", db.execCount("INSERT INTO contract_service"))
	}

	// Repeating a pair is a no-op.
	queriesBefore := len(db.queries)
	if err := r.EnsureContractLink(ctx, providerID, "Grad Beograd", serviceID); err != nil {
		t.Fatalf("repeated EnsureContractLink() error = %v", err)
	}
	if len(db.queries) != queriesBefore {
		t.Error("memoized link must not touch the database")
	}
}

func TestContractNumber(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{name: "two words", provider: "Grad Beograd", want: "PARK-GRAD-BEOGRAD-2024"},
		{name: "single word", provider: "Subotica", want: "PARK-SUBOTICA-2024"},
		{name: "extra whitespace", provider: "  Novi   Sad ", want: "PARK-NOVI-SAD-2024"},
		{name: "empty name", provider: "", want: "PARK-UNKNOWN-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContractNumber(tt.provider, at); got != tt.want {
				t.Errorf("ContractNumber(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestAuditSinkSwallowsErrors(t *testing.T) {
	db := newFakeDB()
	db.execErr["INSERT INTO audit_log"] = fmt.Errorf("table missing")

	sink := NewAuditSink(db)

	// Must not panic or propagate.
	sink.Record(context.Background(), AuditEntityImport, "report.xls", AuditActionNote, "subject", "description")

	if db.execCount("INSERT INTO audit_log") != 1 {
		t.Errorf("audit inserts = %d, want 1", db.execCount("INSERT INTO audit_log"))
	}
}
