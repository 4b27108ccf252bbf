package accounts

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lox/bank-statement-importer/internal/types"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	tempDir, err := os.MkdirTemp("", "bank-statement-importer-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	logger := log.New(io.Discard)
	logger.SetLevel(log.DebugLevel)

	store, err := New(tempDir, logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tempDir)
	}
	return store, cleanup
}

func chaseCard() types.DetectedAccount {
	return types.DetectedAccount{
		InstitutionName: types.StringPtr("Chase"),
		AccountType:     types.StringPtr("creditCard"),
		AccountNumber:   types.StringPtr("1234"),
		HolderName:      types.StringPtr("Tom Tracker"),
	}
}

func TestUpsertAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	id, err := store.Upsert(ctx, "user-1", chaseCard())
	if err != nil {
		t.Fatalf("failed to upsert account: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty account ID")
	}

	acct, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if acct == nil {
		t.Fatal("expected to find the account, got nil")
	}
	if acct.InstitutionName == nil || *acct.InstitutionName != "Chase" {
		t.Errorf("expected institution Chase, got %v", acct.InstitutionName)
	}
	if acct.HolderName == nil || *acct.HolderName != "Tom Tracker" {
		t.Errorf("expected holder Tom Tracker, got %v", acct.HolderName)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	id1, err := store.Upsert(ctx, "user-1", chaseCard())
	if err != nil {
		t.Fatalf("failed to upsert account: %v", err)
	}
	id2, err := store.Upsert(ctx, "user-1", chaseCard())
	if err != nil {
		t.Fatalf("failed to upsert account again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected identical IDs for the same account, got %q and %q", id1, id2)
	}

	all, err := store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to list accounts: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 account, got %d", len(all))
	}
}

func TestUpsertFillsMissingFields(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	partial := chaseCard()
	partial.HolderName = nil
	id, err := store.Upsert(ctx, "user-1", partial)
	if err != nil {
		t.Fatalf("failed to upsert partial account: %v", err)
	}

	full := chaseCard()
	if _, err := store.Upsert(ctx, "user-1", full); err != nil {
		t.Fatalf("failed to upsert full account: %v", err)
	}

	acct, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if acct.HolderName == nil || *acct.HolderName != "Tom Tracker" {
		t.Errorf("expected holder name filled in, got %v", acct.HolderName)
	}
}

func TestMatchExistingAccountByNumber(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	id, err := store.Upsert(ctx, "user-1", chaseCard())
	if err != nil {
		t.Fatalf("failed to upsert account: %v", err)
	}

	detected := types.DetectedAccount{
		InstitutionName: types.StringPtr("chase"),
		AccountNumber:   types.StringPtr("xxxx-xxxx-xxxx-1234"),
	}
	matched, ok, err := store.MatchExistingAccount(ctx, "user-1", detected)
	if err != nil {
		t.Fatalf("failed to match account: %v", err)
	}
	if !ok {
		t.Fatal("expected a match by account number")
	}
	if matched != id {
		t.Errorf("expected match %q, got %q", id, matched)
	}
}

func TestMatchExistingAccountByInstitution(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	id, err := store.Upsert(ctx, "user-1", chaseCard())
	if err != nil {
		t.Fatalf("failed to upsert account: %v", err)
	}

	detected := types.DetectedAccount{
		InstitutionName: types.StringPtr("CHASE"),
		AccountType:     types.StringPtr("creditcard"),
		HolderName:      types.StringPtr("TOM TRACKER"),
	}
	matched, ok, err := store.MatchExistingAccount(ctx, "user-1", detected)
	if err != nil {
		t.Fatalf("failed to match account: %v", err)
	}
	if !ok {
		t.Fatal("expected a match by institution and holder")
	}
	if matched != id {
		t.Errorf("expected match %q, got %q", id, matched)
	}
}

func TestMatchExistingAccountScopedToUser(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := store.Upsert(ctx, "user-1", chaseCard()); err != nil {
		t.Fatalf("failed to upsert account: %v", err)
	}

	_, ok, err := store.MatchExistingAccount(ctx, "user-2", chaseCard())
	if err != nil {
		t.Fatalf("failed to match account: %v", err)
	}
	if ok {
		t.Error("expected no match for a different user")
	}
}

func TestMatchExistingAccountNoMatch(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := store.Upsert(ctx, "user-1", chaseCard()); err != nil {
		t.Fatalf("failed to upsert account: %v", err)
	}

	detected := types.DetectedAccount{
		InstitutionName: types.StringPtr("Fidelity"),
		AccountNumber:   types.StringPtr("9999"),
	}
	_, ok, err := store.MatchExistingAccount(ctx, "user-1", detected)
	if err != nil {
		t.Fatalf("failed to match account: %v", err)
	}
	if ok {
		t.Error("expected no match for a different institution")
	}
}
