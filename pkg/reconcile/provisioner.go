package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

// LedgerAPI is the slice of the ledger client the engine depends on.
// *qbo.Client satisfies it; tests substitute fakes.
type LedgerAPI interface {
	FindEntityByName(ctx context.Context, kind qbo.EntityKind, name string) (*qbo.EntityRef, error)
	CreateEntity(ctx context.Context, kind qbo.EntityKind, name string, attrs map[string]any) (*qbo.EntityRef, error)
	FindDocumentByNote(ctx context.Context, doc qbo.DocType, note string) (string, error)
	BatchCreate(ctx context.Context, items []qbo.BatchItem) (*qbo.BatchResponse, error)
	ListDocuments(ctx context.Context, doc qbo.DocType) ([]qbo.DocumentSummary, error)
}

// maxCreateAttempts bounds the duplicate-name retry loop.
const maxCreateAttempts = 3

// Provisioner ensures ledger entities exist, creating them lazily on first
// reference. Its cache is scoped to a single sync run and must never be
// shared across concurrent runs: ledger-side creation can race across
// companies, and the duplicate-fault retry is the only safe resolution.
type Provisioner struct {
	ledger LedgerAPI
	cache  *gocache.Cache
	log    *slog.Logger
}

// NewProvisioner creates a run-scoped provisioner.
func NewProvisioner(ledger LedgerAPI, log *slog.Logger) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{
		ledger: ledger,
		cache:  gocache.New(gocache.NoExpiration, 0),
		log:    log,
	}
}

// EnsureEntity looks an entity up by its uniqueness field and creates it if
// absent. A duplicate-name fault from a concurrent creation is resolved by
// re-fetching; after maxCreateAttempts suffixed retries the base name is
// fetched once more, and a placeholder (empty ID) is returned as the last
// resort so a single entity never fails the whole run.
func (p *Provisioner) EnsureEntity(ctx context.Context, kind qbo.EntityKind, name string, attrs map[string]any) (*qbo.EntityRef, error) {
	key := kind.Name + "/" + name
	if cached, ok := p.cache.Get(key); ok {
		return cached.(*qbo.EntityRef), nil
	}

	existing, err := p.ledger.FindEntityByName(ctx, kind, name)
	if err != nil {
		return nil, fmt.Errorf("lookup %s %q: %w", kind.Name, name, err)
	}
	if existing != nil {
		p.cache.Set(key, existing, gocache.NoExpiration)
		return existing, nil
	}

	base := name
	candidate := name
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		created, err := p.ledger.CreateEntity(ctx, kind, candidate, attrs)
		if err == nil {
			p.cache.Set(key, created, gocache.NoExpiration)
			return created, nil
		}

		var dup *qbo.DuplicateNameError
		if !errors.As(err, &dup) {
			return nil, fmt.Errorf("create %s %q: %w", kind.Name, candidate, err)
		}

		// Lost a creation race: the entity now exists, fetch it.
		existing, ferr := p.ledger.FindEntityByName(ctx, kind, candidate)
		if ferr == nil && existing != nil {
			p.cache.Set(key, existing, gocache.NoExpiration)
			return existing, nil
		}

		candidate = fmt.Sprintf("%s-%d", base, attempt+1)
		p.log.Debug("duplicate name, retrying with suffix",
			"kind", kind.Name, "name", base, "candidate", candidate)
	}

	if existing, err := p.ledger.FindEntityByName(ctx, kind, base); err == nil && existing != nil {
		p.cache.Set(key, existing, gocache.NoExpiration)
		return existing, nil
	}

	p.log.Warn("could not provision entity, using placeholder", "kind", kind.Name, "name", base)
	placeholder := &qbo.EntityRef{Name: base}
	p.cache.Set(key, placeholder, gocache.NoExpiration)
	return placeholder, nil
}

// EnsureAccount ensures a chart-of-accounts entry exists.
func (p *Provisioner) EnsureAccount(ctx context.Context, name, accountType, subType string) (*qbo.EntityRef, error) {
	attrs := map[string]any{"AccountType": accountType}
	if subType != "" {
		attrs["AccountSubType"] = subType
	}
	return p.EnsureEntity(ctx, qbo.KindAccount, name, attrs)
}

// EnsureServiceItem ensures the service item referenced by invoice lines
// exists, provisioning the canonical sales income account it points at.
func (p *Provisioner) EnsureServiceItem(ctx context.Context, name string) (*qbo.EntityRef, error) {
	if name == "" {
		name = "Services"
	}

	sales, err := p.EnsureAccount(ctx, incomeAccount.Account, incomeAccount.Type, incomeAccount.Subtype)
	if err != nil {
		return nil, err
	}

	attrs := map[string]any{
		"Type":             "Service",
		"IncomeAccountRef": map[string]any{"value": sales.ID},
	}
	return p.EnsureEntity(ctx, qbo.KindItem, name, attrs)
}
