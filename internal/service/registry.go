package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/storage"
)

// Registry hands out the per-account subscription store and payment
// flow. Stores are created lazily on first use and cached so every
// request for an account sees the same in-flight payment slot and the
// same published record.
type Registry struct {
	records  storage.RecordStore
	provider billing.Provider
	cfg      PaymentFlowConfig
	log      *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	subs SubscriptionStore
	flow PaymentFlow
}

// NewRegistry creates a registry over shared storage and a shared
// payment provider.
func NewRegistry(records storage.RecordStore, provider billing.Provider, cfg PaymentFlowConfig, log *slog.Logger) *Registry {
	return &Registry{
		records:  records,
		provider: provider,
		cfg:      cfg,
		log:      log,
		entries:  make(map[string]*registryEntry),
	}
}

// ForAccount returns the store and flow for an account ID, initializing
// the store from persistence on first use.
func (r *Registry) ForAccount(ctx context.Context, accountID string) (SubscriptionStore, PaymentFlow, error) {
	r.mu.Lock()
	entry, ok := r.entries[accountID]
	r.mu.Unlock()
	if ok {
		return entry.subs, entry.flow, nil
	}

	subs := NewSubscriptionStore(r.records, accountID, r.log)
	if err := subs.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	flow := NewPaymentFlow(r.provider, subs, r.cfg, r.log)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Lost the race: keep the entry that initialized first.
	if entry, ok := r.entries[accountID]; ok {
		return entry.subs, entry.flow, nil
	}
	r.entries[accountID] = &registryEntry{subs: subs, flow: flow}
	return subs, flow, nil
}

// For resolves the account from the request context.
func (r *Registry) For(ctx context.Context) (SubscriptionStore, PaymentFlow, error) {
	account := domain.AccountFromContext(ctx)
	if account == nil {
		return nil, nil, ErrAuthRequired
	}
	return r.ForAccount(ctx, account.ID.String())
}
