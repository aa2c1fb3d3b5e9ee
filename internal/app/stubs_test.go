package app

import (
	"context"
	"sync"
	"time"

	"github.com/walletgate/confirmation-service/internal/config"
	"github.com/walletgate/confirmation-service/internal/domain"
	"github.com/walletgate/confirmation-service/internal/store"
)

// In-memory stand-ins for the storage, identity, ledger, and broker
// collaborators, shared across the app-layer tests.

type memConfirmationStore struct {
	mu      sync.Mutex
	records map[string]*domain.ConfirmationRecord
}

func newMemConfirmationStore() *memConfirmationStore {
	return &memConfirmationStore{records: make(map[string]*domain.ConfirmationRecord)}
}

func (s *memConfirmationStore) IsConfirmed(ctx context.Context, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[accountID]
	return ok && record.Confirmed, nil
}

func (s *memConfirmationStore) EnsureRecord(ctx context.Context, accountID string) (*domain.ConfirmationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(accountID), nil
}

func (s *memConfirmationStore) ensureLocked(accountID string) *domain.ConfirmationRecord {
	if record, ok := s.records[accountID]; ok {
		return record
	}
	now := time.Now().UTC()
	record := &domain.ConfirmationRecord{
		ID:        accountID,
		AccountID: accountID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[accountID] = record
	return record
}

func (s *memConfirmationStore) MarkConfirmed(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.ensureLocked(accountID)
	record.Confirmed = true
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memConfirmationStore) ClaimConfirmation(ctx context.Context, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.ensureLocked(accountID)
	if record.Confirmed {
		return false, nil
	}
	record.Confirmed = true
	record.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memConfirmationStore) ReleaseClaim(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[accountID]; ok {
		record.Confirmed = false
		record.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *memConfirmationStore) DeleteRecord(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, accountID)
	return nil
}

func (s *memConfirmationStore) seed(accountID string, createdAt time.Time, confirmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[accountID] = &domain.ConfirmationRecord{
		ID:        accountID,
		AccountID: accountID,
		Confirmed: confirmed,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func (s *memConfirmationStore) record(accountID string) (domain.ConfirmationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[accountID]
	if !ok {
		return domain.ConfirmationRecord{}, false
	}
	return *record, true
}

func (s *memConfirmationStore) ForEachStaleUnconfirmed(ctx context.Context, olderThan time.Duration, fn func(accountID string) error) error {
	s.mu.Lock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var stale []string
	for id, record := range s.records {
		if !record.Confirmed && record.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

type memIdentityStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemIdentityStore(accounts ...*domain.Account) *memIdentityStore {
	s := &memIdentityStore{accounts: make(map[string]*domain.Account)}
	for _, account := range accounts {
		s.accounts[account.ID] = account
	}
	return s
}

func (s *memIdentityStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (s *memIdentityStore) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[accountID]; ok {
		return account, nil
	}
	return nil, store.ErrAccountNotFound
}

func (s *memIdentityStore) SetConfirmedFlag(ctx context.Context, accountID string, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Confirmed = confirmed
	return nil
}

func (s *memIdentityStore) EnsureSecret(ctx context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return "", store.ErrAccountNotFound
	}
	if account.Secret == nil || *account.Secret == "" {
		secret := "tok" + accountID
		account.Secret = &secret
	}
	return *account.Secret, nil
}

func (s *memIdentityStore) DeleteAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return store.ErrAccountNotFound
	}
	delete(s.accounts, accountID)
	return nil
}

type debitCall struct {
	accountID string
	amount    int64
	reason    string
}

type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	// balanceSeq, when non-empty, overrides balances for successive
	// GetBalance calls on any account.
	balanceSeq []int64
	// failDebits forces the first N debits to fail with an insufficient
	// balance error regardless of the actual balance.
	failDebits int
	debits     []debitCall
}

func newMemLedger(balances map[string]int64) *memLedger {
	if balances == nil {
		balances = make(map[string]int64)
	}
	return &memLedger{balances: balances}
}

func (l *memLedger) GetBalance(ctx context.Context, accountID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.balanceSeq) > 0 {
		balance := l.balanceSeq[0]
		l.balanceSeq = l.balanceSeq[1:]
		return balance, nil
	}
	return l.balances[accountID], nil
}

func (l *memLedger) Debit(ctx context.Context, accountID string, amount int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failDebits > 0 {
		l.failDebits--
		return domain.ErrInsufficientBalance
	}
	if l.balances[accountID] < amount {
		return domain.ErrInsufficientBalance
	}
	l.balances[accountID] -= amount
	l.debits = append(l.debits, debitCall{accountID: accountID, amount: amount, reason: reason})
	return nil
}

func (l *memLedger) debitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.debits)
}

type memPublisher struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (p *memPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return context.DeadlineExceeded
	}
	p.events = append(p.events, routingKey)
	return nil
}

func (p *memPublisher) published(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, key := range p.events {
		if key == routingKey {
			count++
		}
	}
	return count
}

func testConfig(criterion domain.Criterion) config.Config {
	return config.Config{
		PublicBaseURL:       "https://id.example.org",
		ConfirmCriteria:     string(criterion),
		RequiredBalance:     5000,
		RequiredFee:         1000,
		Currency:            "NGN",
		StaleRetentionHours: 96,
	}
}

func walletAccount(id, username string) *domain.Account {
	now := time.Now().UTC()
	return &domain.Account{
		ID:         id,
		Username:   username,
		AuthMethod: domain.AuthWallet,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestWorkflow(cfg config.Config, users *memIdentityStore, confirmations *memConfirmationStore, ledger *memLedger, publisher *memPublisher) *Workflow {
	policy := NewPolicy(cfg, confirmations)
	var pub EventPublisher
	if publisher != nil {
		pub = publisher
	}
	return NewWorkflow(cfg, users, confirmations, ledger, policy, NoopSessionCache{}, pub)
}
