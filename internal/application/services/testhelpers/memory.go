package testhelpers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type phaseKey struct {
	protocol  domain.Protocol
	phaseCode int
}

// MemoryStore is an in-memory claim database. Transactions are serialized and
// staged, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	claims        map[domain.ClaimKey]*domain.ClaimMaster
	contracts     []domain.ContractRecord
	rates         []domain.RateRecord
	businessDate  time.Time
	history       []domain.HistoryRecord
	accompaniment []domain.AccompanimentEvent
	relationships []domain.PhaseEventRelationship
	phases        map[phaseKey][]domain.PhaseRecord

	FindClaimFn     func(ctx context.Context, key domain.ClaimKey) (*domain.ClaimMaster, error)
	FindContractsFn func(ctx context.Context, policy domain.PolicyRef) ([]domain.ContractRecord, error)
	FindRatesFn     func(ctx context.Context, currency string, asOf time.Time) ([]domain.RateRecord, error)
	// CommitFn runs before staged writes are applied. Returning an error
	// aborts the commit unless ApplyOnCommitError is set, which simulates a
	// commit that reached the database but whose acknowledgement was lost.
	CommitFn           func(ctx context.Context) error
	ApplyOnCommitError bool
	// FailStep makes the named store call fail inside a transaction.
	FailStep map[string]error

	ContractLookups atomic.Int32
	RateLookups     atomic.Int32
	Commits         atomic.Int32
	Rollbacks       atomic.Int32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:   make(map[domain.ClaimKey]*domain.ClaimMaster),
		phases:   make(map[phaseKey][]domain.PhaseRecord),
		FailStep: make(map[string]error),
	}
}

func (m *MemoryStore) AddClaim(claim *domain.ClaimMaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *claim
	m.claims[claim.Key] = &c
}

func (m *MemoryStore) AddContract(c domain.ContractRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts = append(m.contracts, c)
}

func (m *MemoryStore) AddRate(r domain.RateRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, r)
}

func (m *MemoryStore) AddRelationship(r domain.PhaseEventRelationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships = append(m.relationships, r)
}

func (m *MemoryStore) AddPhase(p domain.PhaseRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := phaseKey{p.Protocol, p.PhaseCode}
	m.phases[k] = append(m.phases[k], p)
}

func (m *MemoryStore) SetBusinessDate(d time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.businessDate = d
}

// Claim returns a copy of the committed claim.
func (m *MemoryStore) Claim(key domain.ClaimKey) *domain.ClaimMaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.claims[key]
	if !ok {
		return nil
	}
	out := *c
	return &out
}

func (m *MemoryStore) History() []domain.HistoryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.HistoryRecord(nil), m.history...)
}

func (m *MemoryStore) Accompaniment() []domain.AccompanimentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.AccompanimentEvent(nil), m.accompaniment...)
}

func (m *MemoryStore) Phases(protocol domain.Protocol, phaseCode int) []domain.PhaseRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.PhaseRecord(nil), m.phases[phaseKey{protocol, phaseCode}]...)
}

// ClaimRepository

func (m *MemoryStore) FindClaim(ctx context.Context, key domain.ClaimKey) (*domain.ClaimMaster, error) {
	if m.FindClaimFn != nil {
		return m.FindClaimFn(ctx, key)
	}
	if c := m.Claim(key); c != nil {
		return c, nil
	}
	return nil, domain.NewClaimNotFoundError(key)
}

func (m *MemoryStore) FindContractsByPolicy(ctx context.Context, policy domain.PolicyRef, filter application.ContractFilter) ([]domain.ContractRecord, error) {
	m.ContractLookups.Add(1)
	if m.FindContractsFn != nil {
		return m.FindContractsFn(ctx, policy)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ContractRecord
	for _, c := range m.contracts {
		if c.Policy == policy && c.ContractNumber >= filter.MinContractNumber {
			out = append(out, c)
		}
	}
	return out, nil
}

// RateRepository

func (m *MemoryStore) FindRates(ctx context.Context, currency string, asOf time.Time) ([]domain.RateRecord, error) {
	m.RateLookups.Add(1)
	if m.FindRatesFn != nil {
		return m.FindRatesFn(ctx, currency, asOf)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.RateRecord
	for _, r := range m.rates {
		if r.Currency == currency && r.Covers(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

// SystemControlRepository

func (m *MemoryStore) BusinessDate(ctx context.Context, systemID string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.businessDate.IsZero() {
		return time.Time{}, domain.ErrBusinessDateNotSet
	}
	return m.businessDate, nil
}

// HistoryRepository

func (m *MemoryStore) FindByAuthorizationID(ctx context.Context, id uuid.UUID) (*domain.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.history {
		if h.AuthorizationID == id {
			out := h
			return &out, nil
		}
	}
	return nil, domain.ErrAuthorizationNotFound
}

// UnitOfWork

func (m *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, store application.AuthorizationStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{store: m, claims: make(map[domain.ClaimKey]domain.ClaimMaster)}
	if err := fn(ctx, tx); err != nil {
		m.Rollbacks.Add(1)
		return err
	}

	if m.CommitFn != nil {
		if err := m.CommitFn(ctx); err != nil {
			if m.ApplyOnCommitError {
				tx.apply()
			}
			m.Rollbacks.Add(1)
			return err
		}
	}

	tx.apply()
	m.Commits.Add(1)
	return nil
}

type memoryTx struct {
	store         *MemoryStore
	claims        map[domain.ClaimKey]domain.ClaimMaster
	history       []domain.HistoryRecord
	accompaniment []domain.AccompanimentEvent
	opened        []domain.PhaseRecord
	closed        []domain.PhaseRecord
}

func (t *memoryTx) fail(step string) error {
	return t.store.FailStep[step]
}

func (t *memoryTx) InsertHistory(ctx context.Context, record *domain.HistoryRecord) error {
	if err := t.fail("history"); err != nil {
		return err
	}
	t.history = append(t.history, *record)
	return nil
}

func (t *memoryTx) AdvanceClaim(ctx context.Context, key domain.ClaimKey, expectedOccurrence int, total decimal.Decimal) (application.ClaimUpdate, error) {
	if err := t.fail("claim_master"); err != nil {
		return application.ClaimUpdate{}, err
	}
	current := t.store.Claim(key)
	if current == nil || current.HistoryOccurrenceCounter != expectedOccurrence {
		return application.ClaimUpdate{}, domain.NewConcurrencyConflictError(key, expectedOccurrence)
	}
	current.TotalPaid = current.TotalPaid.Add(total)
	current.HistoryOccurrenceCounter++
	t.claims[key] = *current
	return application.ClaimUpdate{
		TotalPaid:      current.TotalPaid,
		PendingBalance: current.PendingBalance(),
		Occurrence:     current.HistoryOccurrenceCounter,
	}, nil
}

func (t *memoryTx) InsertAccompaniment(ctx context.Context, event *domain.AccompanimentEvent) error {
	if err := t.fail("accompaniment"); err != nil {
		return err
	}
	t.accompaniment = append(t.accompaniment, *event)
	return nil
}

func (t *memoryTx) FindPhaseRelationships(ctx context.Context, eventCode int, on time.Time) ([]domain.PhaseEventRelationship, error) {
	if err := t.fail("phases"); err != nil {
		return nil, err
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	var out []domain.PhaseEventRelationship
	for _, r := range t.store.relationships {
		if r.EventCode == eventCode && r.IsValidForDate(on) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memoryTx) FindOpenPhase(ctx context.Context, protocol domain.Protocol, phaseCode int) (*domain.PhaseRecord, error) {
	for i := range t.opened {
		if t.opened[i].Protocol == protocol && t.opened[i].PhaseCode == phaseCode {
			p := t.opened[i]
			return &p, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, p := range t.store.phases[phaseKey{protocol, phaseCode}] {
		if p.IsOpen() {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) InsertPhase(ctx context.Context, phase *domain.PhaseRecord) error {
	t.opened = append(t.opened, *phase)
	return nil
}

func (t *memoryTx) ClosePhase(ctx context.Context, phase *domain.PhaseRecord) error {
	t.closed = append(t.closed, *phase)
	return nil
}

func (t *memoryTx) apply() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range t.claims {
		claim := c
		s.claims[key] = &claim
	}
	s.history = append(s.history, t.history...)
	s.accompaniment = append(s.accompaniment, t.accompaniment...)
	for _, p := range t.closed {
		k := phaseKey{p.Protocol, p.PhaseCode}
		for i := range s.phases[k] {
			if s.phases[k][i].IsOpen() && s.phases[k][i].OpenedOn.Equal(p.OpenedOn) {
				s.phases[k][i].ClosedOn = p.ClosedOn
			}
		}
	}
	for _, p := range t.opened {
		k := phaseKey{p.Protocol, p.PhaseCode}
		s.phases[k] = append(s.phases[k], p)
	}
}

// FakeValidationClient answers validations from ValidateFn, approving by default.
type FakeValidationClient struct {
	RouteValue domain.ValidationRoute
	ValidateFn func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error)
	Health     application.HealthStatus
	Calls      atomic.Int32
}

func NewFakeValidationClient(route domain.ValidationRoute) *FakeValidationClient {
	return &FakeValidationClient{
		RouteValue: route,
		Health: application.HealthStatus{
			System: route.String(),
			Status: application.HealthHealthy,
		},
	}
}

func (f *FakeValidationClient) Route() domain.ValidationRoute {
	return f.RouteValue
}

func (f *FakeValidationClient) Validate(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
	f.Calls.Add(1)
	if f.ValidateFn != nil {
		return f.ValidateFn(ctx, claim, req)
	}
	return domain.ValidationOutcome{
		Route:        f.RouteValue,
		Approved:     true,
		ProviderCode: "00000000",
		Message:      "approved",
	}, nil
}

func (f *FakeValidationClient) CheckHealth(ctx context.Context) application.HealthStatus {
	h := f.Health
	h.CheckedAt = time.Now()
	return h
}
