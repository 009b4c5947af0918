package cashcustody

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory repositories that keep the persistence contract: rows are copied
// in and out, and SaveWithLock enforces the version predicate.

type balanceKey struct {
	tenantID    uuid.UUID
	collectorID uuid.UUID
	date        time.Time
}

type fakeBalanceRepo struct {
	mu       sync.Mutex
	rows     map[balanceKey]cashcustody.CollectorCashBalance
	saveErrs []error
	locks    int
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{rows: make(map[balanceKey]cashcustody.CollectorCashBalance)}
}

func (r *fakeBalanceRepo) FindByCollectorDate(_ context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CollectorCashBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[balanceKey{tenantID, collectorID, cashcustody.NormalizeDate(date)}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	row.ClearDomainEvents()
	return &row, nil
}

func (r *fakeBalanceRepo) FindByCollectorDateForUpdate(ctx context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CollectorCashBalance, error) {
	r.mu.Lock()
	r.locks++
	r.mu.Unlock()
	return r.FindByCollectorDate(ctx, tenantID, collectorID, date)
}

func (r *fakeBalanceRepo) FindByDate(_ context.Context, tenantID uuid.UUID, date time.Time) ([]cashcustody.CollectorCashBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cashcustody.CollectorCashBalance
	for key, row := range r.rows {
		if key.tenantID == tenantID && key.date.Equal(cashcustody.NormalizeDate(date)) {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CollectorID.String() < result[j].CollectorID.String()
	})
	return result, nil
}

func (r *fakeBalanceRepo) Create(_ context.Context, b *cashcustody.CollectorCashBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey{b.TenantID, b.CollectorID, b.BalanceDate}
	if _, ok := r.rows[key]; ok {
		return errors.New("UNIQUE constraint failed: collector_cash_balances")
	}
	r.rows[key] = *b
	return nil
}

func (r *fakeBalanceRepo) SaveWithLock(_ context.Context, b *cashcustody.CollectorCashBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saveErrs) > 0 {
		err := r.saveErrs[0]
		r.saveErrs = r.saveErrs[1:]
		return err
	}
	key := balanceKey{b.TenantID, b.CollectorID, b.BalanceDate}
	stored, ok := r.rows[key]
	if !ok || stored.Version != b.Version-1 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Cash balance was modified by another transaction")
	}
	r.rows[key] = *b
	return nil
}

type fakeFloatRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]cashcustody.CashFloat
	seq  []uuid.UUID
}

func newFakeFloatRepo() *fakeFloatRepo {
	return &fakeFloatRepo{rows: make(map[uuid.UUID]cashcustody.CashFloat)}
}

func (r *fakeFloatRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*cashcustody.CashFloat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	row.ClearDomainEvents()
	return &row, nil
}

func (r *fakeFloatRepo) FindActiveIssuance(_ context.Context, tenantID, collectorID uuid.UUID, date time.Time) (*cashcustody.CashFloat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.seq) - 1; i >= 0; i-- {
		row := r.rows[r.seq[i]]
		if row.TenantID == tenantID && row.CollectorID == collectorID && row.Type == cashcustody.FloatTypeIssuance &&
			row.FloatDate.Equal(cashcustody.NormalizeDate(date)) && row.Status.IsActive() {
			row.ClearDomainEvents()
			return &row, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeFloatRepo) Find(_ context.Context, tenantID uuid.UUID, q cashcustody.FloatQuery) ([]cashcustody.CashFloat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cashcustody.CashFloat
	for _, id := range r.seq {
		row := r.rows[id]
		switch {
		case row.TenantID != tenantID,
			q.Type != "" && row.Type != q.Type,
			q.Status != "" && row.Status != q.Status,
			q.CollectorID != nil && row.CollectorID != *q.CollectorID,
			q.CashierID != nil && row.CashierID != *q.CashierID,
			q.From != nil && row.FloatDate.Before(cashcustody.NormalizeDate(*q.From)),
			q.To != nil && row.FloatDate.After(cashcustody.NormalizeDate(*q.To)):
			continue
		}
		result = append(result, row)
	}
	if !q.OldestFirst {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (r *fakeFloatRepo) Create(_ context.Context, f *cashcustody.CashFloat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[f.ID] = *f
	r.seq = append(r.seq, f.ID)
	return nil
}

func (r *fakeFloatRepo) SaveWithLock(_ context.Context, f *cashcustody.CashFloat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[f.ID]
	if !ok || stored.Version != f.Version-1 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Cash float was modified by another transaction")
	}
	r.rows[f.ID] = *f
	return nil
}

// staleIssuanceReads answers FindActiveIssuance as a read taken before a
// concurrent issuer committed would.
type staleIssuanceReads struct {
	*fakeFloatRepo
}

func (staleIssuanceReads) FindActiveIssuance(context.Context, uuid.UUID, uuid.UUID, time.Time) (*cashcustody.CashFloat, error) {
	return nil, shared.ErrNotFound
}

type fakeTransactionRepo struct {
	mu      sync.Mutex
	entries []cashcustody.CashTransaction
}

func (r *fakeTransactionRepo) Append(_ context.Context, entry *cashcustody.CashTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeTransactionRepo) FindByLocalID(_ context.Context, tenantID, collectorID uuid.UUID, localID string) (*cashcustody.CashTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.CollectorID == collectorID && e.LocalTransactionID == localID {
			return &e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeTransactionRepo) FindByCollectorDate(_ context.Context, tenantID, collectorID uuid.UUID, date time.Time) ([]cashcustody.CashTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cashcustody.CashTransaction
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.CollectorID == collectorID && e.TransactionDate.Equal(cashcustody.NormalizeDate(date)) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeTransactionRepo) FindHistory(_ context.Context, tenantID, collectorID uuid.UUID, q cashcustody.TransactionQuery) ([]cashcustody.CashTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []cashcustody.CashTransaction
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		switch {
		case e.TenantID != tenantID, e.CollectorID != collectorID,
			q.Type != "" && e.Type != q.Type,
			q.From != nil && e.TransactionDate.Before(*q.From),
			q.To != nil && e.TransactionDate.After(*q.To):
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if q.PageSize > 0 {
		start := min((max(q.Page, 1)-1)*q.PageSize, len(matched))
		end := min(start+q.PageSize, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *fakeTransactionRepo) Totals(_ context.Context, tenantID, collectorID uuid.UUID, txType cashcustody.TransactionType, from, to time.Time) (cashcustody.ActivityTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := cashcustody.ActivityTotals{Total: decimal.Zero}
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.CollectorID == collectorID && e.Type == txType &&
			!e.TransactionDate.Before(from) && e.TransactionDate.Before(to) {
			totals.Count++
			totals.Total = totals.Total.Add(e.Amount)
		}
	}
	return totals, nil
}

type fakeLimitsRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]cashcustody.CollectorLimits
}

func newFakeLimitsRepo() *fakeLimitsRepo {
	return &fakeLimitsRepo{rows: make(map[uuid.UUID]cashcustody.CollectorLimits)}
}

func (r *fakeLimitsRepo) FindByCollector(_ context.Context, tenantID, collectorID uuid.UUID) (*cashcustody.CollectorLimits, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[collectorID]
	if !ok || row.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

func (r *fakeLimitsRepo) Upsert(_ context.Context, l *cashcustody.CollectorLimits) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[l.CollectorID] = *l
	return nil
}

type fakeActionLogRepo struct {
	mu      sync.Mutex
	entries []cashcustody.CollectorActionLog
}

func (r *fakeActionLogRepo) Append(_ context.Context, entry *cashcustody.CollectorActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActionLogRepo) Totals(_ context.Context, tenantID, collectorID uuid.UUID, actionType cashcustody.ActionType, status cashcustody.ActionStatus, from, to time.Time) (cashcustody.ActivityTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := cashcustody.ActivityTotals{Total: decimal.Zero}
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.CollectorID == collectorID && e.ActionType == actionType && e.Status == status &&
			!e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			totals.Count++
			if e.Amount != nil {
				totals.Total = totals.Total.Add(*e.Amount)
			}
		}
	}
	return totals, nil
}

func (r *fakeActionLogRepo) Find(_ context.Context, tenantID uuid.UUID, q cashcustody.ActionLogQuery) ([]cashcustody.CollectorActionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []cashcustody.CollectorActionLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		switch {
		case e.TenantID != tenantID,
			q.CollectorID != nil && e.CollectorID != *q.CollectorID,
			q.ActionType != "" && e.ActionType != q.ActionType,
			q.Status != "" && e.Status != q.Status:
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *fakeActionLogRepo) actions() []cashcustody.ActionType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]cashcustody.ActionType, len(r.entries))
	for i, e := range r.entries {
		types[i] = e.ActionType
	}
	return types
}

type fakeLoanDirectory struct {
	loans         map[uuid.UUID]string
	disbursements cashcustody.ActivityTotals
	err           error
}

func (d *fakeLoanDirectory) Exists(_ context.Context, _, loanID uuid.UUID) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.loans[loanID]
	return ok, nil
}

func (d *fakeLoanDirectory) LoanNumbers(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	result := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if n, ok := d.loans[id]; ok {
			result[id] = n
		}
	}
	return result, nil
}

func (d *fakeLoanDirectory) DisbursementTotals(_ context.Context, _, _ uuid.UUID, _, _ time.Time) (cashcustody.ActivityTotals, error) {
	if d.err != nil {
		return cashcustody.ActivityTotals{}, d.err
	}
	return d.disbursements, nil
}

type fakeCollectorDirectory map[uuid.UUID]string

func (d fakeCollectorDirectory) DisplayNames(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	result := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if n, ok := d[id]; ok {
			result[id] = n
		}
	}
	return result, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// ledgerFixture wires a service over the in-memory repositories.
type ledgerFixture struct {
	service      *CashCustodyService
	limits       *LimitsService
	balances     *fakeBalanceRepo
	floats       *fakeFloatRepo
	transactions *fakeTransactionRepo
	limitsRepo   *fakeLimitsRepo
	actionLogs   *fakeActionLogRepo
	loans        *fakeLoanDirectory
	publisher    *recordingPublisher
	calendar     *cashcustody.BusinessCalendar

	tenantID    uuid.UUID
	cashierID   uuid.UUID
	collectorID uuid.UUID
	loanID      uuid.UUID
}

var fixtureNow = time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	f := &ledgerFixture{
		balances:     newFakeBalanceRepo(),
		floats:       newFakeFloatRepo(),
		transactions: &fakeTransactionRepo{},
		limitsRepo:   newFakeLimitsRepo(),
		actionLogs:   &fakeActionLogRepo{},
		publisher:    &recordingPublisher{},
		calendar:     cashcustody.NewBusinessCalendar(time.UTC, func() time.Time { return fixtureNow }),
		tenantID:     uuid.New(),
		cashierID:    uuid.New(),
		collectorID:  uuid.New(),
		loanID:       uuid.New(),
	}
	f.loans = &fakeLoanDirectory{
		loans:         map[uuid.UUID]string{f.loanID: "LN-0001"},
		disbursements: cashcustody.ActivityTotals{Total: decimal.Zero},
	}

	logger := zap.NewNop()
	f.limits = NewLimitsService(f.limitsRepo, f.actionLogs, f.loans, f.transactions, f.calendar, logger)
	scope := NewNoOpLedgerScope(f.balances, f.floats, f.transactions, f.publisher)
	f.service = NewCashCustodyService(scope, f.balances, f.floats, f.transactions, f.limits, f.calendar, logger)
	f.service.SetActionLogService(NewActionLogService(f.actionLogs, logger))
	f.service.SetLoanDirectory(f.loans)
	f.service.SetCollectorDirectory(fakeCollectorDirectory{f.collectorID: "Juan Dela Cruz", f.cashierID: "Maria Santos"})
	f.service.SetRetryPolicy(RetryPolicy{MaxAttempts: 3, IsRetryable: isTestContention})
	return f
}

var errTestContention = errors.New("could not obtain lock on row")

func isTestContention(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == "OPTIMISTIC_LOCK_FAILED"
	}
	return errors.Is(err, errTestContention)
}

// issueAndConfirm opens the collector-day with the given float and cap.
func (f *ledgerFixture) issueAndConfirm(t *testing.T, amount, dailyCap int64) *FloatResponse {
	t.Helper()
	capAmount := decimal.NewFromInt(dailyCap)
	issued, err := f.service.IssueFloat(context.Background(), f.tenantID, f.cashierID, IssueFloatRequest{
		CollectorID: f.collectorID,
		Amount:      decimal.NewFromInt(amount),
		DailyCap:    &capAmount,
	})
	require.NoError(t, err)
	_, err = f.service.ConfirmFloatReceipt(context.Background(), f.tenantID, f.collectorID, ConfirmFloatRequest{FloatID: issued.ID})
	require.NoError(t, err)
	return issued
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected a domain error, got %v", err)
	require.Equal(t, code, domainErr.Code)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
