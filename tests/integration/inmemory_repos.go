package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.Wallet
	for _, w := range r.wallets {
		if w.OwnerID == ownerID {
			cp := *w
			result = append(result, &cp)
		}
	}
	return result, nil
}

// AdjustBalance is atomic under the repo mutex, mirroring the conditional
// UPDATE the PostgreSQL implementation runs.
func (r *inMemoryWalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if w.Balance+delta < 0 {
		return 0, ports.ErrInsufficientBalance
	}
	w.Balance += delta
	w.UpdatedAt = time.Now()
	return w.Balance, nil
}

func (r *inMemoryWalletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	return nil
}

// --- In-Memory Card Repo ---

type inMemoryCardRepo struct {
	mu      sync.RWMutex
	cards   map[uuid.UUID]*domain.AuxiliaryCard
	entries []*domain.CardTransaction
}

func newInMemoryCardRepo() *inMemoryCardRepo {
	return &inMemoryCardRepo{cards: make(map[uuid.UUID]*domain.AuxiliaryCard)}
}

func (r *inMemoryCardRepo) Create(ctx context.Context, c *domain.AuxiliaryCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[c.ID] = c
	return nil
}

func (r *inMemoryCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuxiliaryCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cards[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryCardRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*domain.AuxiliaryCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.AuxiliaryCard
	for _, c := range r.cards {
		if c.WalletID == walletID {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *inMemoryCardRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if c.Balance+delta < 0 {
		return 0, ports.ErrInsufficientBalance
	}
	c.Balance += delta
	c.UpdatedAt = time.Now()
	return c.Balance, nil
}

func (r *inMemoryCardRepo) CreateEntry(ctx context.Context, tx pgx.Tx, entry *domain.CardTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *inMemoryCardRepo) cardType(id uuid.UUID) domain.CardType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.cards[id]; ok {
		return c.Type
	}
	return ""
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []*domain.WalletTransaction
	cards   *inMemoryCardRepo
}

func newInMemoryLedgerRepo(cards *inMemoryCardRepo) *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{cards: cards}
}

func (r *inMemoryLedgerRepo) CreateEntry(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *inMemoryLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerRepo) ListAll(ctx context.Context, limit, offset int) ([]*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*domain.WalletTransaction, len(r.entries))
	copy(all, r.entries)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset), nil
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domain.WalletTransaction
	for _, e := range r.entries {
		if e.WalletID == walletID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, limit, offset), nil
}

func (r *inMemoryLedgerRepo) ListActivity(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, error) {
	r.mu.RLock()
	var merged []*domain.ActivityEntry
	for _, e := range r.entries {
		if e.WalletID == walletID {
			merged = append(merged, &domain.ActivityEntry{
				ID:           e.ID,
				Source:       "wallet",
				SourceID:     e.WalletID,
				Kind:         e.Kind,
				Amount:       e.Amount,
				BalanceAfter: e.BalanceAfter,
				Description:  e.Description,
				CreatedAt:    e.CreatedAt,
			})
		}
	}
	r.mu.RUnlock()

	r.cards.mu.RLock()
	for _, e := range r.cards.entries {
		card, ok := r.cards.cards[e.CardID]
		if !ok || card.WalletID != walletID {
			continue
		}
		merged = append(merged, &domain.ActivityEntry{
			ID:           e.ID,
			Source:       string(card.Type),
			SourceID:     e.CardID,
			Kind:         e.Kind,
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Description:  e.Description,
			CreatedAt:    e.CreatedAt,
		})
	}
	r.cards.mu.RUnlock()

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return paginate(merged, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// --- In-Memory QR Request Repo ---

type inMemoryQrRepo struct {
	mu       sync.RWMutex
	requests map[string]*domain.PendingQrRequest // keyed by reference
}

func newInMemoryQrRepo() *inMemoryQrRepo {
	return &inMemoryQrRepo{requests: make(map[string]*domain.PendingQrRequest)}
}

func (r *inMemoryQrRepo) Create(ctx context.Context, req *domain.PendingQrRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.Reference] = req
	return nil
}

func (r *inMemoryQrRepo) GetByReference(ctx context.Context, reference string) (*domain.PendingQrRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[reference]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

// MarkConfirmed applies the pending-to-confirmed transition exactly once,
// like the conditional UPDATE in the PostgreSQL implementation.
func (r *inMemoryQrRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, reference, bankRef string, confirmedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[reference]
	if !ok || req.Status != domain.QrStatusPending {
		return false, nil
	}
	req.Status = domain.QrStatusConfirmed
	req.BankRef = bankRef
	req.ConfirmedAt = &confirmedAt
	return true, nil
}

func (r *inMemoryQrRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if req.Status == domain.QrStatusPending && req.CreatedAt.Before(cutoff) {
			req.Status = domain.QrStatusExpired
			n++
		}
	}
	return n, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
