package bankfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// Service serves the bank balance and transactions from the repositories,
// refreshing them from the feed at most once per calendar day.
type Service struct {
	feed     Feed
	balances repository.BalanceRepository
	txs      repository.TransactionRepository
	now      func() time.Time

	mu         sync.Mutex
	lastSync   time.Time
	syncedFrom domain.Date
}

// NewService creates a service. feed may be nil, in which case only stored
// data is served.
func NewService(feed Feed, balances repository.BalanceRepository, txs repository.TransactionRepository) *Service {
	return &Service{feed: feed, balances: balances, txs: txs, now: time.Now}
}

func sameDay(a, b time.Time) bool {
	return domain.DateOf(a) == domain.DateOf(b)
}

// Balance returns the bank balance. The cached value is used when it was
// checked today; otherwise the feed is asked and the cache updated. A feed
// failure falls back to the cached balance when one exists.
func (s *Service) Balance(ctx context.Context) (domain.BankBalance, error) {
	log := logger.FromContext(ctx)

	cached, err := s.balances.GetBalance(ctx)
	if err != nil {
		return domain.BankBalance{}, fmt.Errorf("Balance: read cache: %w", err)
	}
	now := s.now()
	if s.feed == nil || (!cached.LastCheck.IsZero() && sameDay(cached.LastCheck, now)) {
		return cached, nil
	}

	amount, err := s.feed.Balance(ctx)
	if err != nil {
		if cached.LastCheck.IsZero() {
			return domain.BankBalance{}, fmt.Errorf("Balance: %w", err)
		}
		log.Warn().Err(err).Time("last_check", cached.LastCheck).Msg("Bank balance refresh failed, serving cached value")
		return cached, nil
	}

	fresh := domain.BankBalance{Amount: amount, LastCheck: now.UTC()}
	if err := s.balances.SaveBalance(ctx, fresh); err != nil {
		return domain.BankBalance{}, fmt.Errorf("Balance: save cache: %w", err)
	}
	log.Info().Str("amount", amount.String()).Msg("Bank balance refreshed")
	return fresh, nil
}

// Transactions returns stored transactions dated within [from, to]. Once a
// day, or when from reaches further back than today's sync, the feed is asked
// for transactions from from through today and new ones are stored first.
// Feed failures are logged and stored data served.
func (s *Service) Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	if s.feed != nil {
		s.sync(ctx, from)
	}
	txs, err := s.txs.ListTransactions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	return txs, nil
}

func (s *Service) sync(ctx context.Context, from domain.Date) {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.lastSync.IsZero() && sameDay(s.lastSync, now) && !from.SortsBefore(s.syncedFrom) {
		return
	}

	fetched, err := s.feed.Transactions(ctx, from, domain.DateOf(now))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch transactions from the bank feed")
		return
	}
	added, err := s.txs.UpsertTransactions(ctx, fetched)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to store bank transactions")
		return
	}
	s.lastSync = now
	s.syncedFrom = from
	log.Info().Int("fetched", len(fetched)).Int("added", added).Msg("Bank transactions synced")
}

// ImportResult counts what Import stored.
type ImportResult struct {
	Fetched int
	Added   int
	Balance domain.BankBalance
}

// Import copies the feed's transactions dated within [from, to] and its
// current balance into the repositories, bypassing the once-a-day rule.
// Transactions already stored are skipped.
func Import(ctx context.Context, feed Feed, balances repository.BalanceRepository, txs repository.TransactionRepository, from, to domain.Date) (ImportResult, error) {
	var res ImportResult
	if to.SortsBefore(from) {
		return res, fmt.Errorf("Import: range ends %s before it starts %s", to, from)
	}
	fetched, err := feed.Transactions(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("Import: transactions: %w", err)
	}
	res.Fetched = len(fetched)
	if res.Added, err = txs.UpsertTransactions(ctx, fetched); err != nil {
		return res, fmt.Errorf("Import: store transactions: %w", err)
	}

	amount, err := feed.Balance(ctx)
	if err != nil {
		return res, fmt.Errorf("Import: balance: %w", err)
	}
	res.Balance = domain.BankBalance{Amount: amount, LastCheck: time.Now().UTC()}
	if err := balances.SaveBalance(ctx, res.Balance); err != nil {
		return res, fmt.Errorf("Import: store balance: %w", err)
	}
	return res, nil
}
