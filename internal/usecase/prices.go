package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinLoad/internal/domain/models"
	domrepo "FinLoad/internal/domain/repository"
	"FinLoad/pkg/cache"
	xhttp "FinLoad/pkg/http"
	"FinLoad/pkg/logger"
)

const (
	maxQueryLimit  = 50000
	latestCacheTTL = 30 * time.Second
)

// PricesUseCase serves stored history to API consumers.
type PricesUseCase struct {
	store domrepo.PriceStore
	cache cache.Service // optional
	log   *logger.Logger
}

func NewPricesUseCase(store domrepo.PriceStore, c cache.Service, log *logger.Logger) *PricesUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &PricesUseCase{store: store, cache: c, log: log}
}

type GetPricesParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetPricesResult struct {
	Symbol string            `json:"symbol"`
	From   time.Time         `json:"from"`
	To     time.Time         `json:"to"`
	Count  int               `json:"count"`
	Rows   []models.PriceRow `json:"rows"`
}

func (uc *PricesUseCase) GetPrices(ctx context.Context, p GetPricesParams) (*GetPricesResult, error) {
	if p.Symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	if p.From.After(p.To) {
		return nil, xhttp.BadRequestError("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > maxQueryLimit {
		p.Limit = maxQueryLimit
	}

	rows, err := uc.store.Query(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, xhttp.UnavailableError("price store unavailable", fmt.Errorf("query prices: %w", err))
	}
	if rows == nil {
		rows = []models.PriceRow{}
	}

	return &GetPricesResult{
		Symbol: p.Symbol,
		From:   p.From,
		To:     p.To,
		Count:  len(rows),
		Rows:   rows,
	}, nil
}

// Latest returns the newest stored bar for symbol. Hits are cached briefly.
func (uc *PricesUseCase) Latest(ctx context.Context, symbol string) (*models.PriceRow, error) {
	key := "latest:" + symbol
	if uc.cache != nil {
		var row models.PriceRow
		err := uc.cache.Get(ctx, key, &row)
		if err == nil {
			return &row, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			uc.log.Warn("latest cache read", logger.String("symbol", symbol), logger.Error(err))
		}
	}

	row, err := uc.store.Latest(ctx, symbol)
	if err != nil {
		return nil, xhttp.UnavailableError("price store unavailable", fmt.Errorf("latest price: %w", err))
	}
	if row == nil {
		return nil, xhttp.NotFoundErrorf("no prices stored for %s", symbol)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, row, latestCacheTTL); err != nil {
			uc.log.Warn("latest cache write", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return row, nil
}

// Invalidate drops cached reads for symbols, e.g. after a run wrote new rows.
func (uc *PricesUseCase) Invalidate(ctx context.Context, symbols ...string) error {
	if uc.cache == nil || len(symbols) == 0 {
		return nil
	}
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = "latest:" + s
	}
	return uc.cache.Delete(ctx, keys...)
}

// Health reports store reachability.
func (uc *PricesUseCase) Health(ctx context.Context) error {
	return uc.store.Health(ctx)
}
