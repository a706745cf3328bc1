package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/chargeload/internal/model"
)

// CopyItems bulk-loads a batch of items via the COPY protocol. Items must be
// flushed before the offers that reference them.
func CopyItems(ctx context.Context, pool *pgxpool.Pool, items []*model.BillableItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"items"},
		model.ItemColumns(),
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			return items[i].CopyValues(), nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy items: %w", err)
	}
	return n, nil
}

// CopyOffers bulk-loads a batch of priced offers via the COPY protocol.
func CopyOffers(ctx context.Context, pool *pgxpool.Pool, offers []*model.PricedOffer) (int64, error) {
	if len(offers) == 0 {
		return 0, nil
	}
	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"prices"},
		model.OfferColumns(),
		pgx.CopyFromSlice(len(offers), func(i int) ([]any, error) {
			return offers[i].CopyValues(), nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy offers: %w", err)
	}
	return n, nil
}

// DeleteHospital removes all items for a hospital; their offers cascade.
// Re-running ingestion is then equivalent to a single clean run.
func DeleteHospital(ctx context.Context, pool *pgxpool.Pool, hospitalID string) (int64, error) {
	tag, err := pool.Exec(ctx, "DELETE FROM items WHERE hospital_id = $1", hospitalID)
	if err != nil {
		return 0, fmt.Errorf("delete hospital %s: %w", hospitalID, err)
	}
	return tag.RowsAffected(), nil
}
