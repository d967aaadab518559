/**
 * @description
 * PostgreSQL implementation of the `PriceSource` interface. The canonical
 * per-adult price for a bookable item lives in one of three catalogs; they
 * are checked in priority order: day tours, then vacation packages, then the
 * generic destination catalog.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

// PostgresCatalogStore resolves canonical prices from the content catalogs.
type PostgresCatalogStore struct {
	db *pgxpool.Pool
}

// NewPostgresCatalogStore creates a new instance of PostgresCatalogStore.
func NewPostgresCatalogStore(db *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

type catalogQuery struct {
	itemType domain.CatalogItemType
	query    string
}

var catalogQueries = []catalogQuery{
	{
		itemType: domain.CatalogDayTour,
		query: `
			SELECT item_id, unit_price_cents, currency, supplement_percent,
				child_discount_percent, group_threshold, group_discount_percent
			FROM day_tours WHERE item_id = $1
		`,
	},
	{
		itemType: domain.CatalogVacationPackage,
		query: `
			SELECT item_id, unit_price_cents, currency, supplement_percent,
				child_discount_percent, group_threshold, group_discount_percent
			FROM vacation_packages WHERE item_id = $1
		`,
	},
	{
		itemType: domain.CatalogDestination,
		query: `
			SELECT item_id, unit_price_cents, currency, supplement_percent,
				child_discount_percent, group_threshold, group_discount_percent
			FROM destinations WHERE item_id = $1
		`,
	},
}

// GetCanonicalUnitPrice looks the item up across the catalogs in priority
// order and returns ErrItemNotFound when no catalog knows it.
func (r *PostgresCatalogStore) GetCanonicalUnitPrice(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	for _, cq := range catalogQueries {
		item := domain.CatalogItem{ItemType: cq.itemType}
		err := r.db.QueryRow(ctx, cq.query, itemID).Scan(
			&item.ItemID, &item.UnitPriceCents, &item.Currency,
			&item.Flags.SupplementPercent, &item.Flags.ChildDiscountPercent,
			&item.Flags.GroupThreshold, &item.Flags.GroupDiscountPercent,
		)
		if err == nil {
			return &item, nil
		}
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("catalog lookup (%s): %w", cq.itemType, err)
		}
	}
	return nil, ErrItemNotFound
}
