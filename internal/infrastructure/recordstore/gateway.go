package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
)

// Table names in the record store.
const (
	variantsTable = "product_variants"
	levelsTable   = "inventory_levels"
)

// VariantGateway resolves product identifiers to vendor inventory items
// and persists fetched stock levels back into the record store.
type VariantGateway struct {
	client *Client
	logger *zap.Logger
}

// NewVariantGateway creates a gateway on top of a record store client.
func NewVariantGateway(client *Client, logger *zap.Logger) *VariantGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VariantGateway{client: client, logger: logger}
}

// variantRow mirrors the record store's variant read shape.
type variantRow struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	SKU             string `json:"sku"`
	InventoryItemID *int64 `json:"inventory_item_id"`
}

// ResolveInventoryItems reads all variants of the given products that
// carry a vendor inventory item id. Variants with a null inventory item
// id represent products the vendor does not track; the filter excludes
// them server-side and a nil guard drops any stragglers.
func (g *VariantGateway) ResolveInventoryItems(ctx context.Context, productIDs []int64) ([]reconcile.InventoryItemRef, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "id,product_id,sku,inventory_item_id")
	query.Set("product_id", "in.("+joinIDs(productIDs)+")")
	query.Set("inventory_item_id", "not.is.null")

	body, err := g.client.do(ctx, http.MethodGet, variantsTable, query, "", nil)
	if err != nil {
		return nil, fmt.Errorf("resolve inventory items: %w", err)
	}

	var rows []variantRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("resolve inventory items: parse response: %w", err)
	}

	refs := make([]reconcile.InventoryItemRef, 0, len(rows))
	for _, row := range rows {
		if row.InventoryItemID == nil || *row.InventoryItemID == 0 {
			continue
		}
		refs = append(refs, reconcile.InventoryItemRef{
			InventoryItemID: *row.InventoryItemID,
			ProductID:       row.ProductID,
			VariantID:       row.ID,
			SKU:             row.SKU,
		})
	}

	g.logger.Debug("Resolved inventory items",
		zap.Int("products_requested", len(productIDs)),
		zap.Int("items_resolved", len(refs)),
	)
	return refs, nil
}

// levelRow mirrors the record store's level write shape.
type levelRow struct {
	InventoryItemID int64     `json:"inventory_item_id"`
	LocationID      int64     `json:"location_id"`
	Available       int       `json:"available"`
	LastChangeAt    time.Time `json:"last_change_at"`
	SyncBatchID     string    `json:"sync_batch_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpsertLevels writes a batch of levels in one bulk call with
// merge-on-conflict semantics keyed by (inventory_item_id, location_id).
// Every row is stamped with the owning run's id and a fresh updated_at.
// Repeating an upsert leaves exactly one row per key with the latest
// value; an earlier run's value is always overwritten. Empty input is a
// no-op returning 0.
func (g *VariantGateway) UpsertLevels(ctx context.Context, runID uuid.UUID, levels []reconcile.InventoryLevel) (int, error) {
	if len(levels) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([]levelRow, len(levels))
	for i, level := range levels {
		rows[i] = levelRow{
			InventoryItemID: level.InventoryItemID,
			LocationID:      level.LocationID,
			Available:       level.Available,
			LastChangeAt:    level.LastChangeAt,
			SyncBatchID:     runID.String(),
			UpdatedAt:       now,
		}
	}

	query := url.Values{}
	query.Set("on_conflict", "inventory_item_id,location_id")

	body, err := g.client.do(ctx, http.MethodPost, levelsTable, query,
		"resolution=merge-duplicates,return=representation", rows)
	if err != nil {
		return 0, fmt.Errorf("upsert inventory levels: %w", err)
	}

	var written []json.RawMessage
	if err := json.Unmarshal(body, &written); err != nil {
		return 0, fmt.Errorf("upsert inventory levels: parse response: %w", err)
	}
	return len(written), nil
}

// joinIDs renders ids for an in.(...) filter.
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
