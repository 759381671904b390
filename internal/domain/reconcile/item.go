package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItemRef links a local product variant to the vendor's unit of
// stock tracking. Resolved once at run start and immutable for the run.
// Variants without a vendor inventory item are never represented here;
// the store gateway excludes them during resolution.
type InventoryItemRef struct {
	InventoryItemID int64  `json:"inventory_item_id"`
	ProductID       int64  `json:"product_id"`
	VariantID       int64  `json:"variant_id"`
	SKU             string `json:"sku"`
}

// InventoryLevel is one vendor-reported stock level for an (item, location)
// pair. Upserts are keyed by that pair with last-writer-wins semantics.
// Available may be negative when the vendor allows overselling.
type InventoryLevel struct {
	InventoryItemID int64     `json:"inventory_item_id"`
	LocationID      int64     `json:"location_id"`
	Available       int       `json:"available"`
	LastChangeAt    time.Time `json:"last_change_at"`
	SyncBatchID     uuid.UUID `json:"sync_batch_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}
