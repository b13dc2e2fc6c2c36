package domain

import "time"

// SourcePriority chooses among candidate source locations (§3, §4.9).
type SourcePriority string

const (
	SourceFIFO          SourcePriority = "fifo"
	SourceSmallestFirst SourcePriority = "smallest_first"
)

// ReplenMethod sizes the generated ReplenTask (§3, §4.9).
type ReplenMethod string

const (
	ReplenCaseBreak ReplenMethod = "case_break"
	ReplenFullCase  ReplenMethod = "full_case"
	ReplenPalletDrop ReplenMethod = "pallet_drop"
)

// ReplenTriggeredBy records why a ReplenTask was created (§3).
type ReplenTriggeredBy string

const (
	TriggerMinMax   ReplenTriggeredBy = "min_max"
	TriggerManual   ReplenTriggeredBy = "manual"
	TriggerStockout ReplenTriggeredBy = "stockout"
	TriggerWave     ReplenTriggeredBy = "wave"
)

// ReplenTaskStatus is the §3 lifecycle: pending->assigned->in_progress->completed|cancelled.
type ReplenTaskStatus string

const (
	ReplenPending    ReplenTaskStatus = "pending"
	ReplenAssigned   ReplenTaskStatus = "assigned"
	ReplenInProgress ReplenTaskStatus = "in_progress"
	ReplenCompleted  ReplenTaskStatus = "completed"
	ReplenCancelled  ReplenTaskStatus = "cancelled"
)

type ReplenRule struct {
	ID                 ReplenRuleID   `db:"id"`
	ProductID          ProductID      `db:"product_id"`
	PickVariantID      VariantID      `db:"pick_variant_id"`
	SourceVariantID    VariantID      `db:"source_variant_id"`
	PickLocationType   LocationType   `db:"pick_location_type"`
	SourceLocationType LocationType   `db:"source_location_type"`
	SourcePriority     SourcePriority `db:"source_priority"`
	MinQty             int64          `db:"min_qty"`
	MaxQty             *int64         `db:"max_qty"`
	ReplenMethod       ReplenMethod   `db:"replen_method"`
	Priority           int            `db:"priority"` // 1 = highest
	Active             bool           `db:"active"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type ReplenTask struct {
	ID             ReplenTaskID      `db:"id"`
	RuleID         *ReplenRuleID     `db:"rule_id"`
	FromLocationID LocationID        `db:"from_location_id"`
	ToLocationID   LocationID        `db:"to_location_id"`
	VariantID      VariantID         `db:"variant_id"`
	QtySourceUnits int64             `db:"qty_source_units"`
	QtyTargetUnits int64             `db:"qty_target_units"`
	QtyCompleted   int64             `db:"qty_completed"`
	Status         ReplenTaskStatus  `db:"status"`
	TriggeredBy    ReplenTriggeredBy `db:"triggered_by"`
	Priority       int               `db:"priority"`
	Assignee       string            `db:"assignee"`
	CreatedAt      time.Time         `db:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"`
}

// TargetQty implements the §4.9 step 3 target computation: MaxQty if set,
// else enough to consume exactly one source unit.
func (r ReplenRule) TargetQty(unitsPerSourceVariant int64) int64 {
	if r.MaxQty != nil {
		return *r.MaxQty
	}
	return unitsPerSourceVariant
}

// ReplenCSVRow is one parsed row of the §4.9 bulk-import CSV. A missing SKU
// or a bad value is a warning, not a hard error — RowWarning records it while
// the rest of the import proceeds. SKUs are not checked against the catalog.
type ReplenCSVRow struct {
	RowNumber    int
	PickSKU      string
	SourceSKU    string
	MinQty       int64
	MaxQty       *int64
	ReplenMethod ReplenMethod
	RowWarning   string
}
