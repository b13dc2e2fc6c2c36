package domain

import "time"

// WaveStatus tracks a pick wave's progress.
type WaveStatus string

const (
	WaveOpen      WaveStatus = "open"
	WaveInProgress WaveStatus = "in_progress"
	WaveCompleted WaveStatus = "completed"
	WaveCancelled WaveStatus = "cancelled"
)

// PickMode is the per-operator setting of §4.8.
type PickMode string

const (
	PickSingle PickMode = "single"
	PickBatch  PickMode = "batch"
)

// PickTaskStatus is the lifecycle of an individual pick task.
type PickTaskStatus string

const (
	TaskPending   PickTaskStatus = "pending"
	TaskAssigned  PickTaskStatus = "assigned"
	TaskPicked    PickTaskStatus = "picked"
	TaskShortPick PickTaskStatus = "short_pick"
	TaskException PickTaskStatus = "exception"
)

type PickWave struct {
	ID          WaveID     `db:"id"`
	WarehouseID WarehouseID `db:"warehouse_id"`
	Mode        PickMode   `db:"mode"`
	Status      WaveStatus `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// PickTask is a (variant, source location, qty, target order) 4-tuple
// (§3). For combined groups the task references the parent order.
type PickTask struct {
	ID             TaskID         `db:"id"`
	WaveID         WaveID         `db:"wave_id"`
	OrderID        SalesOrderID   `db:"order_id"`
	OrderLineID    SOLineID       `db:"order_line_id"`
	VariantID      VariantID      `db:"variant_id"`
	SourceLocationID LocationID   `db:"source_location_id"`
	RequestedQty   int64          `db:"requested_qty"`
	PickedQty      int64          `db:"picked_qty"`
	SequenceNumber int            `db:"sequence_number"`
	Assignee       string         `db:"assignee"`
	Status         PickTaskStatus `db:"status"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// WaveSortKey is the stable 3-key sort of §4.8: (1) warehouse zone
// sequence, (2) aisle/bin natural order of source location code, (3)
// order priority descending. ZoneSequence and LocationCode are resolved
// by the caller from the Location row; Priority comes from the order.
type WaveSortKey struct {
	ZoneSequence  int
	LocationCode  string
	PriorityRank  int
	TaskIndex     int // stable tiebreaker, original input order
}

// Less implements the §4.8 stable ordering. Priority is descending; the
// other two keys are ascending.
func (k WaveSortKey) Less(other WaveSortKey) bool {
	if k.ZoneSequence != other.ZoneSequence {
		return k.ZoneSequence < other.ZoneSequence
	}
	if k.LocationCode != other.LocationCode {
		return naturalLess(k.LocationCode, other.LocationCode)
	}
	if k.PriorityRank != other.PriorityRank {
		return k.PriorityRank > other.PriorityRank
	}
	return k.TaskIndex < other.TaskIndex
}

// naturalLess compares bin codes the way a picker reads them: runs of
// digits compare numerically rather than lexically, so "A2" sorts before
// "A10".
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			na, ni := scanNumber(a, i)
			nb, nj := scanNumber(b, j)
			if na != nb {
				return na < nb
			}
			i, j = ni, nj
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func scanNumber(s string, i int) (n int, next int) {
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + int(s[i]-'0')
		i++
	}
	return n, i
}
