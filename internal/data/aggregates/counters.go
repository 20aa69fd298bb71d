package aggregates

import (
	"sort"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

// CounterSync recomputes derived counters of a root from its counted collection.
type CounterSync struct{}

// Resync counts the current children of rootID and stores each counter on the
// root. It must run in the same transaction as the child mutation.
func (CounterSync) Resync(tx *gorm.DB, t *domainagg.Type, rootID uuid.UUID) (map[string]int64, error) {
	c := t.Counters()
	if c == nil {
		return nil, nil
	}
	counts := make(map[string]int64, len(c.Fields))
	updates := make(map[string]any, len(c.Fields))
	for _, f := range c.Fields {
		q := tx.Table(c.Slot.Table.Name).Where(c.Slot.ForeignKey+" = ?", rootID)
		keys := make([]string, 0, len(f.Where))
		for k := range f.Where {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := f.Where[k]; v == nil {
				q = q.Where(k + " IS NULL")
			} else {
				q = q.Where(k+" = ?", v)
			}
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return nil, err
		}
		counts[f.Field] = n
		updates[f.Field] = n
	}
	if err := tx.Table(t.Root.Name).Where("id = ?", rootID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
