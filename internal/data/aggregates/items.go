package aggregates

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func (r *Repository) itemSlot(op string, t *domainagg.Type, slot string) (*domainagg.Slot, error) {
	s, ok := t.Collection(slot)
	if !ok {
		return nil, domainagg.Validationf(op, "%s has no collection %q", t.Name, slot)
	}
	return s, nil
}

// AddItem appends one item to the end of a collection.
func (r *Repository) AddItem(ctx context.Context, typeName, tenantID string, id uuid.UUID, slot string, item map[string]any) (map[string]any, error) {
	const op = "aggregate.item.add"
	var out map[string]any
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		s, err := r.itemSlot(op, t, slot)
		if err != nil {
			return err
		}
		values, err := t.NormalizeItem(slot, item)
		if err != nil {
			return err
		}
		if err := t.ValidateItem(slot, values); err != nil {
			return err
		}
		tx := dbc.DB(r.db)
		if err := lockRoot(tx, op, t, tenantID, id); err != nil {
			return err
		}

		var maxPos sql.NullInt64
		if err := tx.Table(s.Table.Name).
			Select("MAX(" + domainagg.ColumnPosition + ")").
			Where(s.ForeignKey+" = ?", id).
			Row().Scan(&maxPos); err != nil {
			return err
		}
		position := 0
		if maxPos.Valid {
			position = int(maxPos.Int64) + 1
		}
		itemID, err := insertSlotRowID(tx, s, id, values, position)
		if err != nil {
			return err
		}
		if out, err = r.afterItemWrite(tx, t, s, id, itemID); err != nil {
			return err
		}
		return nil
	}, itemAttrs(typeName, tenantID, id, slot)...)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, typeName, tenantID, id)
	return out, nil
}

// UpdateItem merges values into one existing item. Absent columns keep their
// stored value.
func (r *Repository) UpdateItem(ctx context.Context, typeName, tenantID string, id uuid.UUID, slot string, itemID uuid.UUID, item map[string]any) (map[string]any, error) {
	const op = "aggregate.item.update"
	var out map[string]any
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		s, err := r.itemSlot(op, t, slot)
		if err != nil {
			return err
		}
		values, err := t.NormalizeItem(slot, item)
		if err != nil {
			return err
		}
		if err := t.ValidateItem(slot, values); err != nil {
			return err
		}
		tx := dbc.DB(r.db)
		if err := lockRoot(tx, op, t, tenantID, id); err != nil {
			return err
		}

		var n int64
		if err := tx.Table(s.Table.Name).Where("id = ? AND "+s.ForeignKey+" = ?", itemID, id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domainagg.NotFoundf(op, "%s item %s not found", slot, itemID)
		}
		if len(values) > 0 {
			if err := tx.Table(s.Table.Name).Where("id = ?", itemID).Updates(cloneValues(values)).Error; err != nil {
				return err
			}
		}
		if out, err = r.afterItemWrite(tx, t, s, id, itemID); err != nil {
			return err
		}
		return nil
	}, itemAttrs(typeName, tenantID, id, slot)...)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, typeName, tenantID, id)
	return out, nil
}

func (r *Repository) RemoveItem(ctx context.Context, typeName, tenantID string, id uuid.UUID, slot string, itemID uuid.UUID) error {
	const op = "aggregate.item.remove"
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		s, err := r.itemSlot(op, t, slot)
		if err != nil {
			return err
		}
		tx := dbc.DB(r.db)
		if err := lockRoot(tx, op, t, tenantID, id); err != nil {
			return err
		}
		res := tx.Where("id = ? AND "+s.ForeignKey+" = ?", itemID, id).Delete(s.Table.New())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainagg.NotFoundf(op, "%s item %s not found", slot, itemID)
		}
		_, err = r.afterItemWrite(tx, t, s, id, uuid.Nil)
		return err
	}, itemAttrs(typeName, tenantID, id, slot)...)
	if err != nil {
		return err
	}
	r.evict(ctx, typeName, tenantID, id)
	return nil
}

// afterItemWrite touches the root, resyncs counters fed by s and reads the item
// back when itemID is set.
func (r *Repository) afterItemWrite(tx *gorm.DB, t *domainagg.Type, s *domainagg.Slot, rootID, itemID uuid.UUID) (map[string]any, error) {
	if err := tx.Table(t.Root.Name).Where("id = ?", rootID).Update(domainagg.ColumnUpdatedAt, r.now()).Error; err != nil {
		return nil, err
	}
	if t.CountsSlot(s.Name) {
		if _, err := r.counters.Resync(tx, t, rootID); err != nil {
			return nil, err
		}
	}
	if itemID == uuid.Nil {
		return nil, nil
	}
	dest := s.Table.NewSlice()
	if err := tx.Where("id = ?", itemID).Limit(1).Find(dest).Error; err != nil {
		return nil, err
	}
	rows := s.Table.Rows(dest)
	if len(rows) == 0 {
		return nil, NotFoundError("item vanished after write")
	}
	return slotRow(s, rows[0]), nil
}

func itemAttrs(typeName, tenantID string, id uuid.UUID, slot string) []attribute.KeyValue {
	return append(spanAttrs(typeName, tenantID, id), attribute.String("aggregate.slot", slot))
}
