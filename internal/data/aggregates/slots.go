package aggregates

import (
	"github.com/google/uuid"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

// writeSingleton applies one singleton payload entry: nil deletes the row, a map
// merges into the existing row or inserts a new one.
func writeSingleton(tx *gorm.DB, s *domainagg.Slot, rootID uuid.UUID, values map[string]any) error {
	if values == nil {
		return deleteSlotRows(tx, s, rootID)
	}
	var existing []uuid.UUID
	if err := tx.Table(s.Table.Name).Where(s.ForeignKey+" = ?", rootID).Limit(1).Pluck(domainagg.ColumnID, &existing).Error; err != nil {
		return err
	}
	if len(existing) == 0 {
		return insertSlotRow(tx, s, rootID, values, 0)
	}
	if len(values) == 0 {
		return nil
	}
	return tx.Table(s.Table.Name).Where("id = ?", existing[0]).Updates(cloneValues(values)).Error
}

// replaceCollection swaps every stored item of s for items, keeping payload order.
func replaceCollection(tx *gorm.DB, s *domainagg.Slot, rootID uuid.UUID, items []map[string]any) error {
	if err := deleteSlotRows(tx, s, rootID); err != nil {
		return err
	}
	for i, item := range items {
		if err := insertSlotRow(tx, s, rootID, item, i); err != nil {
			return err
		}
	}
	return nil
}

func insertSlotRow(tx *gorm.DB, s *domainagg.Slot, rootID uuid.UUID, values map[string]any, position int) error {
	_, err := insertSlotRowID(tx, s, rootID, values, position)
	return err
}

func insertSlotRowID(tx *gorm.DB, s *domainagg.Slot, rootID uuid.UUID, values map[string]any, position int) (uuid.UUID, error) {
	row := cloneValues(values)
	id := uuid.New()
	row[domainagg.ColumnID] = id
	row[s.ForeignKey] = rootID
	if s.Kind == domainagg.SlotCollection {
		row[domainagg.ColumnPosition] = position
	}
	if err := tx.Model(s.Table.New()).Create(row).Error; err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func deleteSlotRows(tx *gorm.DB, s *domainagg.Slot, rootID uuid.UUID) error {
	return tx.Where(s.ForeignKey+" = ?", rootID).Delete(s.Table.New()).Error
}

func cloneValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+3)
	for k, v := range in {
		out[k] = v
	}
	return out
}
