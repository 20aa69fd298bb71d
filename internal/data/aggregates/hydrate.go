package aggregates

import (
	"time"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

// documentFromRow splits a root row into the document header and its fields.
func documentFromRow(t *domainagg.Type, row map[string]any) *domainagg.Document {
	doc := domainagg.NewDocument(t.Name)
	for k, v := range row {
		switch k {
		case domainagg.ColumnID:
			doc.ID, _ = v.(uuid.UUID)
		case domainagg.ColumnPropertyID:
			doc.PropertyID, _ = v.(string)
		case domainagg.ColumnCreatedAt:
			doc.CreatedAt, _ = v.(time.Time)
		case domainagg.ColumnUpdatedAt:
			doc.UpdatedAt, _ = v.(time.Time)
		default:
			doc.Fields[k] = v
		}
	}
	return doc
}

// hydrate loads every slot of docs with one query per slot.
func hydrate(db *gorm.DB, t *domainagg.Type, docs []*domainagg.Document) error {
	slots := make([]*domainagg.Slot, 0, len(t.Singletons())+len(t.Collections()))
	slots = append(slots, t.Singletons()...)
	slots = append(slots, t.Collections()...)
	return hydrateSlots(db, docs, slots)
}

// unloadedSlots lists the slots of t that doc has not loaded.
func unloadedSlots(t *domainagg.Type, doc *domainagg.Document) []*domainagg.Slot {
	var out []*domainagg.Slot
	for _, group := range [][]*domainagg.Slot{t.Singletons(), t.Collections()} {
		for _, s := range group {
			if !doc.IsLoaded(s.Name) {
				out = append(out, s)
			}
		}
	}
	return out
}

func hydrateSlots(db *gorm.DB, docs []*domainagg.Document, slots []*domainagg.Slot) error {
	if len(docs) == 0 || len(slots) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	for _, s := range slots {
		byRoot, err := loadSlot(db, s, ids)
		if err != nil {
			return err
		}
		for _, d := range docs {
			rows := byRoot[d.ID]
			if s.Kind == domainagg.SlotSingleton {
				var row map[string]any
				if len(rows) > 0 {
					row = rows[0]
				}
				d.Singletons[s.Name] = row
			} else {
				if rows == nil {
					rows = []map[string]any{}
				}
				d.Collections[s.Name] = rows
			}
			d.MarkLoaded(s.Name)
		}
	}
	return nil
}

func loadSlot(db *gorm.DB, s *domainagg.Slot, rootIDs []uuid.UUID) (map[uuid.UUID][]map[string]any, error) {
	q := db.Where(s.ForeignKey+" IN ?", rootIDs)
	if s.Kind == domainagg.SlotCollection {
		q = q.Order(domainagg.ColumnPosition).Order(domainagg.ColumnID)
	} else {
		q = q.Order(domainagg.ColumnID)
	}
	dest := s.Table.NewSlice()
	if err := q.Find(dest).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]map[string]any, len(rootIDs))
	for _, row := range s.Table.Rows(dest) {
		rootID, _ := row[s.ForeignKey].(uuid.UUID)
		out[rootID] = append(out[rootID], slotRow(s, row))
	}
	return out, nil
}

// slotRow drops the columns the engine owns on a child row, keeping its id.
func slotRow(s *domainagg.Slot, row map[string]any) map[string]any {
	delete(row, s.ForeignKey)
	if s.Kind == domainagg.SlotCollection {
		delete(row, domainagg.ColumnPosition)
	}
	return row
}
