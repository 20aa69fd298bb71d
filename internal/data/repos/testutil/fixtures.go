package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/facility-backend/internal/domain/aggregates"
)

// IncidentPayload is a complete incident report create request.
func IncidentPayload(incidentID string) aggregates.Payload {
	return aggregates.NewPayload().
		Set("incident_id", incidentID).
		Set("title", "Slip in lobby").
		Set("incident_date", time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)).
		Set("severity", "medium").
		SetSingleton("site_details", map[string]any{"location": "Lobby", "building": "A"}).
		SetSingleton("classification", map[string]any{"category": "safety", "risk_level": "low"}).
		SetCollection("personnel_involved",
			map[string]any{"name": "Ana", "role": "guard"},
			map[string]any{"name": "Ben", "role": "cleaner"},
		).
		SetCollection("corrective_actions",
			map[string]any{"action": "Add wet-floor signs", "status": "pending"},
		)
}

// ActivityPayload builds an activity with one task per status given.
func ActivityPayload(name string, statuses ...string) aggregates.Payload {
	items := make([]map[string]any, 0, len(statuses))
	for i, s := range statuses {
		items = append(items, map[string]any{"title": "task", "status": s, "active": i%2 == 0})
	}
	return aggregates.NewPayload().Set("name", name).SetCollection("tasks", items...)
}

// UtilityPanelPayload builds a panel with a unique tag and optional serial number.
func UtilityPanelPayload(tag string, serial string) aggregates.Payload {
	p := aggregates.NewPayload().Set("tag_number", tag).Set("panel_name", "Main LT panel")
	if serial != "" {
		p = p.SetSingleton("specifications", map[string]any{"serial_number": serial})
	}
	return p
}

// UniqueTag returns a tag number that does not collide across test runs.
func UniqueTag(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
