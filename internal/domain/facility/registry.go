package facility

import (
	"github.com/yungbote/facility-backend/internal/domain/aggregates"
)

const (
	TypeIncidentReport = "incident_report"
	TypeActivity       = "activity"
	TypePatrolRound    = "patrol_round"
	TypeUtilityPanel   = "utility_panel"
	TypeStpLog         = "stp_log"
	TypeProject        = "project"
)

// Specs returns every facility aggregate shape.
func Specs() []aggregates.TypeSpec {
	return []aggregates.TypeSpec{
		incidentReportSpec(),
		activitySpec(),
		patrolRoundSpec(),
		utilityPanelSpec(),
		stpLogSpec(),
		projectSpec(),
	}
}

// NewRegistry compiles every facility shape. It panics on a malformed shape so a
// broken build never starts serving.
func NewRegistry() *aggregates.Registry {
	reg := aggregates.NewRegistry()
	for _, spec := range Specs() {
		reg.MustRegister(spec)
	}
	return reg
}

// Models returns every root and slot model in dependency order for migrations.
func Models() []any {
	var out []any
	for _, spec := range Specs() {
		out = append(out, spec.Root)
		for _, s := range spec.Singletons {
			out = append(out, s.Model)
		}
		for _, c := range spec.Collections {
			out = append(out, c.Model)
		}
	}
	return out
}

func incidentReportSpec() aggregates.TypeSpec {
	const fk = "incident_report_id"
	return aggregates.TypeSpec{
		Name:     TypeIncidentReport,
		Root:     &IncidentReport{},
		Required: []string{"incident_id", "title"},
		Enums: map[string][]string{
			"severity":                  {"low", "medium", "high", "critical"},
			"status":                    {"open", "investigating", "closed"},
			"corrective_actions.status": {"pending", "in_progress", "done"},
		},
		Filters: []string{"incident_id", "status", "severity"},
		Singletons: []aggregates.SingletonSpec{
			{Name: "site_details", Model: &IncidentSiteDetails{}, ForeignKey: fk},
			{Name: "classification", Model: &IncidentClassification{}, ForeignKey: fk},
			{Name: "evidence_attachments", Model: &IncidentEvidence{}, ForeignKey: fk},
			{Name: "sign_off", Model: &IncidentSignOff{}, ForeignKey: fk},
		},
		Collections: []aggregates.CollectionSpec{
			{Name: "personnel_involved", Model: &IncidentPersonnel{}, ForeignKey: fk},
			{Name: "corrective_actions", Model: &IncidentCorrectiveAction{}, ForeignKey: fk},
			{Name: "witnesses", Model: &IncidentWitness{}, ForeignKey: fk},
		},
		UniqueKeys: []aggregates.UniqueKeySpec{
			{Name: "incident_id", Column: "incident_id", Scope: aggregates.ScopeTenant},
		},
	}
}

func activitySpec() aggregates.TypeSpec {
	return aggregates.TypeSpec{
		Name:     TypeActivity,
		Root:     &Activity{},
		Required: []string{"name"},
		Enums: map[string][]string{
			"status":       {"scheduled", "in_progress", "completed", "cancelled"},
			"tasks.status": {"pending", "in_progress", "completed"},
		},
		Filters: []string{"status", "category"},
		Collections: []aggregates.CollectionSpec{
			{Name: "tasks", Model: &ActivityTask{}, ForeignKey: "activity_id", Mode: aggregates.SyncReplace},
		},
		Counters: &aggregates.CounterSpec{
			Collection: "tasks",
			Fields: []aggregates.CounterField{
				{Field: "total_tasks"},
				{Field: "active_tasks", Where: map[string]any{"active": true}},
				{Field: "completed_tasks", Where: map[string]any{"status": "completed"}},
				{Field: "pending_tasks", Where: map[string]any{"status": "pending"}},
			},
		},
	}
}

func patrolRoundSpec() aggregates.TypeSpec {
	const fk = "patrol_round_id"
	return aggregates.TypeSpec{
		Name:     TypePatrolRound,
		Root:     &PatrolRound{},
		Required: []string{"round_code", "guard_name", "shift"},
		Enums: map[string][]string{
			"shift":              {"morning", "evening", "night"},
			"status":             {"in_progress", "completed", "missed"},
			"checkpoints.status": {"pending", "ok", "issue", "skipped"},
		},
		Filters: []string{"round_code", "shift", "status"},
		Singletons: []aggregates.SingletonSpec{
			{Name: "sign_off", Model: &PatrolSignOff{}, ForeignKey: fk},
		},
		Collections: []aggregates.CollectionSpec{
			{Name: "checkpoints", Model: &PatrolCheckpoint{}, ForeignKey: fk},
		},
	}
}

func utilityPanelSpec() aggregates.TypeSpec {
	const fk = "utility_panel_id"
	return aggregates.TypeSpec{
		Name:     TypeUtilityPanel,
		Root:     &UtilityPanel{},
		Required: []string{"tag_number", "panel_name"},
		Enums: map[string][]string{
			"panel_type": {"main", "distribution", "lighting", "power", "ups"},
		},
		Filters: []string{"tag_number", "panel_type"},
		Singletons: []aggregates.SingletonSpec{
			{Name: "specifications", Model: &UtilityPanelSpecification{}, ForeignKey: fk},
		},
		Collections: []aggregates.CollectionSpec{
			{Name: "readings", Model: &UtilityPanelReading{}, ForeignKey: fk},
		},
		UniqueKeys: []aggregates.UniqueKeySpec{
			{Name: "tag_number", Column: "tag_number", Scope: aggregates.ScopeGlobal},
			{Name: "serial_number", Slot: "specifications", Column: "serial_number", Scope: aggregates.ScopeGlobal},
		},
	}
}

func stpLogSpec() aggregates.TypeSpec {
	return aggregates.TypeSpec{
		Name:     TypeStpLog,
		Root:     &StpLog{},
		Required: []string{"log_date", "plant_name", "consumption_type"},
		Enums: map[string][]string{
			"consumption_type": {ConsumptionDomestic, ConsumptionFlushing, ConsumptionLandscaping, ConsumptionCoolingTower},
		},
		Filters: []string{"plant_name", "consumption_type", "log_date"},
		Singletons: []aggregates.SingletonSpec{
			{Name: "quality", Model: &StpQuality{}, ForeignKey: "stp_log_id"},
		},
		Collections: []aggregates.CollectionSpec{
			{Name: "chemicals", Model: &StpChemical{}, ForeignKey: "stp_log_id"},
		},
	}
}

func projectSpec() aggregates.TypeSpec {
	const fk = "project_id"
	return aggregates.TypeSpec{
		Name:     TypeProject,
		Root:     &Project{},
		Required: []string{"project_code", "name"},
		Enums: map[string][]string{
			"status":             {"planned", "active", "on_hold", "completed"},
			"approvals.decision": {"pending", "approved", "rejected"},
		},
		Filters: []string{"project_code", "status"},
		Singletons: []aggregates.SingletonSpec{
			{Name: "sign_off", Model: &ProjectSignOff{}, ForeignKey: fk},
		},
		Collections: []aggregates.CollectionSpec{
			{Name: "approvals", Model: &ProjectApproval{}, ForeignKey: fk},
			{Name: "milestones", Model: &ProjectMilestone{}, ForeignKey: fk},
		},
		UniqueKeys: []aggregates.UniqueKeySpec{
			{Name: "project_code", Column: "project_code", Scope: aggregates.ScopeTenant},
		},
		Counters: &aggregates.CounterSpec{
			Collection: "milestones",
			Fields: []aggregates.CounterField{
				{Field: "total_milestones"},
				{Field: "completed_milestones", Where: map[string]any{"completed": true}},
			},
		},
	}
}
