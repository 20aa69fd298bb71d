package facility

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IncidentReport is the root of an incident aggregate. incident_id is the
// human-facing report number and is unique per property.
type IncidentReport struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string    `gorm:"type:text;not null;index" json:"property_id"`

	IncidentID   string     `gorm:"type:text;not null" json:"incident_id"`
	Title        string     `gorm:"type:text;not null" json:"title"`
	IncidentDate *time.Time `json:"incident_date,omitempty"`
	Severity     string     `gorm:"type:text;not null;default:'low'" json:"severity"`
	Status       string     `gorm:"type:text;not null;default:'open'" json:"status"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (IncidentReport) TableName() string { return "incident_report" }

type IncidentSiteDetails struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`

	Location          *string `gorm:"type:text" json:"location,omitempty"`
	Building          *string `gorm:"type:text" json:"building,omitempty"`
	Floor             *string `gorm:"type:text" json:"floor,omitempty"`
	Area              *string `gorm:"type:text" json:"area,omitempty"`
	WeatherConditions *string `gorm:"type:text" json:"weather_conditions,omitempty"`
}

func (IncidentSiteDetails) TableName() string { return "incident_site_details" }

type IncidentClassification struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`

	Category     *string `gorm:"type:text" json:"category,omitempty"`
	SubCategory  *string `gorm:"type:text" json:"sub_category,omitempty"`
	RiskLevel    *string `gorm:"type:text" json:"risk_level,omitempty"`
	IsReportable *bool   `json:"is_reportable,omitempty"`
}

func (IncidentClassification) TableName() string { return "incident_classification" }

// IncidentEvidence holds references to stored files; the files themselves live
// in external storage.
type IncidentEvidence struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`

	Photos    *datatypes.JSON `json:"photos,omitempty"`
	Documents *datatypes.JSON `json:"documents,omitempty"`
	Notes     *string         `gorm:"type:text" json:"notes,omitempty"`
}

func (IncidentEvidence) TableName() string { return "incident_evidence" }

type IncidentSignOff struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`

	PreparedBy *string    `gorm:"type:text" json:"prepared_by,omitempty"`
	ReviewedBy *string    `gorm:"type:text" json:"reviewed_by,omitempty"`
	ApprovedBy *string    `gorm:"type:text" json:"approved_by,omitempty"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`
}

func (IncidentSignOff) TableName() string { return "incident_sign_off" }

type IncidentPersonnel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;index" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`
	Position         int             `gorm:"not null;default:0" json:"position"`

	Name              string  `gorm:"type:text;not null" json:"name"`
	Role              *string `gorm:"type:text" json:"role,omitempty"`
	EmployeeID        *string `gorm:"type:text" json:"employee_id,omitempty"`
	InjuryDescription *string `gorm:"type:text" json:"injury_description,omitempty"`
}

func (IncidentPersonnel) TableName() string { return "incident_personnel" }

type IncidentCorrectiveAction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;index" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`
	Position         int             `gorm:"not null;default:0" json:"position"`

	Action      string     `gorm:"type:text;not null" json:"action"`
	Responsible *string    `gorm:"type:text" json:"responsible,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `gorm:"type:text;not null;default:'pending'" json:"status"`
}

func (IncidentCorrectiveAction) TableName() string { return "incident_corrective_action" }

type IncidentWitness struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentReportID uuid.UUID       `gorm:"type:uuid;not null;index" json:"incident_report_id"`
	IncidentReport   *IncidentReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:IncidentReportID;references:ID" json:"-"`
	Position         int             `gorm:"not null;default:0" json:"position"`

	Name      string  `gorm:"type:text;not null" json:"name"`
	Contact   *string `gorm:"type:text" json:"contact,omitempty"`
	Statement *string `gorm:"type:text" json:"statement,omitempty"`
}

func (IncidentWitness) TableName() string { return "incident_witness" }
