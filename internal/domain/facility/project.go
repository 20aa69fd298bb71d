package facility

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string    `gorm:"type:text;not null;index" json:"property_id"`

	ProjectCode string     `gorm:"type:text;not null" json:"project_code"`
	Name        string     `gorm:"type:text;not null" json:"name"`
	Status      string     `gorm:"type:text;not null;default:'planned'" json:"status"`
	Budget      *float64   `json:"budget,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	TotalMilestones     int `gorm:"not null;default:0" json:"total_milestones"`
	CompletedMilestones int `gorm:"not null;default:0" json:"completed_milestones"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string { return "project" }

type ProjectSignOff struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"-"`

	ClosedBy *string    `gorm:"type:text" json:"closed_by,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	Remarks  *string    `gorm:"type:text" json:"remarks,omitempty"`
}

func (ProjectSignOff) TableName() string { return "project_sign_off" }

type ProjectApproval struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"-"`
	Position  int       `gorm:"not null;default:0" json:"position"`

	Approver  string     `gorm:"type:text;not null" json:"approver"`
	Decision  string     `gorm:"type:text;not null;default:'pending'" json:"decision"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	Comments  *string    `gorm:"type:text" json:"comments,omitempty"`
}

func (ProjectApproval) TableName() string { return "project_approval" }

type ProjectMilestone struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"-"`
	Position  int       `gorm:"not null;default:0" json:"position"`

	Title     string     `gorm:"type:text;not null" json:"title"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Completed bool       `gorm:"not null;default:false" json:"completed"`
}

func (ProjectMilestone) TableName() string { return "project_milestone" }
