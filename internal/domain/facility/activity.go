package facility

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a scheduled facility activity. Its task counters are derived from
// the tasks collection and are never written by clients.
type Activity struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string    `gorm:"type:text;not null;index" json:"property_id"`

	Name        string     `gorm:"type:text;not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Category    *string    `gorm:"type:text" json:"category,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `gorm:"type:text;not null;default:'scheduled'" json:"status"`

	TotalTasks     int `gorm:"not null;default:0" json:"total_tasks"`
	ActiveTasks    int `gorm:"not null;default:0" json:"active_tasks"`
	CompletedTasks int `gorm:"not null;default:0" json:"completed_tasks"`
	PendingTasks   int `gorm:"not null;default:0" json:"pending_tasks"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Activity) TableName() string { return "activity" }

type ActivityTask struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;index" json:"activity_id"`
	Activity   *Activity `gorm:"constraint:OnDelete:CASCADE;foreignKey:ActivityID;references:ID" json:"-"`
	Position   int       `gorm:"not null;default:0" json:"position"`

	Title    string     `gorm:"type:text;not null" json:"title"`
	Status   string     `gorm:"type:text;not null;default:'pending'" json:"status"`
	Active   bool       `gorm:"not null;default:true" json:"active"`
	Assignee *string    `gorm:"type:text" json:"assignee,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

func (ActivityTask) TableName() string { return "activity_task" }
