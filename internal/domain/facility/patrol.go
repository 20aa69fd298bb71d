package facility

import (
	"time"

	"github.com/google/uuid"
)

type PatrolRound struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string    `gorm:"type:text;not null;index" json:"property_id"`

	RoundCode string     `gorm:"type:text;not null" json:"round_code"`
	GuardName string     `gorm:"type:text;not null" json:"guard_name"`
	Shift     string     `gorm:"type:text;not null" json:"shift"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Status    string     `gorm:"type:text;not null;default:'in_progress'" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PatrolRound) TableName() string { return "patrol_round" }

type PatrolSignOff struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PatrolRoundID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"patrol_round_id"`
	PatrolRound   *PatrolRound `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatrolRoundID;references:ID" json:"-"`

	SupervisorName *string    `gorm:"type:text" json:"supervisor_name,omitempty"`
	Remarks        *string    `gorm:"type:text" json:"remarks,omitempty"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
}

func (PatrolSignOff) TableName() string { return "patrol_sign_off" }

type PatrolCheckpoint struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PatrolRoundID uuid.UUID    `gorm:"type:uuid;not null;index" json:"patrol_round_id"`
	PatrolRound   *PatrolRound `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatrolRoundID;references:ID" json:"-"`
	Position      int          `gorm:"not null;default:0" json:"position"`

	CheckpointName string     `gorm:"type:text;not null" json:"checkpoint_name"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
	Status         string     `gorm:"type:text;not null;default:'pending'" json:"status"`
	Remarks        *string    `gorm:"type:text" json:"remarks,omitempty"`
}

func (PatrolCheckpoint) TableName() string { return "patrol_checkpoint" }
