package facility

import (
	"time"

	"github.com/google/uuid"
)

// Water uses an STP log may record treated water against.
const (
	ConsumptionDomestic     = "domestic"
	ConsumptionFlushing     = "flushing"
	ConsumptionLandscaping  = "landscaping"
	ConsumptionCoolingTower = "cooling_tower"
)

// StpLog is a daily sewage treatment plant log.
type StpLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string    `gorm:"type:text;not null;index" json:"property_id"`

	LogDate         time.Time `gorm:"not null" json:"log_date"`
	PlantName       string    `gorm:"type:text;not null" json:"plant_name"`
	ConsumptionType string    `gorm:"type:text;not null" json:"consumption_type"`
	QuantityKl      float64   `gorm:"not null;default:0" json:"quantity_kl"`
	OperatorName    *string   `gorm:"type:text" json:"operator_name,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StpLog) TableName() string { return "stp_log" }

type StpQuality struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StpLogID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"stp_log_id"`
	StpLog   *StpLog   `gorm:"constraint:OnDelete:CASCADE;foreignKey:StpLogID;references:ID" json:"-"`

	Ph  *float64 `json:"ph,omitempty"`
	Bod *float64 `json:"bod,omitempty"`
	Cod *float64 `json:"cod,omitempty"`
	Tss *float64 `json:"tss,omitempty"`
}

func (StpQuality) TableName() string { return "stp_quality" }

type StpChemical struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StpLogID uuid.UUID `gorm:"type:uuid;not null;index" json:"stp_log_id"`
	StpLog   *StpLog   `gorm:"constraint:OnDelete:CASCADE;foreignKey:StpLogID;references:ID" json:"-"`
	Position int       `gorm:"not null;default:0" json:"position"`

	ChemicalName string  `gorm:"type:text;not null" json:"chemical_name"`
	QuantityKg   float64 `gorm:"not null;default:0;check:chk_stp_chemical_quantity,quantity_kg >= 0" json:"quantity_kg"`
}

func (StpChemical) TableName() string { return "stp_chemical" }
