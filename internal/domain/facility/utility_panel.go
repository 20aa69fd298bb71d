package facility

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UtilityPanel is an electrical panel. tag_number is painted on the hardware and
// must be unique across every property.
type UtilityPanel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string    `gorm:"type:text;not null;index" json:"property_id"`

	TagNumber string  `gorm:"type:text;not null" json:"tag_number"`
	PanelName string  `gorm:"type:text;not null" json:"panel_name"`
	Location  *string `gorm:"type:text" json:"location,omitempty"`
	PanelType string  `gorm:"type:text;not null;default:'distribution'" json:"panel_type"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UtilityPanel) TableName() string { return "utility_panel" }

type UtilityPanelSpecification struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UtilityPanelID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"utility_panel_id"`
	UtilityPanel   *UtilityPanel `gorm:"constraint:OnDelete:CASCADE;foreignKey:UtilityPanelID;references:ID" json:"-"`

	Manufacturer  *string  `gorm:"type:text" json:"manufacturer,omitempty"`
	SerialNumber  *string  `gorm:"type:text" json:"serial_number,omitempty"`
	RatedVoltage  *float64 `json:"rated_voltage,omitempty"`
	RatedCurrent  *float64 `json:"rated_current,omitempty"`
	NumberOfWays  *int     `json:"number_of_ways,omitempty"`
	InstalledYear *int     `json:"installed_year,omitempty"`
}

func (UtilityPanelSpecification) TableName() string { return "utility_panel_specification" }

type UtilityPanelReading struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UtilityPanelID uuid.UUID     `gorm:"type:uuid;not null;index" json:"utility_panel_id"`
	UtilityPanel   *UtilityPanel `gorm:"constraint:OnDelete:CASCADE;foreignKey:UtilityPanelID;references:ID" json:"-"`
	Position       int           `gorm:"not null;default:0" json:"position"`

	ReadingAt *time.Time      `json:"reading_at,omitempty"`
	VoltageR  *float64        `json:"voltage_r,omitempty"`
	VoltageY  *float64        `json:"voltage_y,omitempty"`
	VoltageB  *float64        `json:"voltage_b,omitempty"`
	LoadKw    *float64        `json:"load_kw,omitempty"`
	Remarks   *string         `gorm:"type:text" json:"remarks,omitempty"`
	Extra     *datatypes.JSON `json:"extra,omitempty"`
}

func (UtilityPanelReading) TableName() string { return "utility_panel_reading" }
