package models

import (
	"time"

	"gorm.io/datatypes"
)

// PriceRun is the audit row written after each pricing pass: how many
// players were priced, the resulting distribution, and a snapshot of the
// parameters the run used.
type PriceRun struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	RanAt       time.Time      `gorm:"not null" json:"ran_at"`
	PlayerCount int            `json:"player_count"`
	PricedCount int            `json:"priced_count"`
	MeanPrice   float64        `json:"mean_price"`
	MinPrice    float64        `json:"min_price"`
	MaxPrice    float64        `json:"max_price"`
	Params      datatypes.JSON `json:"params"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (PriceRun) TableName() string {
	return "price_run"
}
