package entity

import "time"

// Material is a catalog record referenced by style BOM lines. CostPerUnit
// feeds the cost engine; styles referencing a deleted material simply
// stop resolving it.
type Material struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	Unit        string    `json:"unit" gorm:"size:32;not null"`
	Stock       float64   `json:"stock" gorm:"type:decimal(15,4);not null;default:0"`
	CostPerUnit float64   `json:"cost_per_unit" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Material) TableName() string {
	return "materials"
}
