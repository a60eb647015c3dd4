package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Style workflow statuses. Only the first four are produced by the
// implemented transitions; the rest are reserved for the production
// planning rollout.
const (
	StyleStatusDraft            = "DRAFT"
	StyleStatusSentToAccounting = "SENT_TO_ACCOUNTING"
	StyleStatusCostEstimated    = "COST_ESTIMATED"
	StyleStatusCostApproved     = "COST_APPROVED"
	StyleStatusReadyForPlanning = "READY_FOR_PLANNING"
	StyleStatusInProduction     = "IN_PRODUCTION"
	StyleStatusDone             = "DONE"
	StyleStatusCancelled        = "CANCELLED"
)

// styleStatusLabels maps a workflow status to its display label.
var styleStatusLabels = map[string]string{
	StyleStatusDraft:            "Nháp",
	StyleStatusSentToAccounting: "Chờ Duyệt Giá",
	StyleStatusCostEstimated:    "Đã Dự Trù",
	StyleStatusCostApproved:     "Đã Duyệt Giá",
	StyleStatusReadyForPlanning: "Sẵn Sàng SX",
	StyleStatusInProduction:     "Đang Sản Xuất",
	StyleStatusDone:             "Hoàn Thành",
	StyleStatusCancelled:        "Đã Hủy",
}

// StyleStatusLabel returns the display label for a status, falling back
// to the raw status string.
func StyleStatusLabel(status string) string {
	if label, ok := styleStatusLabels[status]; ok {
		return label
	}
	return status
}

// IsValidStyleStatus reports whether status is one of the declared
// workflow statuses.
func IsValidStyleStatus(status string) bool {
	_, ok := styleStatusLabels[status]
	return ok
}

// BOMItem is one material line owned by a style.
type BOMItem struct {
	ID         string  `json:"id"`
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	WasteRate  float64 `json:"waste_rate"`
}

// BOMItems is stored as a JSONB column on the style row.
type BOMItems []BOMItem

func (b BOMItems) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return json.Marshal(b)
}

func (b *BOMItems) Scan(value interface{}) error {
	if value == nil {
		*b = BOMItems{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into BOMItems", value)
	}
	return json.Unmarshal(bytes, b)
}

// RoutingStep is one production operation in a style's routing sequence.
// Order within the slice is the production order.
type RoutingStep struct {
	ID        string  `json:"id"`
	Operation string  `json:"operation"`
	Minutes   float64 `json:"minutes"`
	LaborRate float64 `json:"labor_rate"`
}

// RoutingSteps is stored as a JSONB column on the style row.
type RoutingSteps []RoutingStep

func (r RoutingSteps) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return json.Marshal(r)
}

func (r *RoutingSteps) Scan(value interface{}) error {
	if value == nil {
		*r = RoutingSteps{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into RoutingSteps", value)
	}
	return json.Unmarshal(bytes, r)
}

// Style is the garment style aggregate. The BOM and routing collections
// live on the row itself so a save writes the whole aggregate at once;
// Version backs the optimistic save check.
type Style struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Code        string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name        string `json:"name" gorm:"size:128;not null"`
	Description string `json:"description" gorm:"type:text"`
	Image       string `json:"image" gorm:"size:512"`
	Status      string `json:"status" gorm:"size:32;not null;default:DRAFT;index"`

	BOM     BOMItems     `json:"bom" gorm:"type:jsonb"`
	Routing RoutingSteps `json:"routing" gorm:"type:jsonb"`

	// Derived by the cost engine on every BOM/routing mutation.
	EstimatedCost float64 `json:"estimated_cost" gorm:"type:decimal(15,2);not null;default:0"`
	ProposedPrice float64 `json:"proposed_price" gorm:"type:decimal(15,2);not null;default:0"`

	Quantity     int     `json:"quantity" gorm:"not null;default:0"`
	InitialPrice float64 `json:"initial_price" gorm:"type:decimal(15,2);not null;default:0"`

	// Accounting cost-estimation overlay. Zero means not yet provided.
	EstimatedMaterialCost  float64      `json:"estimated_material_cost" gorm:"type:decimal(15,2);not null;default:0"`
	EstimatedLaborCost     float64      `json:"estimated_labor_cost" gorm:"type:decimal(15,2);not null;default:0"`
	AccountingProfitMargin float64      `json:"accounting_profit_margin" gorm:"type:decimal(8,2);not null;default:0"`
	AccountingFinalPrice   float64      `json:"accounting_final_price" gorm:"type:decimal(15,2);not null;default:0"`
	AdjustedBOM            BOMItems     `json:"adjusted_bom" gorm:"type:jsonb"`
	AdjustedRouting        RoutingSteps `json:"adjusted_routing" gorm:"type:jsonb"`
	AccountingNotes        string       `json:"accounting_notes" gorm:"type:text"`

	Version   int       `json:"version" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Style) TableName() string {
	return "styles"
}

// FindBOMItem returns a pointer into the BOM slice, or nil.
func (s *Style) FindBOMItem(id string) *BOMItem {
	for i := range s.BOM {
		if s.BOM[i].ID == id {
			return &s.BOM[i]
		}
	}
	return nil
}

// FindRoutingStep returns a pointer into the routing slice, or nil.
func (s *Style) FindRoutingStep(id string) *RoutingStep {
	for i := range s.Routing {
		if s.Routing[i].ID == id {
			return &s.Routing[i]
		}
	}
	return nil
}
