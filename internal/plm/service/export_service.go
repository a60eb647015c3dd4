package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the style export workbook.
const (
	SheetSummary = "Tổng Hợp"
	SheetBOM     = "Chi Tiết BOM"
	SheetRouting = "Chi Tiết Routing"
	SheetCost    = "Dự Trù Chi Phí"
)

var moneyNumFmt = "#,##0"

// ExportFilter selects and shapes the exported workbook. ExportAll
// overrides the status/id filters; the Include flags toggle the detail
// sheets (the summary sheet is always present).
type ExportFilter struct {
	ExportAll             bool
	Statuses              []string
	StyleIDs              []string
	IncludeBOM            bool
	IncludeRouting        bool
	IncludeCostEstimation bool
}

// ExportService projects styles into a styled xlsx workbook.
type ExportService struct {
	styles    *repository.StyleRepository
	materials MaterialCatalog
}

func NewExportService(styles *repository.StyleRepository, materials MaterialCatalog) *ExportService {
	return &ExportService{styles: styles, materials: materials}
}

// exportCellStyles holds the excelize style ids shared by all sheets.
type exportCellStyles struct {
	header   int
	text     int
	textAlt  int
	money    int
	moneyAlt int
}

func newExportCellStyles(f *excelize.File) (*exportCellStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E0E0"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	text, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	textAlt, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F5F5F5"}},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 11},
		Alignment:    &excelize.Alignment{Vertical: "center"},
		Border:       border,
		CustomNumFmt: &moneyNumFmt,
	})
	if err != nil {
		return nil, err
	}
	moneyAlt, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 11},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F5F5F5"}},
		Alignment:    &excelize.Alignment{Vertical: "center"},
		Border:       border,
		CustomNumFmt: &moneyNumFmt,
	})
	if err != nil {
		return nil, err
	}

	return &exportCellStyles{header: header, text: text, textAlt: textAlt, money: money, moneyAlt: moneyAlt}, nil
}

// writeSheet writes a header row plus data rows with alternating shading.
// moneyCols are 1-based column numbers carrying the money number format.
func writeSheet(f *excelize.File, sheet string, headers []string, widths []float64, rows [][]interface{}, moneyCols map[int]bool, st *exportCellStyles) error {
	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		cell := fmt.Sprintf("%s1", col)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, st.header); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(sheet, 1, 25); err != nil {
		return err
	}

	for rowIdx, row := range rows {
		shaded := rowIdx%2 == 1
		for colIdx, val := range row {
			col, err := excelize.ColumnNumberToName(colIdx + 1)
			if err != nil {
				return err
			}
			cell := fmt.Sprintf("%s%d", col, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
			styleID := st.text
			switch {
			case moneyCols[colIdx+1] && shaded:
				styleID = st.moneyAlt
			case moneyCols[colIdx+1]:
				styleID = st.money
			case shaded:
				styleID = st.textAlt
			}
			if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatExportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// ExportStyles builds the workbook and returns it with the download
// filename. An empty selection is a caller error.
func (s *ExportService) ExportStyles(ctx context.Context, filter *ExportFilter) (*excelize.File, string, error) {
	for _, status := range filter.Statuses {
		if !entity.IsValidStyleStatus(status) {
			return nil, "", fmt.Errorf("unknown status %q: %w", status, ErrInvalid)
		}
	}

	var styles []entity.Style
	var err error
	if filter.ExportAll {
		styles, err = s.styles.List(ctx, "")
	} else {
		styles, err = s.styles.ListFiltered(ctx, filter.Statuses, filter.StyleIDs)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load styles: %w", err)
	}
	if len(styles) == 0 {
		return nil, "", fmt.Errorf("no styles match the export filter: %w", ErrInvalid)
	}

	allMaterials, err := s.materials.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load materials: %w", err)
	}
	materialByID := make(map[string]entity.Material, len(allMaterials))
	for _, m := range allMaterials {
		materialByID[m.ID] = m
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, "", err
	}
	st, err := newExportCellStyles(f)
	if err != nil {
		return nil, "", err
	}

	if err := s.writeSummarySheet(f, styles, st); err != nil {
		return nil, "", err
	}
	if filter.IncludeBOM {
		if err := s.writeBOMSheet(f, styles, materialByID, st); err != nil {
			return nil, "", err
		}
	}
	if filter.IncludeRouting {
		if err := s.writeRoutingSheet(f, styles, st); err != nil {
			return nil, "", err
		}
	}
	if filter.IncludeCostEstimation {
		if err := s.writeCostSheet(f, styles, st); err != nil {
			return nil, "", err
		}
	}

	filename := fmt.Sprintf("Danh_Sach_Mau_%s.xlsx", time.Now().Format("2006-01-02"))
	return f, filename, nil
}

func (s *ExportService) writeSummarySheet(f *excelize.File, styles []entity.Style, st *exportCellStyles) error {
	headers := []string{"Mã Mẫu", "Tên Sản Phẩm", "Mô Tả", "Trạng Thái", "Giá Đề Xuất", "Giá Dự Trù", "Số Lượng", "Đơn Giá Ban Đầu", "Ngày Tạo"}
	widths := []float64{12, 30, 40, 15, 18, 18, 12, 18, 15}

	rows := make([][]interface{}, 0, len(styles))
	for _, style := range styles {
		finalPrice := style.AccountingFinalPrice
		if finalPrice == 0 {
			finalPrice = style.ProposedPrice
		}
		rows = append(rows, []interface{}{
			style.Code,
			style.Name,
			style.Description,
			entity.StyleStatusLabel(style.Status),
			style.ProposedPrice,
			finalPrice,
			style.Quantity,
			style.InitialPrice,
			formatExportDate(style.CreatedAt),
		})
	}

	moneyCols := map[int]bool{5: true, 6: true, 8: true}
	return writeSheet(f, SheetSummary, headers, widths, rows, moneyCols, st)
}

// writeBOMSheet flattens every style's BOM into one sheet. Unresolved
// materials keep the raw id and cost zero. Skipped entirely when no
// style has BOM lines.
func (s *ExportService) writeBOMSheet(f *excelize.File, styles []entity.Style, materialByID map[string]entity.Material, st *exportCellStyles) error {
	var rows [][]interface{}
	for _, style := range styles {
		for _, item := range style.BOM {
			materialName := item.MaterialID
			unit := ""
			costPerUnit := 0.0
			if m, ok := materialByID[item.MaterialID]; ok {
				materialName = m.Name
				unit = m.Unit
				costPerUnit = m.CostPerUnit
			}
			total := item.Quantity * (1 + item.WasteRate/100) * costPerUnit
			rows = append(rows, []interface{}{
				style.Code, style.Name, materialName, unit,
				item.Quantity, item.WasteRate, costPerUnit, total,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := f.NewSheet(SheetBOM); err != nil {
		return err
	}
	headers := []string{"Mã Mẫu", "Tên Mẫu", "Vật Tư", "Đơn Vị", "Số Lượng", "Hao Hụt (%)", "Đơn Giá", "Thành Tiền"}
	widths := []float64{12, 30, 30, 10, 12, 12, 18, 18}
	moneyCols := map[int]bool{7: true, 8: true}
	return writeSheet(f, SheetBOM, headers, widths, rows, moneyCols, st)
}

func (s *ExportService) writeRoutingSheet(f *excelize.File, styles []entity.Style, st *exportCellStyles) error {
	var rows [][]interface{}
	for _, style := range styles {
		for _, step := range style.Routing {
			total := step.Minutes * step.LaborRate / 60
			rows = append(rows, []interface{}{
				style.Code, style.Name, step.Operation, step.Minutes, step.LaborRate, total,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := f.NewSheet(SheetRouting); err != nil {
		return err
	}
	headers := []string{"Mã Mẫu", "Tên Mẫu", "Công Đoạn", "Phút", "Rate (đ/giờ)", "Thành Tiền"}
	widths := []float64{12, 30, 30, 10, 18, 18}
	moneyCols := map[int]bool{5: true, 6: true}
	return writeSheet(f, SheetRouting, headers, widths, rows, moneyCols, st)
}

// writeCostSheet lists styles that have any accounting figure. The final
// price column falls back to the technical proposed price.
func (s *ExportService) writeCostSheet(f *excelize.File, styles []entity.Style, st *exportCellStyles) error {
	var rows [][]interface{}
	for _, style := range styles {
		if style.AccountingFinalPrice == 0 && style.EstimatedMaterialCost == 0 && style.EstimatedLaborCost == 0 {
			continue
		}
		finalPrice := style.AccountingFinalPrice
		if finalPrice == 0 {
			finalPrice = style.ProposedPrice
		}
		rows = append(rows, []interface{}{
			style.Code, style.Name,
			style.EstimatedMaterialCost, style.EstimatedLaborCost,
			style.AccountingProfitMargin, finalPrice, style.AccountingNotes,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := f.NewSheet(SheetCost); err != nil {
		return err
	}
	headers := []string{"Mã Mẫu", "Tên Mẫu", "Giá Vật Tư", "Giá Công", "Lợi Nhuận (%)", "Giá Cuối Cùng", "Ghi Chú"}
	widths := []float64{12, 30, 18, 18, 15, 18, 40}
	moneyCols := map[int]bool{3: true, 4: true, 6: true}
	return writeSheet(f, SheetCost, headers, widths, rows, moneyCols, st)
}
