package reports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type StockValuationRow struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	LotCode     string          `json:"lot_code"`
	Quantity    int             `json:"quantity"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	CostValue   decimal.Decimal `json:"cost_value"`
	SaleValue   decimal.Decimal `json:"sale_value"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
}

type StockValuationSummary struct {
	Rows           []*StockValuationRow `json:"rows"`
	TotalCostValue decimal.Decimal      `json:"total_cost_value"`
	TotalSaleValue decimal.Decimal      `json:"total_sale_value"`
	// Margin the stock would realize sold at current prices.
	PotentialMargin decimal.Decimal `json:"potential_margin"`
}

// GetStockValuationReport values every available lot at its weighted-average
// cost and at its current sale price.
func GetStockValuationReport(ctx context.Context) (*StockValuationSummary, error) {
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}

	sql := `
SELECT
    sl.product_id,
    products.name AS product_name,
    sl.lot_code,
    sl.quantity,
    sl.cost_price,
    sl.sale_price,
    sl.quantity * sl.cost_price AS cost_value,
    sl.quantity * sl.sale_price AS sale_value,
    sl.expiry_date
FROM
    stock_lots sl
    LEFT JOIN products ON products.id = sl.product_id
WHERE
    sl.pharmacy_id = @pharmacyId
    AND sl.is_available = 1
    AND sl.quantity > 0
ORDER BY products.name, sl.lot_code;
`

	var rows []*StockValuationRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(sql, map[string]interface{}{"pharmacyId": pharmacyId}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &StockValuationSummary{Rows: rows}
	for _, row := range rows {
		summary.TotalCostValue = summary.TotalCostValue.Add(row.CostValue)
		summary.TotalSaleValue = summary.TotalSaleValue.Add(row.SaleValue)
	}
	summary.PotentialMargin = summary.TotalSaleValue.Sub(summary.TotalCostValue)
	return summary, nil
}

// ExportStockValuationExcel streams the valuation as an xlsx download.
func ExportStockValuationExcel(ctx context.Context, w http.ResponseWriter) error {
	summary, err := GetStockValuationReport(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheet, "A1", "Produto")
	f.SetCellValue(sheet, "B1", "Lote")
	f.SetCellValue(sheet, "C1", "Quantidade")
	f.SetCellValue(sheet, "D1", "CustoUnitario")
	f.SetCellValue(sheet, "E1", "PrecoVenda")
	f.SetCellValue(sheet, "F1", "ValorCusto")
	f.SetCellValue(sheet, "G1", "ValorVenda")

	// Add data
	for i, row := range summary.Rows {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), row.ProductName)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), row.LotCode)
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+2), row.Quantity)
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+2), row.CostPrice)
		f.SetCellValue(sheet, "E"+fmt.Sprint(i+2), row.SalePrice)
		f.SetCellValue(sheet, "F"+fmt.Sprint(i+2), row.CostValue)
		f.SetCellValue(sheet, "G"+fmt.Sprint(i+2), row.SaleValue)
	}
	totalRow := len(summary.Rows) + 2
	f.SetCellValue(sheet, "A"+fmt.Sprint(totalRow), "TOTAL")
	f.SetCellValue(sheet, "F"+fmt.Sprint(totalRow), summary.TotalCostValue)
	f.SetCellValue(sheet, "G"+fmt.Sprint(totalRow), summary.TotalSaleValue)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=valorizacao_stock.xlsx")
	return f.Write(w)
}

// ExportKardexExcel streams one lot's movement history as an xlsx download.
func ExportKardexExcel(ctx context.Context, db *gorm.DB, lotId int, w http.ResponseWriter) error {
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return errors.New("pharmacy id is required")
	}
	movements, err := models.GetLotHistory(db, ctx, pharmacyId, lotId, 1000)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Data")
	f.SetCellValue(sheet, "B1", "Tipo")
	f.SetCellValue(sheet, "C1", "Quantidade")
	f.SetCellValue(sheet, "D1", "SaldoAnterior")
	f.SetCellValue(sheet, "E1", "SaldoNovo")
	f.SetCellValue(sheet, "F1", "Motivo")
	f.SetCellValue(sheet, "G1", "Referencia")

	for i, m := range movements {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), m.MovedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), string(m.Kind))
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+2), m.Quantity)
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+2), m.PriorQuantity)
		f.SetCellValue(sheet, "E"+fmt.Sprint(i+2), m.NewQuantity)
		f.SetCellValue(sheet, "F"+fmt.Sprint(i+2), m.Reason)
		f.SetCellValue(sheet, "G"+fmt.Sprint(i+2), m.ExternalRef)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=kardex_lote_%d.xlsx", lotId))
	return f.Write(w)
}
