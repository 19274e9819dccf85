package reports

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Orders"

// BuildOrdersWorkbook renders recent orders plus verdicts into a spreadsheet
// for the dashboard's export button.
func BuildOrdersWorkbook(orders []*models.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"OrderNumber", "Date", "Customer", "Email", "Total", "Currency", "RiskScore", "RiskLevel", "Status", "Factors", "Reviewed"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	for row, o := range orders {
		values := []interface{}{
			o.OrderNumber,
			o.OrderDate.Format("2006-01-02 15:04"),
			o.CustomerName,
			o.CustomerEmail,
			o.TotalPrice.String(),
			o.Currency,
			o.RiskScore,
			string(o.RiskLevel),
			string(o.Status),
			strings.Join([]string(o.RiskFactors), "; "),
			o.Reviewed != nil && *o.Reviewed,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	return f, nil
}

// WriteOrdersExcel streams the workbook as an xlsx attachment.
func WriteOrdersExcel(w http.ResponseWriter, shopId string, orders []*models.Order) error {
	f, err := BuildOrdersWorkbook(orders)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-orders.xlsx", strings.TrimSuffix(shopId, ".myshopify.com")))
	return f.Write(w)
}
