package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"sensegrid-cloud/internal/rules/application"
	rules "sensegrid-cloud/internal/rules/domain"
)

// ExportHandler serves alert report downloads.
type ExportHandler struct {
	service *application.Service
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service *application.Service) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("alert export: nil service")
	}
	return &ExportHandler{service: service}, nil
}

// ServeHTTP handles GET /api/v1/exports/alerts.xlsx and alerts.pdf.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, err := alertFilterFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	alerts, err := h.service.ListAlerts(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.URL.Path {
	case "/api/v1/exports/alerts.xlsx":
		data, err := BuildAlertsXLSX(filter.TenantID, alerts)
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.xlsx"`)
		_, _ = w.Write(data)
	case "/api/v1/exports/alerts.pdf":
		data, err := BuildAlertsPDF(filter.TenantID, alerts)
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.pdf"`)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// BuildAlertsXLSX renders an alert report workbook.
func BuildAlertsXLSX(tenantID string, alerts []rules.Alert) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "alerts"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Tenant")
	_ = f.SetCellValue(sheet, "B1", tenantID)

	headers := []string{"Time", "Device", "Type", "Value", "Severity", "Message"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c2", 'A'+i)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, alert := range alerts {
		row := i + 3
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), alert.Time.Format(time.RFC3339))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), alert.DeviceID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), alert.Type)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), alert.Value)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), alert.Severity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), alert.Message)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertsPDF renders a minimal PDF alert report.
func BuildAlertsPDF(tenantID string, alerts []rules.Alert) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alert Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Tenant: %s", tenantID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alerts: %d", len(alerts)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(45, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Device", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, alert := range alerts {
		pdf.CellFormat(45, 6, alert.Time.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, alert.DeviceID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, alert.Type, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.3f", alert.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, alert.Severity, "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 6, alert.Message, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
