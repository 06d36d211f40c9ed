package analytics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "summary"
	projectsSheet = "projects"
	requestsSheet = "requests"
)

var projectHeader = []string{
	"Project", "Contractor", "Requests", "Requested", "Funded", "Returned",
	"Outstanding", "Platform Fee", "Participation Fee", "Total Due", "Days Outstanding",
}

var requestHeader = []string{
	"Request", "Project", "Created", "First Deployment", "Requested", "Funded", "Returned",
	"Outstanding", "Platform Fee", "Participation Fee", "Total Due", "Days Outstanding",
}

// BuildProjectWorkbook renders the project views and platform summary as XLSX.
// Amounts are written as numbers; display formatting is left to the spreadsheet.
func BuildProjectWorkbook(views []ProjectView, summary PlatformSummary, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(projectsSheet); err != nil {
		return nil, fmt.Errorf("failed to create projects sheet: %w", err)
	}
	if _, err := f.NewSheet(requestsSheet); err != nil {
		return nil, fmt.Errorf("failed to create requests sheet: %w", err)
	}

	_ = f.SetCellValue(summarySheet, "A1", "Capital Platform Summary")
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", generatedAt.UTC().Format(time.RFC3339))
	summaryRows := []struct {
		label string
		value interface{}
	}{
		{"Total Requested", summary.TotalRequested.InexactFloat64()},
		{"Total Funded", summary.TotalFunded.InexactFloat64()},
		{"Total Returns", summary.TotalReturns.InexactFloat64()},
		{"Outstanding", summary.Outstanding.InexactFloat64()},
		{"Platform Fee", summary.PlatformFee.InexactFloat64()},
		{"Participation Fee", summary.ParticipationFee.InexactFloat64()},
		{"Total Due", summary.TotalDue.InexactFloat64()},
		{"Requests", summary.RequestCount},
		{"Investors", summary.InvestorCount},
		{"Projects", summary.ProjectCount},
		{"Contractors", summary.ContractorCount},
	}
	for i, r := range summaryRows {
		row := i + 4
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), r.label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), r.value)
	}

	if err := writeHeader(f, projectsSheet, projectHeader); err != nil {
		return nil, err
	}
	if err := writeHeader(f, requestsSheet, requestHeader); err != nil {
		return nil, err
	}

	reqRow := 2
	for i, v := range views {
		row := i + 2
		name := v.ProjectName
		if name == "" {
			name = v.ProjectID
		}
		values := []interface{}{
			name, v.ContractorName, v.RequestCount,
			v.TotalRequested.InexactFloat64(), v.TotalFunded.InexactFloat64(), v.TotalReturns.InexactFloat64(),
			v.Outstanding.InexactFloat64(), v.PlatformFee.InexactFloat64(), v.ParticipationFee.InexactFloat64(),
			v.TotalDue.InexactFloat64(), v.DaysOutstanding,
		}
		if err := f.SetSheetRow(projectsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, fmt.Errorf("failed to write project row: %w", err)
		}

		for _, r := range v.Requests {
			firstDeployment := ""
			if r.FirstDeploymentAt != nil {
				firstDeployment = r.FirstDeploymentAt.Format("2006-01-02")
			}
			values := []interface{}{
				r.RequestID, name, r.CreatedAt.Format("2006-01-02"), firstDeployment,
				r.TotalRequested.InexactFloat64(), r.TotalFunded.InexactFloat64(), r.TotalReturns.InexactFloat64(),
				r.Outstanding.InexactFloat64(), r.PlatformFee.InexactFloat64(), r.ParticipationFee.InexactFloat64(),
				r.TotalDue.InexactFloat64(), r.DaysOutstanding,
			}
			if err := f.SetSheetRow(requestsSheet, fmt.Sprintf("A%d", reqRow), &values); err != nil {
				return nil, fmt.Errorf("failed to write request row: %w", err)
			}
			reqRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	return nil
}
