package report

import (
	"bytes"
	"fmt"

	"github.com/suvro-04/Driving-alert-system/internal/metrics"
	"github.com/xuri/excelize/v2"
)

// 工作表名称
const (
	SummarySheet     = "Summary"
	TransitionsSheet = "Status Transitions"
)

// TransitionsHeader 状态切换表头
var TransitionsHeader = []string{"Time", "Kind", "Message"}

const timeLayout = "2006-01-02 15:04:05"

// ExportXLSX 生成会话报告 Excel 文件
func ExportXLSX(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	// Note: WriteTo 需要文件保持打开，出错路径上逐个 Close

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TransitionsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(0)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, s, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTransitionsSheet(f, s, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, s Summary, headerStyle int) error {
	updated := ""
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.Format(timeLayout)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Started At", s.StartedAt.Format(timeLayout)},
		{"Updated At", updated},
		{"Records", s.Records},
		{"Alert Ticks", s.AlertTicks},
		{"Drowsy Ticks", s.DrowsyTicks},
		{"Drowsy Episodes", s.DrowsyEpisodes},
		{"Buzzer Ticks", s.BuzzerTicks},
		{"Yawn Events", s.YawnEvents},
		{"Max Yawn Count", s.MaxYawnCount},
		{"Backend Fallbacks", s.Fallbacks},
	}
	for _, lv := range []metrics.Level{metrics.LevelNormal, metrics.LevelWarning, metrics.LevelDanger} {
		rows = append(rows, []interface{}{"EAR " + string(lv), s.EARLevels[lv]})
	}
	for _, lv := range []metrics.Level{metrics.LevelNormal, metrics.LevelWarning, metrics.LevelDanger} {
		rows = append(rows, []interface{}{"Head Tilt " + string(lv), s.HeadTiltLevels[lv]})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeTransitionsSheet(f *excelize.File, s Summary, headerStyle int) error {
	for col, header := range TransitionsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(TransitionsSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(TransitionsSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, tr := range s.Transitions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := []interface{}{tr.At.Format(timeLayout), string(tr.Kind), tr.Message}
		if err := f.SetSheetRow(TransitionsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write transition row %d: %w", i+2, err)
		}
	}

	for i, w := range []float64{22, 12, 26} {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(TransitionsSheet, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 冻结表头
	if err := f.SetPanes(TransitionsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
