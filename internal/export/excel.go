package export

import (
	"fmt"
	"io"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Orders"

// Column headers for the order export, mirroring the dashboard table.
var orderHeaders = []string{
	"ID", "สถานะ", "State", "วันที่", "HN", "ชื่อผู้ป่วย", "วันเกิด",
	"แพ้อาหาร", "โรคประจำตัว", "ผู้ส่ง", "แผนก", "รายการที่สั่ง",
	"แซนวิชทูน่า", "ข้าวต้มปลา", "ข้าวต้มไก่", "ข้าวต้มกุ้ง", "เมนู Custom",
	"รวมรายการ", "รวมชิ้น",
	"เวลารับ Order", "Staff รับ Order",
	"เวลาเตรียม", "Staff เตรียม Order",
	"เวลารับ Order ของ Department", "Staff รับ Order ของ Department",
	"รายละเอียดอื่น",
}

// WriteOrders renders the given view rows as an .xlsx workbook.
func WriteOrders(w io.Writer, rows []models.OrderRecord) error {
	f := excelize.NewFile()
	// WriteTo needs the file open, so no deferred Close on success.

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for col, h := range orderHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := range rows {
		r := &rows[i]
		values := []any{
			r.ID, r.Status, r.State().String(), r.Date, r.HN, r.PatientName,
			r.DateOfBirth, r.Allergy, r.Comorbidity, r.Requester, r.Department,
			models.Summarize(r),
			r.TunaCount, r.FishCount, r.ChickenCount, r.ShrimpCount, r.CustomItem,
			r.ItemTotal, r.PieceTotal,
			r.Step1Time, r.Step1Staff,
			r.Step2Time, r.Step2Staff,
			r.Step3Time, r.Step3Staff,
			r.Note,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return f.Close()
}
