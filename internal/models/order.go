package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Step 审批步骤 (0=Food House accepts, 1=Food House finishes, 2=Department receives)
type Step int

const (
	StepAccept  Step = 0
	StepPrepare Step = 1
	StepReceive Step = 2
)

// Valid reports whether the step is one of the three workflow steps.
func (s Step) Valid() bool { return s >= StepAccept && s <= StepReceive }

// Label 步骤的显示文案（与前端弹窗使用的提示一致）
func (s Step) Label() string {
	switch s {
	case StepAccept:
		return "สำหรับ Food House เมื่อรับ Order อาหารแล้ว"
	case StepPrepare:
		return "สำหรับ Food House เมื่อเตรียมอาหารเสร็จแล้ว"
	case StepReceive:
		return "สำหรับ Department"
	default:
		return ""
	}
}

// LifecycleState 订单生命周期状态（由状态文本推导，客户端不存储）
type LifecycleState int

const (
	StatePending LifecycleState = iota
	StateStep1Done
	StateStep2Done
	StateDone
)

func (s LifecycleState) String() string {
	switch s {
	case StateStep1Done:
		return "step1-done"
	case StateStep2Done:
		return "step2-done"
	case StateDone:
		return "done"
	default:
		return "pending"
	}
}

// MarshalJSON emits the state as its string form for the view API.
func (s LifecycleState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Status text markers written by the backend for each completed step.
// The backend stores free text; classification is by substring only.
const (
	markerPending = "Pending"
	markerStep1   = "Food House รับ Order"
	markerStep2   = "Food House เตรียมอาหารเสร็จแล้ว"
	markerStep3   = "หน่วยงานรับอาหารแล้ว"
)

// Classify derives the lifecycle state from the raw status text.
// Precedence is fixed: pending signal, then step 1, 2, 3 markers.
// Anything unrecognized stays pending so an unknown status is always
// treated as still outstanding, never as completed.
func Classify(status string) LifecycleState {
	s := strings.TrimSpace(status)
	switch {
	case s == "" || strings.Contains(s, markerPending):
		return StatePending
	case strings.Contains(s, markerStep1):
		return StateStep1Done
	case strings.Contains(s, markerStep2):
		return StateStep2Done
	case strings.Contains(s, markerStep3):
		return StateDone
	default:
		return StatePending
	}
}

// OrderRecord 一条订单记录（后端以固定位置的数组行返回）
//
// Row layout (24 cells):
//
//	0 id, 1 status, 2 date, 3 HN, 4 patient name, 5 date of birth,
//	6 allergy, 7 comorbidity, 8 requester, 9 department,
//	10-13 item counts (tuna sandwich, fish congee, chicken congee,
//	shrimp congee), 14 custom item, 15 item total, 16 piece total,
//	17/18 19/20 21/22 (time, staff) pairs for the three steps, 23 note.
type OrderRecord struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Date        string `json:"date"`
	HN          string `json:"hn"`
	PatientName string `json:"patientName"`
	DateOfBirth string `json:"dateOfBirth"`
	Allergy     string `json:"allergy"`
	Comorbidity string `json:"comorbidity"`
	Requester   string `json:"requester"`
	Department  string `json:"department"`

	TunaCount    string `json:"tunaCount"`
	FishCount    string `json:"fishCount"`
	ChickenCount string `json:"chickenCount"`
	ShrimpCount  string `json:"shrimpCount"`
	CustomItem   string `json:"customItem"`

	ItemTotal  string `json:"itemTotal"`
	PieceTotal string `json:"pieceTotal"`

	Step1Time  string `json:"step1Time"`
	Step1Staff string `json:"step1Staff"`
	Step2Time  string `json:"step2Time"`
	Step2Staff string `json:"step2Staff"`
	Step3Time  string `json:"step3Time"`
	Step3Staff string `json:"step3Staff"`

	Note string `json:"note"`
}

// State returns the lifecycle state derived from the status text.
func (r *OrderRecord) State() LifecycleState { return Classify(r.Status) }

// UnmarshalJSON decodes a positional backend row. Cells may be JSON
// strings, numbers or null; short rows leave trailing fields empty.
// A garbled cell never fails the whole row.
func (r *OrderRecord) UnmarshalJSON(data []byte) error {
	var cells []any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&cells); err != nil {
		return fmt.Errorf("order row is not an array: %w", err)
	}

	id, _ := ParseCount(cellString(cells, 0))
	r.ID = int64(id)
	r.Status = cellString(cells, 1)
	r.Date = cellString(cells, 2)
	r.HN = cellString(cells, 3)
	r.PatientName = cellString(cells, 4)
	r.DateOfBirth = cellString(cells, 5)
	r.Allergy = cellString(cells, 6)
	r.Comorbidity = cellString(cells, 7)
	r.Requester = cellString(cells, 8)
	r.Department = cellString(cells, 9)
	r.TunaCount = cellString(cells, 10)
	r.FishCount = cellString(cells, 11)
	r.ChickenCount = cellString(cells, 12)
	r.ShrimpCount = cellString(cells, 13)
	r.CustomItem = cellString(cells, 14)
	r.ItemTotal = cellString(cells, 15)
	r.PieceTotal = cellString(cells, 16)
	r.Step1Time = cellString(cells, 17)
	r.Step1Staff = cellString(cells, 18)
	r.Step2Time = cellString(cells, 19)
	r.Step2Staff = cellString(cells, 20)
	r.Step3Time = cellString(cells, 21)
	r.Step3Staff = cellString(cells, 22)
	r.Note = cellString(cells, 23)
	return nil
}

// cellString renders one positional cell as text. Out-of-range and
// null cells become "".
func cellString(cells []any, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	switch v := cells[i].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// ParseCount parses a quantity cell. Thousands separators and
// surrounding space are tolerated; ok is false when the cell is not
// numeric at all. The count is always 0 when ok is false, so a
// garbled quantity degrades instead of failing.
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Item labels shown in the order summary, in row-cell order.
var itemLabels = []string{"ทูน่า", "ปลา", "ไก่", "กุ้ง"}

// Summarize renders the ordered items as "label×count" joined by
// commas. The custom item is appended as a count when numeric and
// positive, or as raw text otherwise. "—" when nothing was ordered.
func Summarize(r *OrderRecord) string {
	counts := []string{r.TunaCount, r.FishCount, r.ChickenCount, r.ShrimpCount}
	var parts []string
	for i, raw := range counts {
		if n, ok := ParseCount(raw); ok && n > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", itemLabels[i], n))
		}
	}
	if custom := strings.TrimSpace(r.CustomItem); custom != "" {
		if n, ok := ParseCount(custom); ok {
			if n > 0 {
				parts = append(parts, fmt.Sprintf("Custom×%d", n))
			}
		} else {
			parts = append(parts, custom)
		}
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, ", ")
}
