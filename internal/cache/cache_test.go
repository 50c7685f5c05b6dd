package cache_test

import (
	"testing"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/cache"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"

	"github.com/stretchr/testify/require"
)

func rows() []models.OrderRecord {
	return []models.OrderRecord{
		{ID: 5, Status: "", HN: "HN100", PatientName: "สมชาย", Department: "อายุรกรรม", Requester: "พยาบาล A"},
		{ID: 3, Status: "Food House รับ Order", HN: "HN200", PatientName: "สมหญิง", Department: "ICU", Requester: "พยาบาล B"},
		{ID: 9, Status: "หน่วยงานรับอาหารแล้ว", HN: "HN300", PatientName: "John Smith", Department: "ER", Requester: "Nurse C"},
	}
}

func ids(rs []models.OrderRecord) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestReplace_SortsDescendingByID(t *testing.T) {
	c := cache.New()
	c.Replace(rows())
	require.Equal(t, []int64{9, 5, 3}, ids(c.Snapshot()))

	states := []models.LifecycleState{}
	for _, r := range c.Snapshot() {
		states = append(states, r.State())
	}
	require.Equal(t, []models.LifecycleState{
		models.StateDone, models.StatePending, models.StateStep1Done,
	}, states)
}

func TestReplace_Idempotent(t *testing.T) {
	c := cache.New()
	c.Replace(rows())
	first := ids(c.Snapshot())
	c.Replace(rows())
	require.Equal(t, first, ids(c.Snapshot()))
	require.Equal(t, 3, c.Len())
}

func TestFilter(t *testing.T) {
	c := cache.New()
	c.Replace(rows())

	require.Len(t, c.Filter(cache.ModeAll, ""), 3)
	require.Equal(t, []int64{5, 3}, ids(c.Filter(cache.ModePending, "")))

	// case-insensitive substring over HN, name, department, requester
	require.Equal(t, []int64{9}, ids(c.Filter(cache.ModeAll, "john")))
	require.Equal(t, []int64{9}, ids(c.Filter(cache.ModeAll, "er")))
	require.Equal(t, []int64{3}, ids(c.Filter(cache.ModeAll, "hn200")))
	require.Empty(t, c.Filter(cache.ModeAll, "nomatch"))
}

func TestPage_CumulativePrefix(t *testing.T) {
	c := cache.New()
	c.Replace(rows())
	all := c.Filter(cache.ModeAll, "")

	require.Equal(t, []int64{9}, ids(cache.Page(all, 0, 1)))
	// load more keeps the already-visible prefix
	require.Equal(t, []int64{9, 5}, ids(cache.Page(all, 1, 1)))
	require.Equal(t, []int64{9, 5, 3}, ids(cache.Page(all, 2, 1)))
	// window past the end clamps
	require.Equal(t, []int64{9, 5, 3}, ids(cache.Page(all, 10, 25)))
	// no limit returns everything
	require.Equal(t, []int64{9, 5, 3}, ids(cache.Page(all, 0, 0)))
}

func TestPatchStatus_RoundTrip(t *testing.T) {
	c := cache.New()
	c.Replace(rows())

	require.True(t, c.PatchStatus(5, "Food House เตรียมอาหารเสร็จแล้ว"))
	r, ok := c.Find(5)
	require.True(t, ok)
	require.Equal(t, models.StateStep2Done, r.State())
}

func TestPatchStatus_MissingIDIsNoop(t *testing.T) {
	c := cache.New()
	c.Replace(rows())
	require.False(t, c.PatchStatus(999, "whatever"))
	require.Equal(t, []int64{9, 5, 3}, ids(c.Snapshot()))
}

func TestCountNonDone(t *testing.T) {
	c := cache.New()
	require.Equal(t, 0, c.CountNonDone())
	c.Replace(rows())
	require.Equal(t, 2, c.CountNonDone())
	c.PatchStatus(5, "หน่วยงานรับอาหารแล้ว")
	require.Equal(t, 1, c.CountNonDone())
}

func TestSnapshot_IsACopy(t *testing.T) {
	c := cache.New()
	c.Replace(rows())
	snap := c.Snapshot()
	snap[0].Status = "mutated"
	r, _ := c.Find(snap[0].ID)
	require.NotEqual(t, "mutated", r.Status)
}
