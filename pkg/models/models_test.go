package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.March, 9)

	b, err := json.Marshal(struct {
		Due Date `json:"due"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-03-09"}`, string(b))

	var parsed struct {
		Due Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-12-31"}`), &parsed))
	assert.Equal(t, "2024-12-31", parsed.Due.String())

	err = json.Unmarshal([]byte(`{"due":"31/12/2024"}`), &parsed)
	assert.Error(t, err)
}

func TestDate_Scan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-01", d.String())

	require.NoError(t, d.Scan("2024-06-02 00:00:00+00:00"))
	assert.Equal(t, "2024-06-02", d.String())

	require.NoError(t, d.Scan([]byte("2024-07-03")))
	assert.Equal(t, "2024-07-03", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDate_Arithmetic(t *testing.T) {
	start := NewDate(2024, time.January, 30)
	end := start.AddDays(3)

	assert.Equal(t, "2024-02-02", end.String())
	assert.Equal(t, 3, start.DaysUntil(end))
}

func TestLineTotal(t *testing.T) {
	item := SaleItem{Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")}
	item.Recalculate()
	assert.Equal(t, "59.97", item.TotalPrice.StringFixed(2))

	item.Quantity = 1
	item.Recalculate()
	assert.Equal(t, "19.99", item.TotalPrice.StringFixed(2))
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals(decimal.NewFromInt(60))

	assert.Equal(t, "60.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "9.00", totals.VAT.StringFixed(2))
	assert.Equal(t, "69.00", totals.Total.StringFixed(2))

	var p Purchase
	p.ApplyTotals(decimal.NewFromInt(60))
	assert.Equal(t, "9.00", p.TaxAmount.StringFixed(2))
	assert.Equal(t, "69.00", p.TotalAmount.StringFixed(2))
}

func TestTask_ApplyCompletion(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Success - stamps completion once", func(t *testing.T) {
		task := Task{Status: TaskStatusCompleted}
		task.ApplyCompletion(now)
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)

		task.ApplyCompletion(now.Add(time.Hour))
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("Success - clears when reopened", func(t *testing.T) {
		task := Task{Status: TaskStatusCompleted}
		task.ApplyCompletion(now)
		task.Status = TaskStatusReview
		task.ApplyCompletion(now)
		assert.Nil(t, task.CompletedAt)
	})
}

func TestTask_Overdue(t *testing.T) {
	today := NewDate(2024, 4, 10)

	assert.True(t, Task{Status: TaskStatusTodo, DueDate: today.AddDays(-1)}.IsOverdue(today))
	assert.False(t, Task{Status: TaskStatusTodo, DueDate: today}.IsOverdue(today))
	assert.False(t, Task{Status: TaskStatusCompleted, DueDate: today.AddDays(-5)}.IsOverdue(today))
}

func TestNewPaginationInfo(t *testing.T) {
	p := NewPaginationInfo(2, 20, 45)

	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	empty := NewPaginationInfo(1, 20, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"pending", "completed", "cancelled"}, Strings(SaleStatuses))
	assert.True(t, Contains(LeadSources, LeadSourceReferral))
	assert.False(t, Contains(LeadSources, LeadSource("billboard")))
}
