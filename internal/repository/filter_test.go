package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_BuildEmpty(t *testing.T) {
	where, args := ListFilter{}.Build("user_id = $1", "u1")

	assert.Equal(t, "user_id = $1", where)
	assert.Equal(t, []any{"u1"}, args)
}

func TestListFilter_BuildStatus(t *testing.T) {
	where, args := ListFilter{Status: "completed"}.Build("user_id = $1", "u1")

	assert.Equal(t, "user_id = $1 AND status = $2", where)
	assert.Equal(t, []any{"u1", "completed"}, args)
}

func TestListFilter_SearchRequiresColumn(t *testing.T) {
	// Without a repository-assigned column the search dimension is ignored
	// rather than guessed.
	where, args := ListFilter{Search: "VM-1"}.Build("user_id = $1", "u1")

	assert.Equal(t, "user_id = $1", where)
	assert.Len(t, args, 1)
}

func TestListFilter_BuildAllDimensions(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	f := ListFilter{
		Status: "success",
		Search: "upi",
		From:   &from,
		To:     &to,
	}.WithSearchColumn("transaction_id")

	where, args := f.Build("user_id = $1", "u1")

	assert.Equal(t,
		"user_id = $1 AND status = $2 AND transaction_id ILIKE $3 AND created_at >= $4 AND created_at <= $5",
		where)
	assert.Equal(t, []any{"u1", "success", "%upi%", from, to}, args)
}

func TestListFilter_SearchValueIsBoundNotSpliced(t *testing.T) {
	f := ListFilter{Search: "'; DROP TABLE purchases; --"}.WithSearchColumn("order_number")

	where, args := f.Build("user_id = $1", "u1")

	assert.NotContains(t, where, "DROP TABLE")
	assert.Equal(t, "%'; DROP TABLE purchases; --%", args[1])
}
