package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/aggregate"
	"ildang/internal/core"
	"ildang/internal/sheets"
)

func TestStoreWriteAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := aggregate.Summarize("2024-06", []core.WorkLog{
		{Date: core.MustParseDate("2024-06-02"), Location: "A", Amount: 150000},
		{Date: core.MustParseDate("2024-06-01"), Location: "A", Amount: 150000, IsPaid: true},
	})

	ref, err := s.WriteMonth(ctx, "홍길동", m)
	require.NoError(t, err)
	assert.Equal(t, "mem:2024년 6월!A1", ref)

	rows, ok := s.Tab("2024-06")
	require.True(t, ok)
	assert.Equal(t, []any{"2024년 6월 노임 청구서 - 홍길동"}, rows[0])
	assert.Equal(t, []any{"A", 2, int64(300000)}, rows[3])
	assert.Equal(t, []any{"원천징수(3.3%)", "", int64(9900)}, rows[6])
	assert.Equal(t, sheets.Header, rows[9])
	assert.Equal(t, "2024-06-01", rows[10][0])
	assert.Equal(t, "O", rows[10][5])
	assert.Len(t, rows, 12)

	months, err := s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06"}, months)

	require.NoError(t, s.DeleteMonth(ctx, "2024-06"))
	require.NoError(t, s.DeleteMonth(ctx, "2024-06"))
	months, err = s.Months(ctx)
	require.NoError(t, err)
	assert.Empty(t, months)
	assert.Equal(t, 1, s.Writes())
}

func TestStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().WriteMonth(ctx, "", aggregate.Summarize("2024-06", nil))
	assert.ErrorIs(t, err, context.Canceled)
}
