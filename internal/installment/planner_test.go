package installment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestPlanMonthlyAdvancement(t *testing.T) {
	anchor := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	closing := closingdomain.Closing{
		ID:                     snowflake.ID(42),
		TotalAmountCents:       600_00,
		InstallmentCount:       intPtr(6),
		InstallmentAmountCents: int64Ptr(100_00),
		FirstDueDate:           timePtr(anchor),
	}

	descriptors, err := Plan(closing)
	require.NoError(t, err)
	require.Len(t, descriptors, 6)

	for i, d := range descriptors {
		require.Equal(t, i+1, d.Sequence)
		require.Equal(t, anchor.AddDate(0, i, 0), d.DueDate)
		require.Equal(t, int64(100_00), d.AmountCents)
		require.Equal(t, fmt.Sprintf("42-P%d", i+1), d.DocumentNumber)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	anchor := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	closing := closingdomain.Closing{
		ID:                     snowflake.ID(42),
		TotalAmountCents:       300_00,
		InstallmentCount:       intPtr(3),
		InstallmentAmountCents: int64Ptr(100_00),
		FirstDueDate:           timePtr(anchor),
	}

	first, err := Plan(closing)
	require.NoError(t, err)
	second, err := Plan(closing)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPlanLumpSumWithAnchor(t *testing.T) {
	anchor := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	closing := closingdomain.Closing{
		ID:               snowflake.ID(7),
		TotalAmountCents: 1000_00,
		FirstDueDate:     timePtr(anchor),
	}

	descriptors, err := Plan(closing)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, 1, descriptors[0].Sequence)
	require.Equal(t, anchor, descriptors[0].DueDate)
	require.Equal(t, "7", descriptors[0].DocumentNumber)
}

func TestPlanLumpSumFallsBackToClosingDatePlus30(t *testing.T) {
	closing := closingdomain.Closing{
		ID:               snowflake.ID(7),
		TotalAmountCents: 1000_00,
		ClosedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	descriptors, err := Plan(closing)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), descriptors[0].DueDate)
	require.Equal(t, int64(1000_00), descriptors[0].AmountCents)
}

func TestPlanInstallmentsWithoutAnchorFails(t *testing.T) {
	closing := closingdomain.Closing{
		ID:                     snowflake.ID(9),
		TotalAmountCents:       300_00,
		InstallmentCount:       intPtr(3),
		InstallmentAmountCents: int64Ptr(100_00),
	}

	_, err := Plan(closing)
	require.True(t, errors.Is(err, ErrInvalidPlan))
}

func TestPlanRejectsNonPositiveAmounts(t *testing.T) {
	_, err := Plan(closingdomain.Closing{ID: snowflake.ID(1)})
	require.True(t, errors.Is(err, ErrInvalidPlan))

	anchor := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = Plan(closingdomain.Closing{
		ID:                     snowflake.ID(1),
		InstallmentCount:       intPtr(2),
		InstallmentAmountCents: int64Ptr(0),
		FirstDueDate:           timePtr(anchor),
	})
	require.True(t, errors.Is(err, ErrInvalidPlan))
}

func TestAmountsReconcile(t *testing.T) {
	anchor := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	closing := closingdomain.Closing{
		ID:                     snowflake.ID(1),
		TotalAmountCents:       300_00,
		InstallmentCount:       intPtr(3),
		InstallmentAmountCents: int64Ptr(100_00),
		FirstDueDate:           timePtr(anchor),
	}
	require.True(t, AmountsReconcile(closing))

	closing.TotalAmountCents = 299_00
	require.False(t, AmountsReconcile(closing))
}
