package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"verification-service/models"
)

func TestClassify_FlagsAreAuthoritative(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *models.TransactionSnapshot
		want     models.Outcome
	}{
		{
			name:     "is_paid wins",
			snapshot: &models.TransactionSnapshot{IsPaid: true, Status: "processing"},
			want:     models.OutcomePaid,
		},
		{
			name:     "is_failed wins",
			snapshot: &models.TransactionSnapshot{IsFailed: true, Status: "processing"},
			want:     models.OutcomeFailed,
		},
		{
			name:     "is_paid beats a failed-looking status string",
			snapshot: &models.TransactionSnapshot{IsPaid: true, Status: "declined"},
			want:     models.OutcomePaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, models.Classify(tt.snapshot))
		})
	}
}

func TestClassify_StatusStringFallback(t *testing.T) {
	tests := []struct {
		status string
		want   models.Outcome
	}{
		{"paid", models.OutcomePaid},
		{"SUCCESS", models.OutcomePaid},
		{"completed", models.OutcomePaid},
		{"failed", models.OutcomeFailed},
		{"Declined", models.OutcomeFailed},
		{"cancelled", models.OutcomeFailed},
		{"expired", models.OutcomeFailed},
		{"initiated", models.OutcomePending},
		{"processing", models.OutcomePending},
		{"", models.OutcomePending},
		{"something-new", models.OutcomePending},
	}

	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			got := models.Classify(&models.TransactionSnapshot{Status: tt.status})
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_NilSnapshotIsPending(t *testing.T) {
	require.Equal(t, models.OutcomePending, models.Classify(nil))
}

func TestOutcome_Terminal(t *testing.T) {
	require.True(t, models.OutcomePaid.Terminal())
	require.True(t, models.OutcomeFailed.Terminal())
	require.False(t, models.OutcomePending.Terminal())
}
