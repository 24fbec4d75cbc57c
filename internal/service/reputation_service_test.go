package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func review(vendorID int64, rating, food, delivery, service int) models.VendorReview {
	return models.VendorReview{
		VendorID:              vendorID,
		CustomerID:            1,
		OrderID:               1,
		Rating:                rating,
		FoodQualityRating:     food,
		DeliveryTimeRating:    delivery,
		CustomerServiceRating: service,
	}
}

func repeat(r models.VendorReview, n int) []models.VendorReview {
	out := make([]models.VendorReview, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestComputePerformance(t *testing.T) {
	tests := []struct {
		name    string
		reviews []models.VendorReview
		badges  []string
		tier    models.VendorTier
	}{
		{"no reviews", nil, []string{}, models.VendorBronze},
		{
			"all badges few reviews",
			repeat(review(1, 5, 5, 5, 5), 3),
			[]string{models.BadgeTopRated, models.BadgeFastDelivery, models.BadgeExcellentService},
			models.VendorBronze,
		},
		{"fast only", repeat(review(1, 3, 3, 4, 3), 5), []string{models.BadgeFastDelivery}, models.VendorBronze},
		{"volume without rating", repeat(review(1, 4, 4, 3, 4), 20), []string{}, models.VendorBronze},
		{"silver at 4.4", append(repeat(review(1, 5, 4, 3, 4), 8), repeat(review(1, 4, 4, 3, 4), 12)...), []string{}, models.VendorSilver},
		{"gold", repeat(review(1, 5, 4, 3, 4), 50), []string{models.BadgeTopRated}, models.VendorGold},
		{"gold not platinum", append(repeat(review(1, 5, 3, 3, 3), 60), repeat(review(1, 4, 3, 3, 3), 40)...), []string{models.BadgeTopRated}, models.VendorGold},
		{
			"platinum",
			repeat(review(1, 5, 5, 5, 5), 100),
			[]string{models.BadgeTopRated, models.BadgeFastDelivery, models.BadgeExcellentService},
			models.VendorPlatinum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perf := ComputePerformance(1, tt.reviews)
			assert.Equal(t, tt.badges, perf.Badges)
			assert.Equal(t, tt.tier, perf.Tier)
			assert.Equal(t, len(tt.reviews), perf.TotalReviews)
		})
	}
}

func TestAddReviewRecomputes(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewReputationService(st, clk)
	ctx := context.Background()

	_, err := svc.GetPerformance(ctx, 9)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, perf, err := svc.AddReview(ctx, review(9, 5, 5, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, perf.AverageRating)

	_, perf, err = svc.AddReview(ctx, review(9, 3, 3, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, perf.TotalReviews)
	assert.Equal(t, 4.0, perf.AverageRating)
	assert.Equal(t, 3.0, perf.AverageDeliveryTime)
	assert.Equal(t, []string{}, perf.Badges)

	stored, err := svc.GetPerformance(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, *perf, *stored)

	_, _, err = svc.AddReview(ctx, review(9, 6, 5, 5, 5))
	assert.True(t, errors.Is(err, ErrValidation))
	_, _, err = svc.AddReview(ctx, review(9, 5, 0, 5, 5))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAddReviewReportsFirstInvalidRating(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewReputationService(st, clk)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, _, err := svc.AddReview(ctx, review(9, 5, 0, 5, 9))
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "food_quality_rating", verr.Field)
	}
	assert.Empty(t, svc.ListReviews(ctx, 9))
}

func TestPerformanceDependsOnlyOnReviewSet(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewReputationService(st, clk)
	ctx := context.Background()

	_, before, err := svc.AddReview(ctx, review(4, 5, 5, 5, 5))
	require.NoError(t, err)
	_, _, err = svc.AddReview(ctx, review(4, 1, 1, 1, 1))
	require.NoError(t, err)

	// dropping the last review yields the earlier performance
	reviews := svc.ListReviews(ctx, 4)
	again := ComputePerformance(4, reviews[:1])
	again.UpdatedAt = before.UpdatedAt
	assert.Equal(t, *before, again)
}

func TestRespondToReview(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewReputationService(st, clk)
	ctx := context.Background()

	first, _, err := svc.AddReview(ctx, review(2, 4, 4, 4, 4))
	require.NoError(t, err)
	_, _, err = svc.AddReview(ctx, review(2, 5, 5, 5, 5))
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)
	responded, err := svc.RespondToReview(ctx, first.ID, "Thanks!")
	require.NoError(t, err)
	assert.Equal(t, "Thanks!", responded.Response)

	perf, err := svc.GetPerformance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 50.0, perf.ResponseRate)
	assert.Equal(t, 30.0, perf.ResponseTimeMinutes)

	_, err = svc.RespondToReview(ctx, first.ID, "again")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = svc.RespondToReview(ctx, 404, "hi")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMarkHelpful(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewReputationService(st, clk)
	ctx := context.Background()

	r, _, err := svc.AddReview(ctx, review(2, 4, 4, 4, 4))
	require.NoError(t, err)

	_, err = svc.MarkHelpful(ctx, r.ID, true)
	require.NoError(t, err)
	updated, err := svc.MarkHelpful(ctx, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Helpful)
	assert.Equal(t, 1, updated.Unhelpful)

	_, err = svc.MarkHelpful(ctx, 404, true)
	assert.True(t, errors.Is(err, ErrNotFound))
}
