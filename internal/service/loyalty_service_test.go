package service

import (
	"context"
	"errors"
	"testing"

	"delivery-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		points int64
		want   models.LoyaltyTier
	}{
		{0, models.TierBronze},
		{999, models.TierBronze},
		{1000, models.TierSilver},
		{2999, models.TierSilver},
		{3000, models.TierGold},
		{4999, models.TierGold},
		{5000, models.TierPlatinum},
		{-50, models.TierBronze},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.points), "points=%d", tt.points)
	}
}

func TestUpdateLoyaltyPointsTierFlip(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewLoyaltyService(st, clk)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, 1)
	require.NoError(t, err)

	a, err := svc.UpdateLoyaltyPoints(ctx, 1, 950)
	require.NoError(t, err)
	assert.Equal(t, models.TierBronze, a.Tier)

	a, err = svc.UpdateLoyaltyPoints(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), a.Points)
	assert.Equal(t, models.TierSilver, a.Tier)
	assert.Equal(t, int64(1050), a.TotalPointsEarned)

	a, err = svc.UpdateLoyaltyPoints(ctx, 1, -200)
	require.NoError(t, err)
	assert.Equal(t, models.TierBronze, a.Tier)
	assert.Equal(t, int64(200), a.TotalPointsRedeemed)

	_, err = svc.UpdateLoyaltyPoints(ctx, 2, 10)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTierIndependentOfHistory(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewLoyaltyService(st, clk)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := svc.CreateAccount(ctx, id)
		require.NoError(t, err)
	}

	_, err := svc.EarnPoints(ctx, 1, 6000, "big order", nil)
	require.NoError(t, err)
	a, err := svc.RedeemPoints(ctx, 1, 3500, "voucher", nil)
	require.NoError(t, err)

	b, err := svc.UpdateLoyaltyPoints(ctx, 2, 2500)
	require.NoError(t, err)

	assert.Equal(t, a.Points, b.Points)
	assert.Equal(t, a.Tier, b.Tier)
	assert.Equal(t, models.TierSilver, a.Tier)
}

func TestEarnAndRedeemLogTransactions(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewLoyaltyService(st, clk)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, 1)
	require.NoError(t, err)

	_, err = svc.EarnPoints(ctx, 1, 300, "order 12", int64Ptr(12))
	require.NoError(t, err)

	_, err = svc.RedeemPoints(ctx, 1, 500, "too much", nil)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.RedeemPoints(ctx, 1, 100, "discount", nil)
	require.NoError(t, err)

	_, err = svc.EarnPoints(ctx, 1, 0, "nothing", nil)
	assert.True(t, errors.Is(err, ErrValidation))

	txs, err := svc.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.LoyaltyEarn, txs[0].Type)
	assert.Equal(t, int64(300), txs[0].Points)
	require.NotNil(t, txs[0].OrderID)
	assert.Equal(t, int64(12), *txs[0].OrderID)
	assert.Equal(t, models.LoyaltyRedeem, txs[1].Type)
	assert.Equal(t, int64(100), txs[1].Points)

	a, err := svc.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), a.Points)
}

func TestRedeemReward(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewLoyaltyService(st, clk)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, 1)
	require.NoError(t, err)
	_, err = svc.EarnPoints(ctx, 1, 400, "welcome", nil)
	require.NoError(t, err)

	reward, err := svc.CreateReward(ctx, models.LoyaltyReward{Name: "Free delivery", PointsCost: 250})
	require.NoError(t, err)
	assert.Len(t, svc.ListRewards(ctx), 1)

	red, err := svc.RedeemReward(ctx, 1, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), red.PointsSpent)
	assert.NotEmpty(t, red.Code)

	_, err = svc.RedeemReward(ctx, 1, reward.ID)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 1, st.Redemptions.Len())

	_, err = svc.RedeemReward(ctx, 1, 77)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReferrals(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewLoyaltyService(st, clk)
	ctx := context.Background()

	owner, err := svc.CreateAccount(ctx, 1)
	require.NoError(t, err)
	other, err := svc.CreateAccount(ctx, 2)
	require.NoError(t, err)
	assert.NotEqual(t, owner.ReferralCode, other.ReferralCode)

	_, err = svc.CreateAccount(ctx, 1)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.ApplyReferral(ctx, owner.ReferralCode, 1)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.ApplyReferral(ctx, "REF-NOPE", 2)
	assert.True(t, errors.Is(err, ErrNotFound))

	updated, err := svc.ApplyReferral(ctx, owner.ReferralCode, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ReferralCount)
}
