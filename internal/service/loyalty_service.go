package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Loyalty tier thresholds in points
const (
	SilverPoints   = 1000
	GoldPoints     = 3000
	PlatinumPoints = 5000
)

// TierFor derives the loyalty tier from a point balance
func TierFor(points int64) models.LoyaltyTier {
	switch {
	case points >= PlatinumPoints:
		return models.TierPlatinum
	case points >= GoldPoints:
		return models.TierGold
	case points >= SilverPoints:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// LoyaltyService owns loyalty accounts, their point log, rewards and redemptions
type LoyaltyService struct {
	store  *store.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewLoyaltyService creates a new loyalty service
func NewLoyaltyService(store *store.Store, clk clock.Clock) *LoyaltyService {
	return &LoyaltyService{
		store:  store,
		clock:  clk,
		logger: util.GetLogger(),
	}
}

// CreateAccount opens the loyalty account of a customer with a fresh referral code
func (s *LoyaltyService) CreateAccount(ctx context.Context, customerID int64) (*models.LoyaltyAccount, error) {
	unlock := s.store.Lock(fmt.Sprintf("loyalty_owner:%d", customerID))
	defer unlock()

	if _, ok := s.findAccount(customerID); ok {
		return nil, invalid("customer_id", "loyalty account already exists")
	}

	now := s.clock.Now()
	a := s.store.LoyaltyAccounts.Insert(func(id int64) models.LoyaltyAccount {
		return models.LoyaltyAccount{
			ID:           id,
			CustomerID:   customerID,
			Tier:         TierFor(0),
			ReferralCode: newCode("REF"),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	})
	return &a, nil
}

func newCode(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:8])
}

// GetAccount retrieves the loyalty account of a customer
func (s *LoyaltyService) GetAccount(ctx context.Context, customerID int64) (*models.LoyaltyAccount, error) {
	a, ok := s.findAccount(customerID)
	if !ok {
		return nil, notFound("loyalty account for customer", customerID)
	}
	return &a, nil
}

func (s *LoyaltyService) findAccount(customerID int64) (models.LoyaltyAccount, bool) {
	return s.store.LoyaltyAccounts.Find(func(a models.LoyaltyAccount) bool {
		return a.CustomerID == customerID
	})
}

// UpdateLoyaltyPoints adds a signed delta to the customer's points and
// recomputes the tier from the new total. No transaction is logged; use
// EarnPoints or RedeemPoints for that.
func (s *LoyaltyService) UpdateLoyaltyPoints(ctx context.Context, customerID int64, delta int64) (*models.LoyaltyAccount, error) {
	a, ok := s.findAccount(customerID)
	if !ok {
		return nil, notFound("loyalty account for customer", customerID)
	}

	updated, err := s.store.LoyaltyAccounts.Update(a.ID, func(a *models.LoyaltyAccount) error {
		applyPoints(a, delta, s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observeTier(a, updated)
	return &updated, nil
}

func applyPoints(a *models.LoyaltyAccount, delta int64, now time.Time) {
	a.Points += delta
	if delta > 0 {
		a.TotalPointsEarned += delta
		util.LoyaltyPointsTotal.WithLabelValues(string(models.LoyaltyEarn)).Add(float64(delta))
	} else if delta < 0 {
		a.TotalPointsRedeemed += -delta
		util.LoyaltyPointsTotal.WithLabelValues(string(models.LoyaltyRedeem)).Add(float64(-delta))
	}
	a.Tier = TierFor(a.Points)
	a.UpdatedAt = now
}

func (s *LoyaltyService) observeTier(before, after models.LoyaltyAccount) {
	if before.Tier != after.Tier {
		s.logger.Info("Loyalty tier changed",
			zap.Int64("customer_id", after.CustomerID),
			zap.String("from", string(before.Tier)),
			zap.String("to", string(after.Tier)),
			zap.Int64("points", after.Points))
	}
}

// EarnPoints credits points and logs an earn transaction as one unit
func (s *LoyaltyService) EarnPoints(ctx context.Context, customerID, points int64, description string, orderID *int64) (*models.LoyaltyAccount, error) {
	if points <= 0 {
		return nil, invalid("points", "must be positive")
	}
	return s.applyLogged(ctx, customerID, points, models.LoyaltyEarn, description, orderID)
}

// RedeemPoints debits points and logs a redeem transaction as one unit.
// The balance may not go below zero.
func (s *LoyaltyService) RedeemPoints(ctx context.Context, customerID, points int64, description string, orderID *int64) (*models.LoyaltyAccount, error) {
	if points <= 0 {
		return nil, invalid("points", "must be positive")
	}
	return s.applyLogged(ctx, customerID, -points, models.LoyaltyRedeem, description, orderID)
}

func (s *LoyaltyService) applyLogged(ctx context.Context, customerID, delta int64, txType models.LoyaltyTransactionType, description string, orderID *int64) (*models.LoyaltyAccount, error) {
	_, span := util.StartSpan(ctx, "LoyaltyService.applyLogged",
		attribute.Int64("customer_id", customerID),
		attribute.Int64("delta", delta))
	defer span.End()

	a, ok := s.findAccount(customerID)
	if !ok {
		return nil, notFound("loyalty account for customer", customerID)
	}

	unlock := s.store.LoyaltyAccounts.Lock(a.ID)
	defer unlock()

	now := s.clock.Now()
	updated, err := s.store.LoyaltyAccounts.UpdateLocked(a.ID, func(a *models.LoyaltyAccount) error {
		if a.Points+delta < 0 {
			return invalid("points", "insufficient loyalty points")
		}
		applyPoints(a, delta, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	points := delta
	if points < 0 {
		points = -points
	}
	s.store.LoyaltyTransactions.Insert(func(id int64) models.LoyaltyTransaction {
		return models.LoyaltyTransaction{
			ID:          id,
			AccountID:   updated.ID,
			Type:        txType,
			Points:      points,
			Description: description,
			OrderID:     orderID,
			CreatedAt:   now,
		}
	})

	s.observeTier(a, updated)
	return &updated, nil
}

// ListTransactions lists the point log of a customer
func (s *LoyaltyService) ListTransactions(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error) {
	a, ok := s.findAccount(customerID)
	if !ok {
		return nil, notFound("loyalty account for customer", customerID)
	}
	return s.store.LoyaltyTransactions.List(func(t models.LoyaltyTransaction) bool {
		return t.AccountID == a.ID
	}), nil
}

// CreateReward adds a reward to the catalog
func (s *LoyaltyService) CreateReward(ctx context.Context, input models.LoyaltyReward) (*models.LoyaltyReward, error) {
	if input.Name == "" {
		return nil, invalid("name", "required")
	}
	if input.PointsCost <= 0 {
		return nil, invalid("points_cost", "must be positive")
	}

	now := s.clock.Now()
	r := s.store.Rewards.Insert(func(id int64) models.LoyaltyReward {
		r := input
		r.ID = id
		r.Active = true
		r.CreatedAt = now
		return r
	})
	return &r, nil
}

// ListRewards lists active rewards
func (s *LoyaltyService) ListRewards(ctx context.Context) []models.LoyaltyReward {
	return s.store.Rewards.List(func(r models.LoyaltyReward) bool { return r.Active })
}

// RedeemReward spends the reward's point cost and records a redemption
func (s *LoyaltyService) RedeemReward(ctx context.Context, customerID, rewardID int64) (*models.Redemption, error) {
	reward, ok := s.store.Rewards.Get(rewardID)
	if !ok || !reward.Active {
		return nil, notFound("reward", rewardID)
	}

	account, err := s.RedeemPoints(ctx, customerID, reward.PointsCost, "Redeemed "+reward.Name, nil)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	red := s.store.Redemptions.Insert(func(id int64) models.Redemption {
		return models.Redemption{
			ID:          id,
			AccountID:   account.ID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsCost,
			Code:        newCode("RWD"),
			CreatedAt:   now,
		}
	})

	s.logger.Info("Reward redeemed",
		zap.Int64("customer_id", customerID),
		zap.Int64("reward_id", rewardID),
		zap.String("code", red.Code))
	return &red, nil
}

// ApplyReferral credits a referral to the owner of code. Customers cannot
// refer themselves.
func (s *LoyaltyService) ApplyReferral(ctx context.Context, code string, newCustomerID int64) (*models.LoyaltyAccount, error) {
	referrer, ok := s.store.LoyaltyAccounts.Find(func(a models.LoyaltyAccount) bool {
		return a.ReferralCode == code
	})
	if !ok {
		return nil, &NotFoundError{Entity: "referral code", Key: code}
	}
	if referrer.CustomerID == newCustomerID {
		return nil, invalid("referral_code", "cannot refer yourself")
	}

	updated, err := s.store.LoyaltyAccounts.Update(referrer.ID, func(a *models.LoyaltyAccount) error {
		a.ReferralCount++
		a.UpdatedAt = s.clock.Now()
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("loyalty account", referrer.ID)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
