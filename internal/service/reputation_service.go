package service

import (
	"context"
	"errors"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"go.uber.org/zap"
)

// Vendor badge and tier thresholds
const (
	topRatedMin         = 4.5
	fastDeliveryMin     = 4.0
	excellentServiceMin = 4.5
)

var vendorTiers = []struct {
	tier       models.VendorTier
	minReviews int
	minRating  float64
}{
	{models.VendorPlatinum, 100, 4.7},
	{models.VendorGold, 50, 4.5},
	{models.VendorSilver, 20, 4.3},
}

// ReputationService owns vendor reviews and the performance derived from them
type ReputationService struct {
	store  *store.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewReputationService creates a new reputation service
func NewReputationService(store *store.Store, clk clock.Clock) *ReputationService {
	return &ReputationService{
		store:  store,
		clock:  clk,
		logger: util.GetLogger(),
	}
}

// AddReview stores a review and recomputes the vendor's performance
func (s *ReputationService) AddReview(ctx context.Context, input models.VendorReview) (*models.VendorReview, *models.VendorPerformance, error) {
	for _, r := range []struct {
		field string
		value int
	}{
		{"rating", input.Rating},
		{"food_quality_rating", input.FoodQualityRating},
		{"delivery_time_rating", input.DeliveryTimeRating},
		{"customer_service_rating", input.CustomerServiceRating},
	} {
		if r.value < 1 || r.value > 5 {
			return nil, nil, invalid(r.field, "must be between 1 and 5")
		}
	}

	now := s.clock.Now()
	review := s.store.Reviews.Insert(func(id int64) models.VendorReview {
		return models.VendorReview{
			ID:                    id,
			VendorID:              input.VendorID,
			CustomerID:            input.CustomerID,
			OrderID:               input.OrderID,
			Rating:                input.Rating,
			FoodQualityRating:     input.FoodQualityRating,
			DeliveryTimeRating:    input.DeliveryTimeRating,
			CustomerServiceRating: input.CustomerServiceRating,
			Comment:               input.Comment,
			CreatedAt:             now,
		}
	})
	util.ReviewsTotal.Inc()

	perf := s.RecomputeVendorPerformance(ctx, review.VendorID)
	return &review, &perf, nil
}

// ListReviews lists the reviews of a vendor
func (s *ReputationService) ListReviews(ctx context.Context, vendorID int64) []models.VendorReview {
	return s.store.Reviews.List(func(r models.VendorReview) bool { return r.VendorID == vendorID })
}

// MarkHelpful counts a helpful or unhelpful vote on a review
func (s *ReputationService) MarkHelpful(ctx context.Context, reviewID int64, helpful bool) (*models.VendorReview, error) {
	r, err := s.store.Reviews.Update(reviewID, func(r *models.VendorReview) error {
		if helpful {
			r.Helpful++
		} else {
			r.Unhelpful++
		}
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("review", reviewID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RespondToReview stores the vendor's first response to a review and
// refreshes the vendor's response metrics.
func (s *ReputationService) RespondToReview(ctx context.Context, reviewID int64, response string) (*models.VendorReview, error) {
	if response == "" {
		return nil, invalid("response", "required")
	}

	now := s.clock.Now()
	r, err := s.store.Reviews.Update(reviewID, func(r *models.VendorReview) error {
		if r.RespondedAt != nil {
			return invalid("response", "review already has a response")
		}
		r.Response = response
		at := now
		r.RespondedAt = &at
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("review", reviewID)
	}
	if err != nil {
		return nil, err
	}

	s.RecomputeVendorPerformance(ctx, r.VendorID)
	return &r, nil
}

// GetPerformance returns the derived performance of a vendor
func (s *ReputationService) GetPerformance(ctx context.Context, vendorID int64) (*models.VendorPerformance, error) {
	p, ok := s.store.Performance.Get(vendorID)
	if !ok {
		return nil, notFound("vendor performance", vendorID)
	}
	return &p, nil
}

// RecomputeVendorPerformance rebuilds a vendor's performance from its current
// reviews and stores it. The vendor key lock keeps concurrent recomputes from
// storing a stale snapshot.
func (s *ReputationService) RecomputeVendorPerformance(ctx context.Context, vendorID int64) models.VendorPerformance {
	unlock := s.store.Performance.Lock(vendorID)
	defer unlock()

	perf := ComputePerformance(vendorID, s.ListReviews(ctx, vendorID))
	perf.UpdatedAt = s.clock.Now()
	s.store.Performance.Put(vendorID, perf)

	s.logger.Debug("Vendor performance recomputed",
		zap.Int64("vendor_id", vendorID),
		zap.Int("reviews", perf.TotalReviews),
		zap.Float64("rating", perf.AverageRating),
		zap.String("tier", string(perf.Tier)))
	return perf
}

// ComputePerformance derives averages, badges and tier from a review set.
// UpdatedAt is left zero.
func ComputePerformance(vendorID int64, reviews []models.VendorReview) models.VendorPerformance {
	perf := models.VendorPerformance{
		VendorID: vendorID,
		Badges:   []string{},
		Tier:     models.VendorBronze,
	}
	n := len(reviews)
	if n == 0 {
		return perf
	}

	var rating, food, delivery, service float64
	var responded int
	var responseMinutes float64
	for _, r := range reviews {
		rating += float64(r.Rating)
		food += float64(r.FoodQualityRating)
		delivery += float64(r.DeliveryTimeRating)
		service += float64(r.CustomerServiceRating)
		if r.RespondedAt != nil {
			responded++
			responseMinutes += r.RespondedAt.Sub(r.CreatedAt).Minutes()
		}
	}

	perf.TotalReviews = n
	perf.AverageRating = rating / float64(n)
	perf.AverageFoodQuality = food / float64(n)
	perf.AverageDeliveryTime = delivery / float64(n)
	perf.AverageCustomerService = service / float64(n)
	perf.ResponseRate = float64(responded) / float64(n) * 100
	if responded > 0 {
		perf.ResponseTimeMinutes = responseMinutes / float64(responded)
	}

	if perf.AverageRating >= topRatedMin {
		perf.Badges = append(perf.Badges, models.BadgeTopRated)
	}
	if perf.AverageDeliveryTime >= fastDeliveryMin {
		perf.Badges = append(perf.Badges, models.BadgeFastDelivery)
	}
	if perf.AverageCustomerService >= excellentServiceMin {
		perf.Badges = append(perf.Badges, models.BadgeExcellentService)
	}

	for _, t := range vendorTiers {
		if n >= t.minReviews && perf.AverageRating >= t.minRating {
			perf.Tier = t.tier
			break
		}
	}
	return perf
}
