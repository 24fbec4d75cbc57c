package service

import (
	"context"
	"math"
	"sort"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// KmPerDegree converts a flat degree distance to kilometers
	KmPerDegree = 111.0
	// DefaultZoneVertexRadiusKm is how close a driver must be to a zone vertex
	DefaultZoneVertexRadiusKm = 2.0
)

// LocationMirror copies driver positions to a shared cache for other services
// and reads them back for drivers this process has not seen.
// redisclient.Client is the Redis implementation.
type LocationMirror interface {
	MirrorDriverLocation(ctx context.Context, loc models.DriverLocation) error
	GetDriverLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error)
}

// NearbyDriver is a driver location with its distance to the query point
type NearbyDriver struct {
	models.DriverLocation
	DistanceKm float64 `json:"distance_km"`
}

// GeoService matches drivers to points and zones from their latest pings
type GeoService struct {
	store        *store.Store
	mirror       LocationMirror
	clock        clock.Clock
	vertexRadius float64
	logger       *zap.Logger
}

// NewGeoService creates a new geo service. mirror may be nil. A non-positive
// vertexRadiusKm falls back to DefaultZoneVertexRadiusKm.
func NewGeoService(store *store.Store, mirror LocationMirror, clk clock.Clock, vertexRadiusKm float64) *GeoService {
	if vertexRadiusKm <= 0 {
		vertexRadiusKm = DefaultZoneVertexRadiusKm
	}
	return &GeoService{
		store:        store,
		mirror:       mirror,
		clock:        clk,
		vertexRadius: vertexRadiusKm,
		logger:       util.GetLogger(),
	}
}

// DistanceKm is the flat-earth distance between two points
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat1 - lat2
	dLng := lng1 - lng2
	return math.Sqrt(dLat*dLat+dLng*dLng) * KmPerDegree
}

// UpdateDriverLocation replaces the driver's last known position, stamped now
func (s *GeoService) UpdateDriverLocation(ctx context.Context, input models.DriverLocation) (*models.DriverLocation, error) {
	ctx, span := util.StartSpan(ctx, "GeoService.UpdateDriverLocation",
		attribute.Int64("driver_id", input.DriverID))
	defer span.End()

	if input.Latitude < -90 || input.Latitude > 90 {
		return nil, invalid("latitude", "must be between -90 and 90")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return nil, invalid("longitude", "must be between -180 and 180")
	}

	loc := input
	loc.UpdatedAt = s.clock.Now()

	unlock := s.store.DriverLocations.Lock(loc.DriverID)
	s.store.DriverLocations.Put(loc.DriverID, loc)
	unlock()

	util.DriverLocationUpdatesTotal.Inc()

	if s.mirror != nil {
		if err := s.mirror.MirrorDriverLocation(ctx, loc); err != nil {
			s.logger.Warn("Failed to mirror driver location",
				zap.Int64("driver_id", loc.DriverID),
				zap.Error(err))
		}
	}

	return &loc, nil
}

// GetDriverLocation returns the latest position of a driver. Drivers that
// pinged another instance, or this one before a restart, are read from the
// mirror.
func (s *GeoService) GetDriverLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error) {
	if loc, ok := s.store.DriverLocations.Get(driverID); ok {
		return &loc, nil
	}
	if s.mirror == nil {
		return nil, notFound("driver location", driverID)
	}

	loc, err := s.mirror.GetDriverLocation(ctx, driverID)
	if err != nil {
		s.logger.Debug("No mirrored driver location",
			zap.Int64("driver_id", driverID),
			zap.Error(err))
		return nil, notFound("driver location", driverID)
	}
	return loc, nil
}

// GetNearbyDrivers returns drivers within radiusKm of a point, closest first
func (s *GeoService) GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyDriver, error) {
	if radiusKm < 0 {
		return nil, invalid("radius", "must not be negative")
	}

	var nearby []NearbyDriver
	for _, loc := range s.store.DriverLocations.List(nil) {
		d := DistanceKm(lat, lng, loc.Latitude, loc.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, NearbyDriver{DriverLocation: loc, DistanceKm: d})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// CreateZone adds a delivery zone
func (s *GeoService) CreateZone(ctx context.Context, input models.DeliveryZone) (*models.DeliveryZone, error) {
	if input.Name == "" {
		return nil, invalid("name", "required")
	}
	if len(input.Polygon) < 3 {
		return nil, invalid("polygon", "needs at least three vertices")
	}
	if input.DeliveryFee.IsNegative() {
		return nil, invalid("delivery_fee", "must not be negative")
	}

	polygon := make([]models.LatLng, len(input.Polygon))
	copy(polygon, input.Polygon)

	now := s.clock.Now()
	z := s.store.Zones.Insert(func(id int64) models.DeliveryZone {
		z := input
		z.ID = id
		z.Polygon = polygon
		z.ActiveDrivers = 0
		z.CreatedAt = now
		return z
	})
	return &z, nil
}

// GetZone returns a zone with its current active driver count
func (s *GeoService) GetZone(ctx context.Context, zoneID int64) (*models.DeliveryZone, error) {
	z, ok := s.store.Zones.Get(zoneID)
	if !ok {
		return nil, notFound("zone", zoneID)
	}
	z.ActiveDrivers = len(s.driversNear(z.Polygon))
	return &z, nil
}

// ListZones lists zones with their current active driver counts
func (s *GeoService) ListZones(ctx context.Context) []models.DeliveryZone {
	zones := s.store.Zones.List(nil)
	for i := range zones {
		zones[i].ActiveDrivers = len(s.driversNear(zones[i].Polygon))
	}
	return zones
}

// GetAvailableDriversInZone returns drivers close to any vertex of the zone
// polygon. This approximates containment; drivers deep inside a large zone
// may be missed.
func (s *GeoService) GetAvailableDriversInZone(ctx context.Context, zoneID int64) ([]models.DriverLocation, error) {
	z, ok := s.store.Zones.Get(zoneID)
	if !ok {
		return nil, notFound("zone", zoneID)
	}
	return s.driversNear(z.Polygon), nil
}

func (s *GeoService) driversNear(polygon []models.LatLng) []models.DriverLocation {
	return s.store.DriverLocations.List(func(loc models.DriverLocation) bool {
		for _, v := range polygon {
			if DistanceKm(loc.Latitude, loc.Longitude, v.Lat, v.Lng) <= s.vertexRadius {
				return true
			}
		}
		return false
	})
}

// CreateRoute plans a delivery run for a driver
func (s *GeoService) CreateRoute(ctx context.Context, input models.DeliveryRoute) (*models.DeliveryRoute, error) {
	if len(input.OrderIDs) == 0 {
		return nil, invalid("order_ids", "route must contain at least one order")
	}
	for _, id := range input.OrderIDs {
		if _, ok := s.store.Orders.Get(id); !ok {
			return nil, notFound("order", id)
		}
	}

	orderIDs := make([]int64, len(input.OrderIDs))
	copy(orderIDs, input.OrderIDs)

	now := s.clock.Now()
	r := s.store.Routes.Insert(func(id int64) models.DeliveryRoute {
		return models.DeliveryRoute{
			ID:         id,
			DriverID:   input.DriverID,
			OrderIDs:   orderIDs,
			Status:     models.RouteStatusPlanned,
			DistanceKm: input.DistanceKm,
			CreatedAt:  now,
		}
	})
	return &r, nil
}

// RoutesByDriver lists the routes of a driver
func (s *GeoService) RoutesByDriver(ctx context.Context, driverID int64) []models.DeliveryRoute {
	return s.store.Routes.List(func(r models.DeliveryRoute) bool { return r.DriverID == driverID })
}
