package api

import (
	"net/http"
	"strconv"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

const defaultNearbyRadiusKm = 5

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
}

func (h *Handler) geoRoutes(v1 *gin.RouterGroup) {
	v1.GET("/drivers/nearby", h.nearbyDrivers)
	v1.PUT("/drivers/:id/location", h.updateDriverLocation)
	v1.GET("/drivers/:id/location", h.getDriverLocation)
	v1.GET("/drivers/:id/routes", h.driverRoutes)

	v1.POST("/zones", h.createZone)
	v1.GET("/zones", h.listZones)
	v1.GET("/zones/:id", h.getZone)
	v1.GET("/zones/:id/drivers", h.zoneDrivers)

	v1.POST("/routes", h.createRoute)
}

func (h *Handler) updateDriverLocation(c *gin.Context) {
	driverID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req locationRequest
	if !bindJSON(c, &req) {
		return
	}

	loc, err := h.svc.Geo.UpdateDriverLocation(c.Request.Context(), models.DriverLocation{
		DriverID:  driverID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Heading:   req.Heading,
		Speed:     req.Speed,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (h *Handler) getDriverLocation(c *gin.Context) {
	driverID, ok := idParam(c, "id")
	if !ok {
		return
	}

	loc, err := h.svc.Geo.GetDriverLocation(c.Request.Context(), driverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loc)
}

// nearbyDrivers handles ?lat=&lng=&radius= lookups, radius in km
func (h *Handler) nearbyDrivers(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "lat and lng are required",
		})
		return
	}

	radius := float64(defaultNearbyRadiusKm)
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid radius",
			})
			return
		}
		radius = r
	}

	drivers, err := h.svc.Geo.GetNearbyDrivers(c.Request.Context(), lat, lng, radius)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, drivers)
}

func (h *Handler) createZone(c *gin.Context) {
	var req models.DeliveryZone
	if !bindJSON(c, &req) {
		return
	}

	zone, err := h.svc.Geo.CreateZone(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, zone)
}

func (h *Handler) listZones(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Geo.ListZones(c.Request.Context()))
}

func (h *Handler) getZone(c *gin.Context) {
	zoneID, ok := idParam(c, "id")
	if !ok {
		return
	}

	zone, err := h.svc.Geo.GetZone(c.Request.Context(), zoneID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, zone)
}

func (h *Handler) zoneDrivers(c *gin.Context) {
	zoneID, ok := idParam(c, "id")
	if !ok {
		return
	}

	drivers, err := h.svc.Geo.GetAvailableDriversInZone(c.Request.Context(), zoneID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, drivers)
}

func (h *Handler) createRoute(c *gin.Context) {
	var req models.DeliveryRoute
	if !bindJSON(c, &req) {
		return
	}

	route, err := h.svc.Geo.CreateRoute(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, route)
}

func (h *Handler) driverRoutes(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Geo.RoutesByDriver(c.Request.Context(), id))
	}
}
