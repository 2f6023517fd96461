package handlers

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/culturalx/backend/internal/models"
	"github.com/culturalx/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// GetCities lists cities. By default only cities with visible content
// appear; ?all=true includes empty seed cities for the city picker.
// GET /api/cities
func (h *Handlers) GetCities(c *gin.Context) {
	query := h.db.Model(&models.City{})

	if c.Query("all") != "true" {
		query = query.Where("has_content = ?", true)
	}
	if country := c.Query("country"); country != "" {
		query = query.Where("country = ?", country)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}

	var cities []models.City
	if err := query.Order("content_count DESC, name ASC").Limit(util.ParseLimit(c, 100, 500)).Find(&cities).Error; err != nil {
		util.RespondInternalError(c, "failed to load cities")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// GetNearestCities returns cities ordered by distance from a point
// GET /api/cities/nearest?lat=...&lon=...&limit=...
func (h *Handlers) GetNearestCities(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		util.RespondValidationError(c, "lat", "must be a valid latitude")
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		util.RespondValidationError(c, "lon", "must be a valid longitude")
		return
	}
	limit := util.ParseLimit(c, 10, 50)

	var cities []models.City
	if err := h.db.Find(&cities).Error; err != nil {
		util.RespondInternalError(c, "failed to load cities")
		return
	}

	sort.Slice(cities, func(i, j int) bool {
		return haversineKm(lat, lon, cities[i].Latitude, cities[i].Longitude) <
			haversineKm(lat, lon, cities[j].Latitude, cities[j].Longitude)
	})
	if len(cities) > limit {
		cities = cities[:limit]
	}

	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// GetCity returns one city
// GET /api/cities/:id
func (h *Handlers) GetCity(c *gin.Context) {
	var city models.City
	if err := h.db.First(&city, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "city")
		return
	}

	c.JSON(http.StatusOK, gin.H{"city": city})
}

// GetCityPosts returns a city's approved posts, newest first
// GET /api/cities/:id/posts
func (h *Handlers) GetCityPosts(c *gin.Context) {
	var city models.City
	if err := h.db.First(&city, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "city")
		return
	}

	limit := util.ParseLimit(c, 20, 50)

	query := h.db.Preload("User").
		Where("city_id = ? AND status = ?", city.ID, models.PostStatusApproved)
	if postType := c.Query("type"); postType != "" {
		query = query.Where("type = ?", postType)
	}
	if cursor := c.Query("cursor"); cursor != "" {
		query = query.Where("created_at < (SELECT created_at FROM posts WHERE id = ?)", cursor)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "failed to load city posts")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	nextCursor := ""
	if hasMore && len(posts) > 0 {
		nextCursor = posts[len(posts)-1].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"city":        city,
		"posts":       posts,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}
