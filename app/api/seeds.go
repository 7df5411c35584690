// Package api contains the JSON endpoints
package api

import (
	"net/http"
	"time"

	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/model"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// listing is what the API exposes of a seed. Owner emails stay out of it,
// contact goes through the site.
type listing struct {
	ID                 string    `json:"id"`
	PlantType          string    `json:"plant_type"`
	VarietyName        string    `json:"variety_name"`
	VarietyDescription string    `json:"variety_description"`
	Image              string    `json:"image,omitempty"`
	OwnerUsername      string    `json:"owner_username,omitempty"`
	OwnerLocation      string    `json:"owner_location,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func toListings(d *internal.Deps, in []model.Listing) []listing {
	out := make([]listing, 0, len(in))

	for _, l := range in {
		out = append(out, listing{
			ID:                 l.ID,
			PlantType:          l.PlantType,
			VarietyName:        l.VarietyName,
			VarietyDescription: l.VarietyDescription,
			Image:              d.Images.OptimizedURL(l.Image, storage.TransformOpts{}),
			OwnerUsername:      l.OwnerUsername,
			OwnerLocation:      l.OwnerLocation,
			CreatedAt:          l.CreatedAt,
		})
	}

	return out
}

func SeedsFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)

	seeds, err := d.Seeds.ListAll(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch seeds", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, toListings(d, seeds))
}

func SeedsSearch(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)

	seeds, err := d.Seeds.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to search seeds", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, toListings(d, seeds))
}

// SeedsMine lists the caller's own seeds. Owner fields are left out, they're
// the caller's.
func SeedsMine(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)

	seeds, err := d.Seeds.ListMine(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch own seeds", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	own := make([]model.Listing, 0, len(seeds))
	for _, s := range seeds {
		own = append(own, model.Listing{Seed: s})
	}

	c.JSON(http.StatusOK, toListings(d, own))
}
