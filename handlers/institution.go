package handlers

import (
	"net/http"
	"strings"

	"doemais/models"
	"doemais/services/donation"
	"doemais/services/institution"
	"doemais/services/rating"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InstitutionHandler struct {
	InstitutionService institution.InstitutionService
	RatingService      rating.RatingService
	DonationService    donation.DonationService
}

// searchQuery is the query string of GET /api/institutions. List values may
// be repeated or comma-separated.
type searchQuery struct {
	Q           string   `form:"q"`
	Categories  []string `form:"categories"`
	Types       []string `form:"types"`
	MinRating   float64  `form:"minRating"`
	MaxDistance *float64 `form:"maxDistance"`
	OpenNow     bool     `form:"openNow"`
	Lat         *float64 `form:"lat"`
	Lng         *float64 `form:"lng"`
	SortBy      string   `form:"sortBy"`
}

func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q searchQuery) criteria() models.FilterCriteria {
	criteria := models.DefaultFilterCriteria()
	criteria.Search = q.Q
	criteria.Categories = splitList(q.Categories)
	for _, t := range splitList(q.Types) {
		criteria.Types = append(criteria.Types, models.InstitutionType(t))
	}
	criteria.MinRating = q.MinRating
	if q.MaxDistance != nil {
		criteria.MaxDistanceKm = *q.MaxDistance
	}
	criteria.OpenNow = q.OpenNow
	criteria.SortBy = models.SortKey(q.SortBy)
	return criteria
}

func (q searchQuery) origin() (*models.Coordinate, bool) {
	if q.Lat == nil && q.Lng == nil {
		return nil, true
	}
	if q.Lat == nil || q.Lng == nil {
		return nil, false
	}
	return &models.Coordinate{Lat: *q.Lat, Lng: *q.Lng}, true
}

// SearchInstitutionsHandler handles GET /api/institutions.
func (h *InstitutionHandler) SearchInstitutionsHandler(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	origin, ok := q.origin()
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "invalid query", "lat and lng must be given together")
		return
	}

	listings, err := h.InstitutionService.Search(c.Request.Context(), q.criteria(), origin)
	if err != nil {
		getLogger(c).Warn("Institution search failed", zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(listings), "institutions": listings})
}

// GetInstitutionHandler handles GET /api/institutions/:id.
func (h *InstitutionHandler) GetInstitutionHandler(c *gin.Context) {
	detail, err := h.InstitutionService.GetInstitution(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListRatingsHandler handles GET /api/institutions/:id/ratings.
func (h *InstitutionHandler) ListRatingsHandler(c *gin.Context) {
	list, err := h.RatingService.ListByInstitution(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListDonationsHandler handles GET /api/institutions/:id/donations.
func (h *InstitutionHandler) ListDonationsHandler(c *gin.Context) {
	list, err := h.DonationService.ListByInstitution(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateInstitutionHandler handles PATCH /api/institutions/:id.
func (h *InstitutionHandler) UpdateInstitutionHandler(c *gin.Context) {
	var patch institution.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	inst, err := h.InstitutionService.UpdateInstitution(c.Request.Context(), c.Param("id"), currentUserID(c), patch)
	if err != nil {
		getLogger(c).Warn("Institution update failed", zap.String("id", c.Param("id")), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// UpdateWorkingHoursHandler handles PUT /api/institutions/:id/working-hours.
func (h *InstitutionHandler) UpdateWorkingHoursHandler(c *gin.Context) {
	var req struct {
		WorkingHours []models.WorkingHours `json:"workingHours" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	inst, err := h.InstitutionService.UpdateWorkingHours(c.Request.Context(), c.Param("id"), currentUserID(c), req.WorkingHours)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// UpdateCategoriesHandler handles PUT /api/institutions/:id/categories.
func (h *InstitutionHandler) UpdateCategoriesHandler(c *gin.Context) {
	var req struct {
		Categories []string `json:"categories" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	inst, err := h.InstitutionService.UpdateAcceptedCategories(c.Request.Context(), c.Param("id"), currentUserID(c), req.Categories)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}
