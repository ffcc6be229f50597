package handlers

import (
	"net/http"

	"doemais/services/rating"
	"doemais/utils"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	RatingService rating.RatingService
}

// CreateRatingHandler handles POST /api/ratings.
func (h *RatingHandler) CreateRatingHandler(c *gin.Context) {
	var req rating.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.RatingService.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// EligibilityHandler handles GET /api/ratings/eligibility?institutionId=&donationId=.
func (h *RatingHandler) EligibilityHandler(c *gin.Context) {
	err := h.RatingService.CheckUserCanRate(c.Request.Context(), currentUserID(c), c.Query("institutionId"), c.Query("donationId"))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"canRate": true})
		return
	}
	if status := utils.StatusFor(err); status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		c.JSON(http.StatusOK, gin.H{"canRate": false, "reason": err.Error()})
		return
	}
	utils.RespondError(c, err)
}

// RespondRatingHandler handles PUT /api/ratings/:id/response.
func (h *RatingHandler) RespondRatingHandler(c *gin.Context) {
	var req struct {
		Response string `json:"response" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.RatingService.Respond(c.Request.Context(), c.Param("id"), currentUserID(c), req.Response)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
