package handlers

import (
	"net/http"

	"doemais/services/donation"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUploadBytes bounds a single donation image.
const maxUploadBytes = 10 << 20

type DonationHandler struct {
	DonationService donation.DonationService
}

// CreateDonationHandler handles POST /api/donations.
func (h *DonationHandler) CreateDonationHandler(c *gin.Context) {
	var req donation.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.DonationService.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		getLogger(c).Warn("Donation create failed", zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// MyDonationsHandler handles GET /api/donations/mine.
func (h *DonationHandler) MyDonationsHandler(c *gin.Context) {
	list, err := h.DonationService.ListByDonor(c.Request.Context(), currentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// StatsHandler handles GET /api/donations/stats.
func (h *DonationHandler) StatsHandler(c *gin.Context) {
	stats, err := h.DonationService.Stats(c.Request.Context(), currentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetDonationHandler handles GET /api/donations/:id.
func (h *DonationHandler) GetDonationHandler(c *gin.Context) {
	d, err := h.DonationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateDonationHandler handles PATCH /api/donations/:id.
func (h *DonationHandler) UpdateDonationHandler(c *gin.Context) {
	var req donation.UpdateInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.DonationService.Update(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDonationHandler handles DELETE /api/donations/:id.
func (h *DonationHandler) DeleteDonationHandler(c *gin.Context) {
	if err := h.DonationService.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Donation deleted"})
}

// ScheduleDonationHandler handles POST /api/donations/:id/schedule.
func (h *DonationHandler) ScheduleDonationHandler(c *gin.Context) {
	var req donation.ScheduleInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.DonationService.Schedule(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		getLogger(c).Warn("Donation schedule failed", zap.String("id", c.Param("id")), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeliverDonationHandler handles POST /api/donations/:id/deliver.
func (h *DonationHandler) DeliverDonationHandler(c *gin.Context) {
	d, err := h.DonationService.MarkDelivered(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CancelDonationHandler handles POST /api/donations/:id/cancel.
func (h *DonationHandler) CancelDonationHandler(c *gin.Context) {
	d, err := h.DonationService.Cancel(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UploadImageHandler handles POST /api/donations/:id/images. It takes a
// multipart "file" field, or a JSON body {"url": ...} for an image hosted elsewhere.
func (h *DonationHandler) UploadImageHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var req struct {
			URL string `json:"url" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		d, err := h.DonationService.AddImage(ctx, id, currentUserID(c), req.URL)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
		return
	}

	if fileHeader.Size > maxUploadBytes {
		utils.JSONError(c, http.StatusBadRequest, "file too large", "images are limited to 10MB")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "file not readable", err.Error())
		return
	}
	defer file.Close()

	d, err := h.DonationService.UploadImage(ctx, id, currentUserID(c), file, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		getLogger(c).Warn("Image upload failed", zap.String("id", id), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
