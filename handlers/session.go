package handlers

import (
	"context"
	"net/http"
	"time"

	"doemais/middleware"
	"doemais/models"
	"doemais/services/geo"
	"doemais/services/institution"
	"doemais/services/session"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// readyWait bounds how long session creation waits for the auth check.
const readyWait = 5 * time.Second

type SessionHandler struct {
	Sessions     *session.Manager
	Institutions institution.InstitutionService
	Locations    *geo.Provider
}

func (h *SessionHandler) store(c *gin.Context) (*session.Store, bool) {
	s, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return s, true
}

// OpenSessionHandler handles POST /api/sessions. A bearer token, if sent,
// restores the signed-in user.
func (h *SessionHandler) OpenSessionHandler(c *gin.Context) {
	s, err := h.Sessions.Open(c.Request.Context(), middleware.BearerToken(c))
	if err != nil {
		getLogger(c).Error("Failed to open session", zap.Error(err))
		utils.RespondError(c, err)
		return
	}

	select {
	case <-s.Ready():
	case <-time.After(readyWait):
	case <-c.Request.Context().Done():
	}
	c.JSON(http.StatusCreated, s.Snapshot())
}

// GetSessionHandler handles GET /api/sessions/:id.
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// CloseSessionHandler handles DELETE /api/sessions/:id.
func (h *SessionHandler) CloseSessionHandler(c *gin.Context) {
	if err := h.Sessions.Close(c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

// LoginHandler handles POST /api/sessions/:id/login.
func (h *SessionHandler) LoginHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req signInRequest
	if !bindJSON(c, &req) {
		return
	}
	success, err := s.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		getLogger(c).Error("Session login failed", zap.String("session", s.ID()), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	if !success {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "session": s.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": s.Token(), "session": s.Snapshot()})
}

// LogoutHandler handles POST /api/sessions/:id/logout.
func (h *SessionHandler) LogoutHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	s.Logout(c.Request.Context())
	c.JSON(http.StatusOK, s.Snapshot())
}

// SetLocationHandler handles PUT /api/sessions/:id/location with a position
// report from the client device.
func (h *SessionHandler) SetLocationHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var report geo.Report
	if !bindJSON(c, &report) {
		return
	}
	s.SetLocationState(report.State(time.Now()))
	c.JSON(http.StatusOK, s.Snapshot())
}

// ResolveLocationHandler handles POST /api/sessions/:id/location/resolve. The
// position is looked up from the client IP; the response carries whatever
// state the lookup reached before the request ended.
func (h *SessionHandler) ResolveLocationHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	req := s.ResolveLocation(h.Locations, middleware.ClientIP(c))
	state := req.Wait(c.Request.Context())
	status := http.StatusOK
	if state.Loading {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"location": state, "mapCenter": geo.MapCenter(state)})
}

// SelectInstitutionHandler handles PUT /api/sessions/:id/selection. An empty
// institutionId clears the selection.
func (h *SessionHandler) SelectInstitutionHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req struct {
		InstitutionID string `json:"institutionId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.InstitutionID == "" {
		s.SetSelectedInstitution(nil)
		c.JSON(http.StatusOK, s.Snapshot())
		return
	}
	detail, err := h.Institutions.GetInstitution(c.Request.Context(), req.InstitutionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	s.SetSelectedInstitution(&detail.Institution)
	c.JSON(http.StatusOK, s.Snapshot())
}

// SetFiltersHandler handles PUT /api/sessions/:id/filters.
func (h *SessionHandler) SetFiltersHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	criteria := models.DefaultFilterCriteria()
	if !bindJSON(c, &criteria) {
		return
	}
	if err := s.SetFilters(criteria); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// SearchHandler handles POST /api/sessions/:id/search. Without a body the
// stored filters are used.
func (h *SessionHandler) SearchHandler(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	criteria := s.Snapshot().Filters
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &criteria) {
			return
		}
	}

	listings, err := s.RunSearch(c.Request.Context(), criteria)
	if err != nil {
		if c.Request.Context().Err() == context.Canceled {
			return
		}
		getLogger(c).Warn("Session search failed", zap.String("session", s.ID()), zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(listings), "institutions": listings})
}
