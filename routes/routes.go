package routes

import (
	"net/http"
	"time"

	"doemais/handlers"
	"doemais/middleware"
	"doemais/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers sign-up, sign-in and token endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/signup", hb.Auth.SignUpHandler)
		api.POST("/signin", hb.Auth.SignInHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(hb.AuthService, false))
		protected.POST("/signout", hb.Auth.SignOutHandler)
		protected.GET("/me", hb.Auth.MeHandler)
	}
}

// RegisterCategoryRoutes registers the read-only category catalogue.
func RegisterCategoryRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/categories")
	{
		api.GET("", hb.Category.ListCategoriesHandler)
		api.GET("/:id", hb.Category.GetCategoryHandler)
		api.GET("/:id/subcategories", hb.Category.SubcategoriesHandler)
	}
}

// RegisterInstitutionRoutes registers institution search and profile management.
func RegisterInstitutionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/institutions")
	{
		api.GET("", hb.Institution.SearchInstitutionsHandler)
		api.GET("/:id", hb.Institution.GetInstitutionHandler)
		api.GET("/:id/ratings", hb.Institution.ListRatingsHandler)

		// Only the owning institution account may use these.
		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(hb.AuthService, false))
		protected.GET("/:id/donations", hb.Institution.ListDonationsHandler)
		protected.PATCH("/:id", hb.Institution.UpdateInstitutionHandler)
		protected.PUT("/:id/working-hours", hb.Institution.UpdateWorkingHoursHandler)
		protected.PUT("/:id/categories", hb.Institution.UpdateCategoriesHandler)
	}
}

// RegisterDonationRoutes registers the donation lifecycle endpoints.
func RegisterDonationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/donations")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.AuthService, false))
		api.POST("", hb.Donation.CreateDonationHandler)
		api.GET("/mine", hb.Donation.MyDonationsHandler)
		api.GET("/stats", hb.Donation.StatsHandler)
		api.GET("/:id", hb.Donation.GetDonationHandler)
		api.PATCH("/:id", hb.Donation.UpdateDonationHandler)
		api.DELETE("/:id", hb.Donation.DeleteDonationHandler)
		api.POST("/:id/schedule", hb.Donation.ScheduleDonationHandler)
		api.POST("/:id/deliver", hb.Donation.DeliverDonationHandler)
		api.POST("/:id/cancel", hb.Donation.CancelDonationHandler)
		api.POST("/:id/images", hb.Donation.UploadImageHandler)
	}
}

// RegisterRatingRoutes registers rating endpoints.
func RegisterRatingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/ratings")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.AuthService, false))
		api.POST("", hb.Rating.CreateRatingHandler)
		api.GET("/eligibility", hb.Rating.EligibilityHandler)
		api.PUT("/:id/response", hb.Rating.RespondRatingHandler)
	}
}

// RegisterSessionRoutes registers the per-client state container endpoints.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sessions")
	{
		api.POST("", hb.Session.OpenSessionHandler)
		api.GET("/:id", hb.Session.GetSessionHandler)
		api.DELETE("/:id", hb.Session.CloseSessionHandler)
		api.POST("/:id/login", hb.Session.LoginHandler)
		api.POST("/:id/logout", hb.Session.LogoutHandler)
		api.PUT("/:id/location", hb.Session.SetLocationHandler)
		api.POST("/:id/location/resolve", hb.Session.ResolveLocationHandler)
		api.PUT("/:id/selection", hb.Session.SelectInstitutionHandler)
		api.PUT("/:id/filters", hb.Session.SetFiltersHandler)
		api.POST("/:id/search", hb.Session.SearchHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Doe Mais", "health": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, maxRequestsPerMin int) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.RateLimitMiddleware(maxRequestsPerMin))

	RegisterHealthRoute(r)
	RegisterAuthRoutes(r, hb)
	RegisterCategoryRoutes(r, hb)
	RegisterInstitutionRoutes(r, hb)
	RegisterDonationRoutes(r, hb)
	RegisterRatingRoutes(r, hb)
	RegisterSessionRoutes(r, hb)
}
