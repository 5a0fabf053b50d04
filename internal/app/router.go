package app

import (
	"trivia_backend/docs"
	"trivia_backend/internal/config"
	"trivia_backend/internal/middleware"
	"trivia_backend/internal/model"
	"trivia_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. no login needed
	a.registerPublicRoutes(router, c, cfg)

	// 2. players
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerPlayerRoutes(authGroup, c)
		a.registerCommunityRoutes(authGroup, c)
	}

	// 3. admins
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/password/reset", c.auth.RequestPasswordReset)
		public.POST("/password/reset/confirm", c.auth.ConfirmPasswordReset)
		public.GET("/achievements/catalog", c.achievement.Catalog)
		public.GET("/question-bank/template.csv", c.questionBank.ImportTemplate)
	}

	// anonymous allowed, a logged-in viewer also sees their own hidden entries
	optional := router.Group("/api")
	optional.Use(middleware.TryAuthMiddleware(cfg))
	{
		optional.GET("/feed", c.game.PublicFeed)
		optional.GET("/leaderboard", c.game.GlobalLeaderboard)
		optional.GET("/games/:id", c.game.GetGameReview)
		optional.GET("/users/:id/profile", c.game.UserProfile)
	}
}

func (a *App) registerPlayerRoutes(r *gin.RouterGroup, c *controllers) {
	r.GET("/profile", c.auth.GetProfile)
	r.GET("/settings", c.user.GetSettings)
	r.PUT("/settings", c.user.UpdateSettings)

	quiz := r.Group("/quiz/sessions")
	{
		quiz.POST("", c.quiz.StartQuiz)
		quiz.GET("/:id", c.quiz.GetSession)
		quiz.DELETE("/:id", c.quiz.Abandon)
		quiz.POST("/:id/answer", c.quiz.Answer)
		quiz.POST("/:id/hint", c.quiz.Hint)
		quiz.POST("/:id/next", c.quiz.Next)
	}

	r.GET("/games", c.game.ListMyGames)
	r.PUT("/games/:id/visibility", c.game.SetVisibility)
	r.GET("/dashboard", c.game.Dashboard)
	r.GET("/performance", c.game.Performance)
	r.GET("/performance/chart", c.game.PerformanceChart)

	r.GET("/achievements", c.achievement.ListBadges)
	r.POST("/achievements/sync", c.achievement.Sync)

	r.POST("/custom-questions", c.customQuestion.Submit)
	r.GET("/custom-questions", c.customQuestion.ListMine)

	r.GET("/live/ws", c.live.Connect)
	r.GET("/live/online/:id", c.live.Presence)
}

func (a *App) registerCommunityRoutes(r *gin.RouterGroup, c *controllers) {
	communities := r.Group("/communities")
	{
		communities.GET("", c.community.ListMyCommunities)
		communities.POST("", c.community.CreateCommunity)
		communities.POST("/join", c.community.JoinCommunity)
		communities.GET("/:id", c.community.GetCommunity)
		communities.POST("/:id/leave", c.community.LeaveCommunity)
		communities.GET("/:id/leaderboard", c.community.Leaderboard)
	}

	// commissioner only; the services check ownership
	manage := communities.Group("/:id/manage")
	{
		manage.GET("/dashboard", c.community.CommissionerDashboard)
		manage.PUT("/settings", c.community.UpdateSettings)
		manage.DELETE("/members/:userId", c.community.RemoveMember)

		manage.GET("/questions", c.questionBank.ListQuestions)
		manage.POST("/questions", c.questionBank.CreateQuestion)
		manage.POST("/questions/bulk-delete", c.questionBank.BulkDelete)
		manage.POST("/questions/bulk-tag", c.questionBank.BulkTag)
		manage.PUT("/questions/:questionId", c.questionBank.UpdateQuestion)
		manage.DELETE("/questions/:questionId", c.questionBank.DeleteQuestion)
		manage.POST("/questions/:questionId/tags", c.questionBank.AddTag)
		manage.DELETE("/questions/:questionId/tags/:tag", c.questionBank.RemoveTag)
		manage.GET("/questions/:questionId/versions", c.questionBank.History)
		manage.POST("/questions/:questionId/versions/:versionId/restore", c.questionBank.Restore)
		manage.POST("/questions/:questionId/template", c.questionBank.SaveTemplate)

		manage.GET("/templates", c.questionBank.ListTemplates)
		manage.POST("/templates/:templateId/use", c.questionBank.UseTemplate)
		manage.DELETE("/templates/:templateId", c.questionBank.DeleteTemplate)

		manage.POST("/import/validate", c.questionBank.ValidateImport)
		manage.POST("/import", c.questionBank.CommitImport)
		manage.GET("/import/logs", c.questionBank.ImportLogs)
		manage.GET("/export", c.questionBank.Export)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.GET("/dashboard", c.admin.Dashboard)
		admin.GET("/custom-questions", c.customQuestion.ListPending)
		admin.POST("/custom-questions/:id/approve", c.customQuestion.Approve)
		admin.POST("/custom-questions/:id/reject", c.customQuestion.Reject)
	}
}
