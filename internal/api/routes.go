package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/auth"
	"portfolioParadise/internal/portfolio"
)

// Deps 汇总注册路由所需的依赖。
type Deps struct {
	Service   *portfolio.Service
	Validator middleware.TokenValidator
	// Redis 用于 WebSocket 订阅与分享链接口令限流，为 nil 时两者均不可用。
	Redis interface {
		pubsubClient
		redisRateCounter
	}
	Logger                  *slog.Logger
	ClamdAddr               string
	MaxUploadBytes          int64
	PasswordAttemptsPerHour int
	AllowedOrigins          []string
}

// RegisterRoutes 注册 /api/v1 下的全部路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	profileHandler := NewProfileHandler(deps.Service, deps.ClamdAddr)
	contentHandler := NewContentHandler(deps.Service)
	pageHandler := NewPageHandler(deps.Service, deps.ClamdAddr)
	messageHandler := NewMessageHandler(deps.Service)

	var rate redisRateCounter
	if deps.Redis != nil {
		rate = deps.Redis
	}
	shareHandler := NewShareHandler(deps.Service, rate, deps.PasswordAttemptsPerHour)

	authMiddleware := middleware.AuthMiddleware(deps.Validator)
	studentOnly := middleware.RequireRole(auth.RoleStudent)
	teacherOnly := middleware.RequireRole(auth.RoleTeacher)
	uploadLimit := middleware.BodyLimit(deps.MaxUploadBytes + multipartOverhead)

	v1 := router.Group("/api/v1")

	if deps.Redis != nil {
		wsHandler := NewWsHandler(deps.Redis, deps.Validator, deps.Logger, deps.AllowedOrigins)
		v1.GET("/ws", wsHandler.HandleConnection)
	}

	v1.GET("/public/shared/:token", shareHandler.ResolvePublic)
	v1.GET("/templates", contentHandler.ListTemplates)
	v1.GET("/templates/:id", contentHandler.GetTemplate)

	authed := v1.Group("")
	authed.Use(authMiddleware)

	profile := authed.Group("/profile")
	{
		profile.POST("", profileHandler.Register)
		profile.GET("", profileHandler.Me)
		profile.DELETE("", profileHandler.DeleteMe)
		profile.POST("/avatar", uploadLimit, profileHandler.UploadAvatar)
	}

	goals := authed.Group("/goals")
	{
		goals.POST("", contentHandler.CreateGoal)
		goals.GET("", contentHandler.ListGoals)
		goals.POST("/:id/complete", contentHandler.CompleteGoal)
		goals.POST("/:id/reopen", contentHandler.ReopenGoal)
		goals.DELETE("/:id", contentHandler.Delete(portfolio.KindPersonalGoal))
	}

	dreams := authed.Group("/dreams")
	{
		dreams.POST("", contentHandler.CreateDream)
		dreams.GET("", contentHandler.ListDreams)
		dreams.DELETE("/:id", contentHandler.Delete(portfolio.KindDream))
	}

	categories := authed.Group("/categories", studentOnly)
	{
		categories.POST("", contentHandler.CreateCategory)
		categories.GET("", contentHandler.ListCategories)
		categories.POST("/seed", contentHandler.SeedCategories)
		categories.PUT("/:id/parent", contentHandler.SetCategoryParent)
		categories.DELETE("/:id", contentHandler.Delete(portfolio.KindCategory))
	}

	calendar := authed.Group("/calendar", studentOnly)
	{
		calendar.POST("", contentHandler.CreateCalendarEntry)
		calendar.GET("", contentHandler.ListCalendarEntries)
		calendar.POST("/:id/toggle", contentHandler.ToggleCalendarEntry)
		calendar.DELETE("/:id", contentHandler.Delete(portfolio.KindCalendarEntry))
	}

	pages := authed.Group("/pages", studentOnly)
	{
		pages.POST("", pageHandler.CreatePage)
		pages.GET("", pageHandler.ListPages)
		pages.GET("/:id", pageHandler.GetPage)
		pages.PUT("/:id", pageHandler.UpdatePage)
		pages.DELETE("/:id", pageHandler.Delete(portfolio.KindPortfolioPage))
		pages.POST("/:id/files", uploadLimit, pageHandler.AttachFile)
		pages.GET("/:id/files", pageHandler.ListFiles)
	}

	files := authed.Group("/files", studentOnly)
	{
		files.GET("/:id/url", pageHandler.FileURL)
		files.DELETE("/:id", pageHandler.Delete(portfolio.KindPageFile))
	}

	shareRequests := authed.Group("/share-requests")
	{
		shareRequests.POST("", studentOnly, shareHandler.CreateShareRequest)
		shareRequests.GET("", shareHandler.ListShareRequests)
		shareRequests.GET("/:id", shareHandler.GetShareRequest)
		shareRequests.DELETE("/:id", studentOnly, shareHandler.Delete(portfolio.KindShareRequest))
		shareRequests.POST("/:id/decision", teacherOnly, shareHandler.DecideShareRequest)
		shareRequests.GET("/:id/content", teacherOnly, shareHandler.GrantedContent)
	}

	sharedLinks := authed.Group("/shared-links", studentOnly)
	{
		sharedLinks.POST("", shareHandler.CreateSharedLink)
		sharedLinks.GET("", shareHandler.ListSharedLinks)
		sharedLinks.POST("/:id/deactivate", shareHandler.DeactivateSharedLink)
		sharedLinks.DELETE("/:id", shareHandler.Delete(portfolio.KindSharedLink))
	}

	messages := authed.Group("/messages")
	{
		messages.POST("", messageHandler.Send)
		messages.GET("", messageHandler.Inbox)
		messages.POST("/:id/read", messageHandler.MarkRead)
		messages.DELETE("/:id", messageHandler.Delete)
	}
}
