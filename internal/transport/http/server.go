package http

import (
	"github.com/gin-gonic/gin"

	"secureauthhub/internal/bootstrap"
	"secureauthhub/internal/transport/http/handler"
	"secureauthhub/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = 8 << 20

	healthHandler := handler.NewHealthHandler(app)
	itemHandler := handler.NewItemHandler(app.Items)
	authHandler := handler.NewAuthHandler(app.Auth)
	documentHandler := handler.NewDocumentHandler(app.Documents)
	chatHandler := handler.NewChatHandler(app.Chat)
	searchHandler := handler.NewSearchHandler(app.Searcher)
	authRequired := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	router.GET("/", healthHandler.Root)
	router.GET("/healthz", healthHandler.Check)

	items := router.Group("/items")
	items.GET("", itemHandler.List)
	items.POST("", itemHandler.Create)
	items.GET("/:id", itemHandler.Get)
	items.PUT("/:id", itemHandler.Update)
	items.DELETE("/:id", itemHandler.Delete)

	router.POST("/register", authHandler.Register)
	router.POST("/token", authHandler.Token)
	router.GET("/users/me", authRequired, authHandler.Me)

	documents := router.Group("/documents", authRequired)
	documents.POST("/upload", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.DELETE("/:id", documentHandler.Delete)

	chat := router.Group("/chat", authRequired)
	chat.POST("/query", chatHandler.Query)
	chat.GET("/sessions", chatHandler.ListSessions)
	chat.GET("/sessions/:id/messages", chatHandler.GetHistory)
	chat.DELETE("/sessions/:id", chatHandler.DeleteSession)

	router.GET("/search", authRequired, searchHandler.Search)

	return router
}
