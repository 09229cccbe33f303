package routes

import (
	"omnidrive/controllers"

	"github.com/gin-gonic/gin"
)

func ShareRoutes(rg *gin.RouterGroup, sc *controllers.ShareController) {
	rg.POST("/files/:id/shares", sc.CreateShare)
	rg.GET("/files/:id/shares", sc.ListShares)

	shares := rg.Group("/shares")
	{
		shares.PUT("/:id", sc.UpdateShare)
		shares.DELETE("/:id", sc.DeactivateShare)
	}
}

// PublicShareRoutes is the unauthenticated token surface.
func PublicShareRoutes(rg *gin.RouterGroup, sc *controllers.ShareController) {
	public := rg.Group("/public/shares")
	{
		public.GET("/:token", sc.ResolveShare)
		public.GET("/:token/download", sc.DownloadShared)
		public.POST("/:token/upload", sc.UploadShared)
	}
}
