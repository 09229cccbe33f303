package routes

import (
	"omnidrive/controllers"

	"github.com/gin-gonic/gin"
)

func FileRoutes(rg *gin.RouterGroup, fc *controllers.FileController) {
	rg.POST("/folders", fc.CreateFolder)

	files := rg.Group("/files")
	{
		files.GET("", fc.ListFiles)
		files.GET("/search", fc.SearchFiles)
		files.GET("/stats", fc.Stats)
		files.POST("/upload", fc.Upload)
		files.POST("/move", fc.MoveBatch)

		files.GET("/:id", fc.GetFile)
		files.PUT("/:id", fc.UpdateFile)
		files.DELETE("/:id", fc.Delete)

		files.GET("/:id/download", fc.Download)
		files.GET("/:id/thumbnail", fc.Thumbnail)
		files.PUT("/:id/content", fc.ReplaceContent)
		files.GET("/:id/versions", fc.Versions)
		files.GET("/:id/activity", fc.Activity)

		files.POST("/:id/move", fc.Move)
		files.POST("/:id/star", fc.ToggleStar)
		files.POST("/:id/protect", fc.ToggleProtected)
		files.PUT("/:id/visibility", fc.SetVisibility)

		files.POST("/:id/permissions", fc.GrantPermission)
		files.GET("/:id/permissions", fc.ListPermissions)
		files.DELETE("/:id/permissions/:userId", fc.RevokePermission)
	}
}
