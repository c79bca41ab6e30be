package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mkazlouski/sparkpad/internal/ideas"
	"github.com/mkazlouski/sparkpad/internal/storage"
)

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Manager *storage.Manager
	Ideas   *ideas.Service
	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Manager, cfg.Version)
	router.GET("/health", healthController.Status)

	databasesController := NewDatabasesController(cfg.Manager)
	router.GET("/api/databases", databasesController.List)
	router.POST("/api/databases", databasesController.Create)
	router.POST("/api/databases/switch", databasesController.Switch)
	router.POST("/api/databases/default", databasesController.SetDefault)
	router.DELETE("/api/databases/:name", databasesController.Delete)

	itemsController := NewItemsController(cfg.Manager)
	router.GET("/api/items", itemsController.Keys)
	router.GET("/api/items/values", itemsController.Values)
	router.GET("/api/items/:key", itemsController.Get)
	router.PUT("/api/items/:key", itemsController.Set)
	router.DELETE("/api/items/:key", itemsController.Remove)
	router.DELETE("/api/items", itemsController.Clear)

	backupController := NewBackupController(cfg.Manager)
	router.GET("/api/backup", backupController.Download)
	router.POST("/api/restore", backupController.Restore)

	if cfg.Ideas != nil {
		ideasController := NewIdeasController(cfg.Ideas)
		router.POST("/api/ideas", ideasController.Save)
		router.POST("/api/ideas/generate", ideasController.Generate)
		router.GET("/api/ideas/:id", ideasController.Get)
		router.POST("/api/ideas/:id/tasks", ideasController.GenerateTasks)
		router.GET("/api/ideas/:id/tasks", ideasController.Tasks)
		router.GET("/api/notes", ideasController.Notes)
		router.POST("/api/notes", ideasController.AddNote)
		router.GET("/api/score", ideasController.Score)
		router.POST("/api/score", ideasController.AddScore)
		router.GET("/api/settings/generator", ideasController.Settings)
		router.PUT("/api/settings/generator", ideasController.UpdateSettings)
	}

	return router
}
