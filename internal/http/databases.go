package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkazlouski/sparkpad/internal/storage"
)

// DatabasesController exposes catalog lifecycle management.
type DatabasesController struct {
	manager *storage.Manager
}

func NewDatabasesController(manager *storage.Manager) *DatabasesController {
	return &DatabasesController{manager: manager}
}

type DatabaseListResponse struct {
	Databases []string `json:"databases"`
	Current   string   `json:"current"`
}

// List returns every tracked catalog and the current one.
// GET /api/databases
func (dc *DatabasesController) List(c *gin.Context) {
	ctx := c.Request.Context()

	names, err := dc.manager.InitializedDatabaseNames(ctx)
	if err != nil {
		respondStorageError(c, err, "list databases")
		return
	}
	current, err := dc.manager.CurrentDatabaseName(ctx)
	if err != nil {
		respondStorageError(c, err, "current database")
		return
	}
	c.JSON(http.StatusOK, DatabaseListResponse{Databases: names, Current: current})
}

type databaseRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create creates (or reopens) a catalog.
// POST /api/databases
func (dc *DatabasesController) Create(c *gin.Context) {
	var req databaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	if err := dc.manager.CreateDatabase(c.Request.Context(), req.Name); err != nil {
		respondStorageError(c, err, "create database")
		return
	}
	respondCreated(c, gin.H{"name": req.Name})
}

// Switch makes a catalog current, creating it if needed.
// POST /api/databases/switch
func (dc *DatabasesController) Switch(c *gin.Context) {
	var req databaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	if err := dc.manager.SwitchDatabase(c.Request.Context(), req.Name); err != nil {
		respondStorageError(c, err, "switch database")
		return
	}
	respondSuccess(c, "switched to "+req.Name)
}

// Delete drops a catalog and its files.
// DELETE /api/databases/:name
func (dc *DatabasesController) Delete(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()

	if err := dc.manager.DeleteDatabase(ctx, name); err != nil {
		respondStorageError(c, err, "delete database")
		return
	}

	current, err := dc.manager.CurrentDatabaseName(ctx)
	if err != nil {
		respondStorageError(c, err, "current database")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": name, "current": current})
}

type PropagationLeg struct {
	Catalog string `json:"catalog"`
	Error   string `json:"error,omitempty"`
}

type SetDefaultResponse struct {
	Target          string           `json:"target"`
	FullyPropagated bool             `json:"fully_propagated"`
	Legs            []PropagationLeg `json:"legs"`
}

// SetDefault propagates the preferred default catalog into every catalog and
// switches to it. Partial propagation is reported, not hidden: the response
// carries a per-catalog outcome.
// POST /api/databases/default
func (dc *DatabasesController) SetDefault(c *gin.Context) {
	var req databaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	result, err := dc.manager.SetDefaultDatabase(c.Request.Context(), req.Name)
	if err != nil {
		respondStorageError(c, err, "set default database")
		return
	}

	resp := SetDefaultResponse{
		Target:          result.Target,
		FullyPropagated: result.FullyPropagated(),
	}
	for _, leg := range result.Legs {
		out := PropagationLeg{Catalog: leg.Catalog}
		if leg.Err != nil {
			out.Error = leg.Err.Error()
		}
		resp.Legs = append(resp.Legs, out)
	}

	status := http.StatusOK
	if !resp.FullyPropagated {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}
