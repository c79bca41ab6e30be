package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkazlouski/sparkpad/internal/storage"
)

// ItemsController exposes record CRUD against the current catalog. Values are
// opaque JSON documents, stored and returned verbatim.
type ItemsController struct {
	manager *storage.Manager
}

func NewItemsController(manager *storage.Manager) *ItemsController {
	return &ItemsController{manager: manager}
}

// Keys returns every key of the current catalog, ordered.
// GET /api/items
func (ic *ItemsController) Keys(c *gin.Context) {
	keys, err := ic.manager.GetAllKeys(c.Request.Context())
	if err != nil {
		respondStorageError(c, err, "list keys")
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// Values returns every value of the current catalog, in key order.
// GET /api/items/values
func (ic *ItemsController) Values(c *gin.Context) {
	values, err := ic.manager.GetAllValues(c.Request.Context())
	if err != nil {
		respondStorageError(c, err, "list values")
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// Get returns the value stored under a key.
// GET /api/items/:key
func (ic *ItemsController) Get(c *gin.Context) {
	key := c.Param("key")

	value, ok, err := ic.manager.GetItem(c.Request.Context(), key)
	if err != nil {
		respondStorageError(c, err, "get item")
		return
	}
	if !ok {
		respondNotFound(c, "item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// Set stores the request body as the value for a key. The body must be a
// valid JSON document of any shape.
// PUT /api/items/:key
func (ic *ItemsController) Set(c *gin.Context) {
	key := c.Param("key")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "reading request body: "+err.Error())
		return
	}
	if !json.Valid(body) {
		respondBadRequest(c, "value must be a JSON document")
		return
	}

	if err := ic.manager.SetItem(c.Request.Context(), key, json.RawMessage(body)); err != nil {
		respondStorageError(c, err, "set item")
		return
	}
	respondSuccess(c, "item stored")
}

// Remove deletes the record stored under a key.
// DELETE /api/items/:key
func (ic *ItemsController) Remove(c *gin.Context) {
	if err := ic.manager.RemoveItem(c.Request.Context(), c.Param("key")); err != nil {
		respondStorageError(c, err, "remove item")
		return
	}
	respondSuccess(c, "item removed")
}

// Clear deletes every record of the current catalog.
// DELETE /api/items
func (ic *ItemsController) Clear(c *gin.Context) {
	if err := ic.manager.ClearAll(c.Request.Context()); err != nil {
		respondStorageError(c, err, "clear items")
		return
	}
	respondSuccess(c, "catalog cleared")
}
