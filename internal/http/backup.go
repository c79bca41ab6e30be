package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkazlouski/sparkpad/internal/storage"
)

// BackupController serves full-catalog exports and accepts restore payloads.
// The wire format is the indented JSON record array produced by
// storage.MarshalBackup.
type BackupController struct {
	manager *storage.Manager
}

func NewBackupController(manager *storage.Manager) *BackupController {
	return &BackupController{manager: manager}
}

// Download exports the current catalog as a JSON attachment.
// GET /api/backup
func (bc *BackupController) Download(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := bc.manager.BackupDatabase(ctx)
	if err != nil {
		respondStorageError(c, err, "backup database")
		return
	}

	name, err := bc.manager.CurrentDatabaseName(ctx)
	if err != nil {
		respondStorageError(c, err, "current database")
		return
	}

	data, err := storage.MarshalBackup(records)
	if err != nil {
		respondInternalError(c, err, "marshal backup")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Restore atomically replaces the current catalog's contents with the
// uploaded backup payload. Invalid payloads leave the catalog untouched.
// POST /api/restore
func (bc *BackupController) Restore(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "reading request body: "+err.Error())
		return
	}

	if err := bc.manager.RestoreDatabaseJSON(c.Request.Context(), body); err != nil {
		respondStorageError(c, err, "restore database")
		return
	}
	respondSuccess(c, "database restored")
}
