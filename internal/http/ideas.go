package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkazlouski/sparkpad/internal/ideas"
)

// IdeasController exposes the idea, task, note and score workflows.
type IdeasController struct {
	service *ideas.Service
}

func NewIdeasController(service *ideas.Service) *IdeasController {
	return &IdeasController{service: service}
}

// Save stores a manually written idea.
// POST /api/ideas
func (ic *IdeasController) Save(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	idea, err := ic.service.SaveIdea(c.Request.Context(), req.Text)
	if err != nil {
		respondStorageError(c, err, "save idea")
		return
	}
	respondCreated(c, idea)
}

// Generate asks the configured generator for a fresh idea and saves it.
// POST /api/ideas/generate
func (ic *IdeasController) Generate(c *gin.Context) {
	idea, err := ic.service.GenerateIdea(c.Request.Context())
	if err != nil {
		respondStorageError(c, err, "generate idea")
		return
	}
	respondCreated(c, idea)
}

// Get returns a saved idea.
// GET /api/ideas/:id
func (ic *IdeasController) Get(c *gin.Context) {
	idea, ok, err := ic.service.GetIdea(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, err, "get idea")
		return
	}
	if !ok {
		respondNotFound(c, "idea")
		return
	}
	c.JSON(http.StatusOK, idea)
}

// GenerateTasks breaks a saved idea into tasks and stores the list.
// POST /api/ideas/:id/tasks
func (ic *IdeasController) GenerateTasks(c *gin.Context) {
	tasks, err := ic.service.GenerateTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, err, "generate tasks")
		return
	}
	respondCreated(c, gin.H{"tasks": tasks})
}

// Tasks returns the stored task list for an idea.
// GET /api/ideas/:id/tasks
func (ic *IdeasController) Tasks(c *gin.Context) {
	tasks, ok, err := ic.service.Tasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, err, "get tasks")
		return
	}
	if !ok {
		respondNotFound(c, "task list")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Notes returns the note collection.
// GET /api/notes
func (ic *IdeasController) Notes(c *gin.Context) {
	notes, err := ic.service.Notes(c.Request.Context())
	if err != nil {
		respondStorageError(c, err, "get notes")
		return
	}
	if notes == nil {
		notes = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// AddNote appends a note to the collection.
// POST /api/notes
func (ic *IdeasController) AddNote(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	if err := ic.service.AddNote(c.Request.Context(), req.Text); err != nil {
		respondStorageError(c, err, "add note")
		return
	}
	respondCreated(c, gin.H{"text": req.Text})
}

// Score returns the running score.
// GET /api/score
func (ic *IdeasController) Score(c *gin.Context) {
	score, err := ic.service.Score(c.Request.Context())
	if err != nil {
		respondStorageError(c, err, "get score")
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

// AddScore adjusts the running score.
// POST /api/score
func (ic *IdeasController) AddScore(c *gin.Context) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "delta is required")
		return
	}

	score, err := ic.service.AddScore(c.Request.Context(), req.Delta)
	if err != nil {
		respondStorageError(c, err, "add score")
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

// Settings returns the generator settings.
// GET /api/settings/generator
func (ic *IdeasController) Settings(c *gin.Context) {
	settings, err := ic.service.Settings(c.Request.Context())
	if err != nil {
		respondStorageError(c, err, "get settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings stores the generator settings.
// PUT /api/settings/generator
func (ic *IdeasController) UpdateSettings(c *gin.Context) {
	var settings ideas.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondBadRequest(c, "invalid settings payload")
		return
	}

	if err := ic.service.SetSettings(c.Request.Context(), settings); err != nil {
		respondStorageError(c, err, "update settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}
