package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/pkg/response"
)

type EpisodeHandler struct {
	episodeService  *services.EpisodeService
	workflowService *services.WorkflowService
	notifier        *services.Notifier
}

func NewEpisodeHandler(episodeService *services.EpisodeService, workflowService *services.WorkflowService, notifier *services.Notifier) *EpisodeHandler {
	return &EpisodeHandler{
		episodeService:  episodeService,
		workflowService: workflowService,
		notifier:        notifier,
	}
}

// Create adds an episode and announces it to the group
// POST /api/episodes
func (h *EpisodeHandler) Create(c *gin.Context) {
	var form services.EpisodeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ep, err := h.episodeService.Add(&form)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Created(c, ep)
}

// GetByID returns one episode
// GET /api/episodes/:id
func (h *EpisodeHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid episode id")
		return
	}

	ep, err := h.episodeService.Get(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, ep)
}

// Update edits an episode and broadcasts the resulting change set
// PUT /api/episodes/:id
func (h *EpisodeHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid episode id")
		return
	}

	var form services.EpisodeEditForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cs, err := h.workflowService.ApplyEdit(uint(id), &form)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.notifier.NotifyChange(cs)

	response.Success(c, gin.H{"status": "ok", "changed": cs != nil && !cs.Empty()})
}

// Advance moves an episode to its next stage on behalf of a group
// member, with the same permission check the chat command applies
// POST /api/episodes/:id/advance
func (h *EpisodeHandler) Advance(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid episode id")
		return
	}

	var req struct {
		PlatformID   string `json:"platform_id" binding:"required"`
		IsGroupAdmin bool   `json:"is_group_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ep, err := h.episodeService.Get(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	cs, err := h.workflowService.AttemptAdvance(ep.Project.Name, ep.Title, services.Actor{
		PlatformID:   req.PlatformID,
		IsGroupAdmin: req.IsGroupAdmin,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.notifier.NotifyChange(cs)

	response.Success(c, gin.H{"status": "ok", "lines": cs.Lines})
}

// Delete removes an episode
// DELETE /api/episodes/:id
func (h *EpisodeHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid episode id")
		return
	}

	if err := h.episodeService.Delete(uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}
