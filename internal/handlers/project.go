package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	episodeService *services.EpisodeService
}

func NewProjectHandler(projectService *services.ProjectService, episodeService *services.EpisodeService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		episodeService: episodeService,
	}
}

// List returns all projects, optionally filtered by group
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(c.Query("group_id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, projects)
}

// GetByID returns a project with its episodes
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	project, err := h.projectService.Get(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	episodes, err := h.episodeService.ListByProject(project.ID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"project":  project,
		"episodes": episodes,
	})
}

// Create creates a new project and announces it to the group
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var form services.ProjectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &form)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Created(c, project)
}

// Update rewrites a project's identity and default staffing
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var form services.ProjectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(uint(id), &form)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, project)
}

// Delete removes a project and its episodes
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	if err := h.projectService.Delete(uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}
