package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/pkg/response"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// List returns members, optionally filtered by group
// GET /api/members
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.memberService.List(c.Query("group_id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, members)
}

// UpdateName renames a member
// PUT /api/members/:id
func (h *MemberHandler) UpdateName(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.memberService.UpdateName(uint(id), req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, m)
}

// Delete removes a member, detaching all staffing references
// DELETE /api/members/:id
func (h *MemberHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}

	if err := h.memberService.Delete(uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}

// SyncGroup pulls the member list from the chat platform
// POST /api/groups/:group_id/sync_members
func (h *MemberHandler) SyncGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	if groupID == "" {
		response.BadRequest(c, "group_id required")
		return
	}

	result, err := h.memberService.SyncGroup(c.Request.Context(), groupID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, result)
}
