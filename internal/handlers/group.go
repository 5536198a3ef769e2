package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/pkg/response"
)

type GroupHandler struct {
	settingService   *services.GroupSettingService
	broadcastService *services.BroadcastService
}

func NewGroupHandler(settingService *services.GroupSettingService, broadcastService *services.BroadcastService) *GroupHandler {
	return &GroupHandler{
		settingService:   settingService,
		broadcastService: broadcastService,
	}
}

// ListSettings returns all customized group settings
// GET /api/groups/settings
func (h *GroupHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.List()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, settings)
}

// GetSetting returns a group's effective broadcast setting
// GET /api/groups/:group_id/setting
func (h *GroupHandler) GetSetting(c *gin.Context) {
	setting, err := h.settingService.Get(c.Param("group_id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, setting)
}

// UpdateSetting creates or updates a group's broadcast setting
// PUT /api/groups/:group_id/setting
func (h *GroupHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		BroadcastEnabled bool   `json:"broadcast_enabled"`
		BroadcastTime    string `json:"broadcast_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	setting, err := h.settingService.Upsert(c.Param("group_id"), req.BroadcastEnabled, req.BroadcastTime)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, setting)
}

// TriggerBroadcast runs the deadline report for one group immediately
// POST /api/groups/:group_id/broadcast
func (h *GroupHandler) TriggerBroadcast(c *gin.Context) {
	groupID := c.Param("group_id")
	if groupID == "" {
		response.BadRequest(c, "group_id required")
		return
	}

	if err := h.broadcastService.RunManual(groupID); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}
