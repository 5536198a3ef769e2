package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/internal/utils"
	"github.com/padoru233/trans-progress/pkg/logger"
)

var (
	atPattern     = regexp.MustCompile(`\[CQ:at,qq=(\d+)[^\]]*\]`)
	cqPattern     = regexp.MustCompile(`\[CQ:[^\]]*\]`)
	projEpPattern = regexp.MustCompile(`^(.+?)(\d+)$`)

	cqUnescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&amp;", "&")
)

// roleStages maps the role names users type to pipeline stages.
var roleStages = map[string]int{
	"翻译": models.StatusTranslating,
	"校对": models.StatusProofing,
	"嵌字": models.StatusTypesetting,
	"监修": models.StatusSupervising,
}

const validRolesHint = "无效的职位，可选：翻译、校对、嵌字、监修"

// parsedCommand is a group message reduced to whitespace-separated
// fields with CQ codes stripped, plus the at-mentioned platform IDs in
// order of appearance.
type parsedCommand struct {
	Fields   []string
	Mentions []string
}

func parseMessage(raw string) parsedCommand {
	var mentions []string
	for _, m := range atPattern.FindAllStringSubmatch(raw, -1) {
		mentions = append(mentions, m[1])
	}
	text := cqPattern.ReplaceAllString(raw, " ")
	return parsedCommand{
		Fields:   strings.Fields(cqUnescaper.Replace(text)),
		Mentions: mentions,
	}
}

// splitProjectEpisode splits a combined "项目名18" reference into the
// project part and the trailing episode number.
func splitProjectEpisode(ref string) (project, episode string, ok bool) {
	m := projEpPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// CommandHandler executes chat commands against the services. Every
// reply goes through the notifier so delivery shares the task queue
// with broadcasts.
type CommandHandler struct {
	projectSvc   *services.ProjectService
	episodeSvc   *services.EpisodeService
	workflowSvc  *services.WorkflowService
	broadcastSvc *services.BroadcastService
	notifier     *services.Notifier
}

func NewCommandHandler(
	projectSvc *services.ProjectService,
	episodeSvc *services.EpisodeService,
	workflowSvc *services.WorkflowService,
	broadcastSvc *services.BroadcastService,
	notifier *services.Notifier,
) *CommandHandler {
	return &CommandHandler{
		projectSvc:   projectSvc,
		episodeSvc:   episodeSvc,
		workflowSvc:  workflowSvc,
		broadcastSvc: broadcastSvc,
		notifier:     notifier,
	}
}

// Handle dispatches one group message. Unrecognized messages are
// silently ignored; the bot shares the group with normal chatter.
func (h *CommandHandler) Handle(msg *GroupMessage) {
	cmd := parseMessage(msg.RawMessage)
	if len(cmd.Fields) == 0 {
		return
	}

	switch cmd.Fields[0] {
	case "默认":
		h.handleSetDefault(msg, cmd)
	case "添加":
		h.handleAdd(msg, cmd)
	case "更换":
		h.handleSetStaff(msg, cmd, "格式错误，示例：更换 魔法少年18 校对 @成员")
	case "完成":
		h.handleAdvance(msg, cmd)
	case "完结":
		h.handleFinish(msg, cmd)
	case "查看所有项目":
		h.handleViewAll(msg)
	case "查看":
		h.handleView(msg, cmd)
	case "催更":
		h.handleNudge(msg)
	}
}

func (h *CommandHandler) reply(groupID, text string) {
	h.notifier.Notify(groupID, services.Payload{{Text: text}})
}

func (h *CommandHandler) replyErr(groupID string, err error) {
	switch {
	case errors.Is(err, services.ErrAlreadyTerminal):
		h.reply(groupID, "该话已经完结了")
	case errors.Is(err, services.ErrStageUnassigned):
		h.reply(groupID, "该话还未开始，请先在后台启动流程")
	case errors.Is(err, services.ErrPermissionDenied),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrValidation):
		h.reply(groupID, "❌ "+err.Error())
	default:
		logger.Error().Err(err).Str("group_id", groupID).Msg("command failed")
		h.reply(groupID, "❌ 操作失败，请稍后再试")
	}
}

// 默认 <项目> <职位> @成员
func (h *CommandHandler) handleSetDefault(msg *GroupMessage, cmd parsedCommand) {
	if len(cmd.Fields) < 3 || len(cmd.Mentions) == 0 {
		h.reply(msg.GroupID, "格式错误，示例：默认 魔法少年 翻译 @成员")
		return
	}
	stage, ok := roleStages[cmd.Fields[2]]
	if !ok {
		h.reply(msg.GroupID, validRolesHint)
		return
	}

	project, member, err := h.projectSvc.SetDefaultRole(cmd.Fields[1], stage, cmd.Mentions[0])
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	h.reply(msg.GroupID, fmt.Sprintf("✅ 已设置 %s 默认%s 为 %s", project.Name, cmd.Fields[2], member.Display()))
}

// 添加 <项目> <话数>  — or —  添加 <项目+话数> <职位> @成员
func (h *CommandHandler) handleAdd(msg *GroupMessage, cmd parsedCommand) {
	if len(cmd.Fields) >= 3 {
		if _, ok := roleStages[cmd.Fields[2]]; ok {
			h.handleSetStaff(msg, cmd, "格式错误，示例：添加 魔法少年18 校对 @成员")
			return
		}
	}
	if len(cmd.Fields) < 3 {
		h.reply(msg.GroupID, "格式错误，示例：添加 魔法少年 18")
		return
	}

	project, err := h.projectSvc.FindByRef(cmd.Fields[1])
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}

	// Add announces the new episode itself; no extra confirmation.
	if _, err := h.episodeSvc.Add(&services.EpisodeForm{
		ProjectID: project.ID,
		Title:     cmd.Fields[2],
	}); err != nil {
		h.replyErr(msg.GroupID, err)
	}
}

// 更换 <项目+话数> <职位> @成员
func (h *CommandHandler) handleSetStaff(msg *GroupMessage, cmd parsedCommand, usage string) {
	if len(cmd.Fields) < 3 || len(cmd.Mentions) == 0 {
		h.reply(msg.GroupID, usage)
		return
	}
	name, title, ok := splitProjectEpisode(cmd.Fields[1])
	if !ok {
		h.reply(msg.GroupID, usage)
		return
	}
	stage, ok := roleStages[cmd.Fields[2]]
	if !ok {
		h.reply(msg.GroupID, validRolesHint)
		return
	}

	project, err := h.projectSvc.FindByRef(name)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	ep, err := h.episodeSvc.GetByTitle(project.ID, title)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}

	form := editFormFromEpisode(ep)
	setFormStage(form, stage, cmd.Mentions[0])

	cs, err := h.workflowSvc.ApplyEdit(ep.ID, form)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	h.notifier.NotifyChange(cs)
}

// 完成 <项目+话数> — guarded advance by the sender
func (h *CommandHandler) handleAdvance(msg *GroupMessage, cmd parsedCommand) {
	if len(cmd.Fields) < 2 {
		h.reply(msg.GroupID, "格式错误，示例：完成 魔法少年18")
		return
	}
	name, title, ok := splitProjectEpisode(cmd.Fields[1])
	if !ok {
		h.reply(msg.GroupID, "格式错误，示例：完成 魔法少年18")
		return
	}

	actor := services.Actor{
		PlatformID:   msg.UserID,
		IsGroupAdmin: msg.SenderRole == "owner" || msg.SenderRole == "admin",
	}
	cs, err := h.workflowSvc.AttemptAdvance(name, title, actor)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	h.notifier.NotifyChange(cs)
}

// 完结 <项目+话数> — jump straight to Done, leader or admin only
func (h *CommandHandler) handleFinish(msg *GroupMessage, cmd parsedCommand) {
	if len(cmd.Fields) < 2 {
		h.reply(msg.GroupID, "格式错误，示例：完结 魔法少年18")
		return
	}
	name, title, ok := splitProjectEpisode(cmd.Fields[1])
	if !ok {
		h.reply(msg.GroupID, "格式错误，示例：完结 魔法少年18")
		return
	}

	project, err := h.projectSvc.FindByRef(name)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}

	isAdmin := msg.SenderRole == "owner" || msg.SenderRole == "admin"
	isLeader := project.Leader != nil && project.Leader.PlatformID == msg.UserID
	if !isAdmin && !isLeader {
		h.reply(msg.GroupID, "❌ 只有负责人或管理员可以标记完结")
		return
	}

	ep, err := h.episodeSvc.GetByTitle(project.ID, title)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}

	form := editFormFromEpisode(ep)
	form.Status = models.StatusDone

	cs, err := h.workflowSvc.ApplyEdit(ep.ID, form)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	if cs == nil || cs.Empty() {
		h.reply(msg.GroupID, "该话已经完结了")
		return
	}
	h.notifier.NotifyChange(cs)
}

// 查看 <项目[+话数]>
func (h *CommandHandler) handleView(msg *GroupMessage, cmd parsedCommand) {
	if len(cmd.Fields) < 2 {
		h.reply(msg.GroupID, "格式错误，示例：查看 魔法少年18 或 查看 魔法少年")
		return
	}

	if name, title, ok := splitProjectEpisode(cmd.Fields[1]); ok {
		if project, err := h.projectSvc.FindByRef(name); err == nil {
			if ep, err := h.episodeSvc.GetByTitle(project.ID, title); err == nil {
				h.reply(msg.GroupID, renderEpisode(project, ep))
				return
			}
		}
		// fall through: the trailing digits may be part of the name
	}

	project, err := h.projectSvc.FindByRef(cmd.Fields[1])
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	episodes, err := h.episodeSvc.ListByProject(project.ID)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	h.reply(msg.GroupID, renderProject(project, episodes))
}

// 查看所有项目
func (h *CommandHandler) handleViewAll(msg *GroupMessage) {
	projects, err := h.projectSvc.List(msg.GroupID)
	if err != nil {
		h.replyErr(msg.GroupID, err)
		return
	}
	if len(projects) == 0 {
		h.reply(msg.GroupID, "暂无任何项目")
		return
	}

	var b strings.Builder
	b.WriteString("📊 所有项目默认staff：\n")
	for i := range projects {
		p := &projects[i]
		b.WriteString("\n【" + p.Name + "】\n")
		b.WriteString(renderDefaults(p))
	}
	h.reply(msg.GroupID, strings.TrimRight(b.String(), "\n"))
}

// 催更 — manual deadline report for this group
func (h *CommandHandler) handleNudge(msg *GroupMessage) {
	if err := h.broadcastSvc.RunManual(msg.GroupID); err != nil {
		h.replyErr(msg.GroupID, err)
	}
}

func editFormFromEpisode(ep *models.Episode) *services.EpisodeEditForm {
	pid := func(m *models.Member) string {
		if m == nil {
			return ""
		}
		return m.PlatformID
	}
	return &services.EpisodeEditForm{
		Title:         ep.Title,
		Status:        ep.Status,
		TranslatorID:  pid(ep.Translator),
		ProofreaderID: pid(ep.Proofreader),
		TypesetterID:  pid(ep.Typesetter),
		SupervisorID:  pid(ep.Supervisor),
		DdlTrans:      ep.DdlTrans,
		DdlProof:      ep.DdlProof,
		DdlType:       ep.DdlType,
		DdlSupervise:  ep.DdlSupervise,
	}
}

func setFormStage(form *services.EpisodeEditForm, stage int, platformID string) {
	switch stage {
	case models.StatusTranslating:
		form.TranslatorID = platformID
	case models.StatusProofing:
		form.ProofreaderID = platformID
	case models.StatusTypesetting:
		form.TypesetterID = platformID
	case models.StatusSupervising:
		form.SupervisorID = platformID
	}
}

func renderEpisode(project *models.Project, ep *models.Episode) string {
	var b strings.Builder
	status := "🔄 " + models.StatusName(ep.Status)
	if ep.Status == models.StatusDone {
		status = "✅ 已完结"
	}
	fmt.Fprintf(&b, "【%s %s】%s\n", project.Name, ep.Title, status)

	for _, stage := range models.WorkStages {
		assignee := ep.Assignee(stage)
		ddl := ep.Deadline(stage)
		if assignee == nil && ddl == nil {
			continue
		}
		fmt.Fprintf(&b, "%s: %s", models.StatusName(stage), assignee.Display())
		if ddl != nil {
			fmt.Fprintf(&b, " (死线: %s)", utils.FormatDeadline(ddl))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderProject(project *models.Project, episodes []models.Episode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 【%s】项目信息\n\n", project.Name)

	b.WriteString("🎯 默认Staff:\n")
	b.WriteString(renderDefaults(project))

	if len(episodes) == 0 {
		b.WriteString("\n暂无任何话数")
		return b.String()
	}

	fmt.Fprintf(&b, "\n📝 进度列表 (共%d话):\n", len(episodes))
	for i := range episodes {
		ep := &episodes[i]
		if ep.Status == models.StatusDone {
			fmt.Fprintf(&b, "✅ %s (已完结)\n", ep.Title)
			continue
		}
		fmt.Fprintf(&b, "🔄 %s [%s]", ep.Title, models.StatusName(ep.Status))
		if a := ep.Assignee(ep.Status); a != nil {
			fmt.Fprintf(&b, " %s", a.Display())
		}
		if ddl := ep.Deadline(ep.Status); ddl != nil {
			fmt.Fprintf(&b, " (死线: %s)", utils.FormatDeadline(ddl))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDefaults(project *models.Project) string {
	slots := []struct {
		stage  int
		member *models.Member
	}{
		{models.StatusTranslating, project.DefaultTranslator},
		{models.StatusProofing, project.DefaultProofreader},
		{models.StatusTypesetting, project.DefaultTypesetter},
		{models.StatusSupervising, project.DefaultSupervisor},
	}

	var b strings.Builder
	has := false
	for _, sl := range slots {
		if sl.member == nil {
			continue
		}
		has = true
		fmt.Fprintf(&b, "  %s: %s\n", models.StatusName(sl.stage), sl.member.Display())
	}
	if project.Leader != nil {
		has = true
		fmt.Fprintf(&b, "  负责人: %s\n", project.Leader.Display())
	}
	if !has {
		b.WriteString("  暂未设置\n")
	}
	return b.String()
}
