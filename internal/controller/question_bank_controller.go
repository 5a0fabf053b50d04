package controller

import (
	"bytes"
	"io"
	"net/http"
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuestionBankController serves the commissioner's question bank of a community.
type QuestionBankController struct {
	BankService *service.QuestionBankService
}

func NewQuestionBankController(bankService *service.QuestionBankService) *QuestionBankController {
	return &QuestionBankController{BankService: bankService}
}

type IDsRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

type TagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

type BulkTagRequest struct {
	IDs    []uint `json:"ids" binding:"required"`
	Tag    string `json:"tag" binding:"required"`
	Action string `json:"action" binding:"required,oneof=add remove"`
}

type TemplateRequest struct {
	Name string `json:"name" binding:"required"`
}

// communityAndUser reads the caller and the community id shared by every route here.
func communityAndUser(ctx *gin.Context) (userID, communityID uint, ok bool) {
	claims, ok := currentUser(ctx)
	if !ok {
		return 0, 0, false
	}
	communityID, ok = pathID(ctx, "id")
	if !ok {
		return 0, 0, false
	}
	return claims.UserID, communityID, true
}

// readUpload returns the name and body of the multipart "file" field.
func readUpload(ctx *gin.Context) (string, []byte, bool) {
	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return "", nil, false
	}
	if header.Size > util.MaxImportBytes {
		util.BadRequest(ctx, "file exceeds the 5 MB limit")
		return "", nil, false
	}
	f, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, util.MaxImportBytes+1))
	if err != nil {
		util.LogInternalError(ctx, err)
		return "", nil, false
	}
	if len(data) > util.MaxImportBytes {
		util.BadRequest(ctx, "file exceeds the 5 MB limit")
		return "", nil, false
	}
	return header.Filename, data, true
}

// ListQuestions godoc
// @Summary List bank questions
// @Description All filters combine. Search matches question text, answers and category.
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param search query string false "Free text"
// @Param category query string false "Category"
// @Param difficulty query string false "easy, medium or hard"
// @Param tag query string false "Tag"
// @Success 200 {object} util.Response{data=[]model.CommunityQuestion}
// @Router /communities/{id}/manage/questions [get]
func (c *QuestionBankController) ListQuestions(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	qs, err := c.BankService.List(userID, communityID, service.BankFilter{
		Search:     ctx.Query("search"),
		Category:   ctx.Query("category"),
		Difficulty: ctx.Query("difficulty"),
		Tag:        ctx.Query("tag"),
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// CreateQuestion godoc
// @Summary Add a question to the bank
// @Tags Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param body body service.QuestionInput true "Question"
// @Success 201 {object} util.Response{data=model.CommunityQuestion}
// @Router /communities/{id}/manage/questions [post]
func (c *QuestionBankController) CreateQuestion(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.BankService.Create(userID, communityID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// UpdateQuestion godoc
// @Summary Edit a bank question
// @Tags Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Param body body service.QuestionInput true "Question"
// @Success 200 {object} util.Response{data=model.CommunityQuestion}
// @Router /communities/{id}/manage/questions/{questionId} [put]
func (c *QuestionBankController) UpdateQuestion(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.BankService.Update(userID, communityID, questionID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary Delete a bank question
// @Tags Question Bank
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Success 200 {object} util.Response
// @Router /communities/{id}/manage/questions/{questionId} [delete]
func (c *QuestionBankController) DeleteQuestion(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	if err := c.BankService.Delete(userID, communityID, questionID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// BulkDelete godoc
// @Summary Delete several bank questions
// @Tags Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param body body IDsRequest true "Question IDs"
// @Success 200 {object} util.Response
// @Router /communities/{id}/manage/questions/bulk-delete [post]
func (c *QuestionBankController) BulkDelete(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	var req IDsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	deleted, err := c.BankService.BulkDelete(userID, communityID, req.IDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": deleted})
}

// AddTag godoc
// @Summary Tag a question
// @Tags Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Param body body TagRequest true "Tag"
// @Success 200 {object} util.Response{data=model.CommunityQuestion}
// @Router /communities/{id}/manage/questions/{questionId}/tags [post]
func (c *QuestionBankController) AddTag(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req TagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.BankService.AddTag(userID, communityID, questionID, req.Tag)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// RemoveTag godoc
// @Summary Remove a tag from a question
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Param tag path string true "Tag"
// @Success 200 {object} util.Response{data=model.CommunityQuestion}
// @Router /communities/{id}/manage/questions/{questionId}/tags/{tag} [delete]
func (c *QuestionBankController) RemoveTag(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	q, err := c.BankService.RemoveTag(userID, communityID, questionID, ctx.Param("tag"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// BulkTag godoc
// @Summary Add or remove a tag on several questions
// @Tags Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param body body BulkTagRequest true "IDs, tag and action"
// @Success 200 {object} util.Response
// @Router /communities/{id}/manage/questions/bulk-tag [post]
func (c *QuestionBankController) BulkTag(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	var req BulkTagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	changed, err := c.BankService.BulkTag(userID, communityID, req.IDs, req.Tag, req.Action == "add")
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": changed})
}

// History godoc
// @Summary Version history of a question, newest first
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Success 200 {object} util.Response{data=[]model.QuestionVersion}
// @Router /communities/{id}/manage/questions/{questionId}/versions [get]
func (c *QuestionBankController) History(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	versions, err := c.BankService.History(userID, communityID, questionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, versions)
}

// Restore godoc
// @Summary Restore a question to an earlier version
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Param versionId path int true "Version ID"
// @Success 200 {object} util.Response{data=model.CommunityQuestion}
// @Router /communities/{id}/manage/questions/{questionId}/versions/{versionId}/restore [post]
func (c *QuestionBankController) Restore(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}
	versionID, ok := pathID(ctx, "versionId")
	if !ok {
		return
	}

	q, err := c.BankService.Restore(userID, communityID, questionID, versionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// SaveTemplate godoc
// @Summary Save a question as a reusable template
// @Tags Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param questionId path int true "Question ID"
// @Param body body TemplateRequest true "Template name"
// @Success 201 {object} util.Response{data=model.QuestionTemplate}
// @Router /communities/{id}/manage/questions/{questionId}/template [post]
func (c *QuestionBankController) SaveTemplate(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	t, err := c.BankService.SaveTemplate(userID, communityID, questionID, req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, t)
}

// ListTemplates godoc
// @Summary Question templates of the community
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response{data=[]model.QuestionTemplate}
// @Router /communities/{id}/manage/templates [get]
func (c *QuestionBankController) ListTemplates(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	templates, err := c.BankService.ListTemplates(userID, communityID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, templates)
}

// UseTemplate godoc
// @Summary Create a question from a template
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param templateId path int true "Template ID"
// @Success 201 {object} util.Response{data=model.CommunityQuestion}
// @Router /communities/{id}/manage/templates/{templateId}/use [post]
func (c *QuestionBankController) UseTemplate(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	templateID, ok := pathID(ctx, "templateId")
	if !ok {
		return
	}

	q, err := c.BankService.CreateFromTemplate(userID, communityID, templateID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// DeleteTemplate godoc
// @Summary Delete a template
// @Description Questions created from it are unaffected.
// @Tags Question Bank
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param templateId path int true "Template ID"
// @Success 200 {object} util.Response
// @Router /communities/{id}/manage/templates/{templateId} [delete]
func (c *QuestionBankController) DeleteTemplate(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	templateID, ok := pathID(ctx, "templateId")
	if !ok {
		return
	}

	if err := c.BankService.DeleteTemplate(userID, communityID, templateID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ValidateImport godoc
// @Summary Dry-run a CSV or XLSX import
// @Tags Question Bank
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} util.Response{data=service.ImportReport}
// @Router /communities/{id}/manage/import/validate [post]
func (c *QuestionBankController) ValidateImport(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	name, data, ok := readUpload(ctx)
	if !ok {
		return
	}

	report, err := c.BankService.ValidateImport(userID, communityID, name, data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// CommitImport godoc
// @Summary Import the valid rows of a CSV or XLSX file
// @Tags Question Bank
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param file formData file true "CSV or XLSX file"
// @Success 201 {object} util.Response{data=service.ImportResult}
// @Router /communities/{id}/manage/import [post]
func (c *QuestionBankController) CommitImport(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}
	name, data, ok := readUpload(ctx)
	if !ok {
		return
	}

	result, err := c.BankService.CommitImport(ctx.Request.Context(), userID, communityID, name, data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// ImportLogs godoc
// @Summary Past imports of the community
// @Tags Question Bank
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response{data=[]model.ImportLog}
// @Router /communities/{id}/manage/import/logs [get]
func (c *QuestionBankController) ImportLogs(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	logs, err := c.BankService.ImportLogs(userID, communityID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}

// Export godoc
// @Summary Download the bank as CSV or XLSX
// @Tags Question Bank
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} binary
// @Router /communities/{id}/manage/export [get]
func (c *QuestionBankController) Export(ctx *gin.Context) {
	userID, communityID, ok := communityAndUser(ctx)
	if !ok {
		return
	}

	file, err := c.BankService.Export(userID, communityID, ctx.DefaultQuery("format", "csv"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	ctx.Data(http.StatusOK, file.ContentType, file.Body)
}

// ImportTemplate godoc
// @Summary Empty CSV with the import header row
// @Tags Question Bank
// @Produce text/csv
// @Success 200 {file} binary
// @Router /question-bank/template.csv [get]
func (c *QuestionBankController) ImportTemplate(ctx *gin.Context) {
	var buf bytes.Buffer
	if err := service.TemplateCSV(&buf); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="question-import-template.csv"`)
	ctx.Data(http.StatusOK, util.MimeCSV, buf.Bytes())
}
