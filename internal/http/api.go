package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fishlog/internal/domain"
	"fishlog/internal/service"
	"fishlog/internal/storage"
)

// sessionCookie is the cookie carrying the signed session token. API
// clients may send the same token as an Authorization bearer instead.
const sessionCookie = "fishlog_session"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users      service.UserService
	catches    service.CatchService
	folders    service.FolderService
	storage    storage.Service
	sessionTTL time.Duration
	logger     *logrus.Logger
}

func NewHandler(users service.UserService, catches service.CatchService, folders service.FolderService, store storage.Service, sessionTTL time.Duration, logger *logrus.Logger) *Handler {
	return &Handler{
		users:      users,
		catches:    catches,
		folders:    folders,
		storage:    store,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestLogger(h.logger))

	api := router.Group("/api")
	{
		api.POST("/signup", h.signup)
		api.POST("/login", h.login)
		api.POST("/logout", h.logout)
		api.GET("/user", h.requireUser(), h.currentUser)
		api.POST("/change-password", h.requireUser(), h.changePassword)
		api.GET("/catches", h.requireUser(), h.listCatchesLegacy)
		api.POST("/log-catch", h.requireUser(), h.logCatchLegacy)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	authed := router.Group("/", h.requireUser())
	{
		authed.GET("/fish", h.listCatches)
		authed.POST("/fish", h.createCatch)
		authed.DELETE("/fish/:id", h.deleteCatch)
		authed.GET("/folders", h.listFolders)
		authed.POST("/folder", h.createFolder)
		authed.DELETE("/folder/:id", h.deleteFolder)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User created", "userId": user.ID})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.SetCookie(sessionCookie, token, int(h.sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in",
		"token":   token,
		"userId":  user.ID,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if err := h.users.Logout(c.Request.Context(), token); err != nil {
			c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"loggedIn": true, "userId": authedUser(c)})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), authedUser(c), req.OldPassword, req.NewPassword); err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *Handler) listCatches(c *gin.Context) {
	userID, ok := h.actingUser(c, c.Query("userId"))
	if !ok {
		return
	}

	folderID, ok := optionalID(c, c.Query("folderId"), "folderId")
	if !ok {
		return
	}

	catches, err := h.catches.ListByOwner(c.Request.Context(), userID, folderID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, h.catchesToResponse(c, catches))
}

func (h *Handler) createCatch(c *gin.Context) {
	userID, ok := h.actingUser(c, c.PostForm("userId"))
	if !ok {
		return
	}

	folderID, ok := optionalID(c, c.PostForm("folderId"), "folderId")
	if !ok {
		return
	}

	in := service.CatchInput{
		Species:     c.PostForm("species"),
		Size:        c.PostForm("size"),
		Weight:      c.PostForm("weight"),
		CatchMethod: c.PostForm("catchMethod"),
		Location:    c.PostForm("location"),
		Date:        c.PostForm("date"),
	}

	photoPath := ""
	if file, err := c.FormFile("photo"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read photo: " + err.Error()})
			return
		}
		defer src.Close()

		photoPath, err = h.storage.SavePhoto(c.Request.Context(), file.Filename, src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store photo: " + err.Error()})
			return
		}
	}

	caught, err := h.catches.Create(c.Request.Context(), userID, in, photoPath, folderID)
	if err != nil {
		// the record did not make it, so the stored photo is orphaned
		if photoPath != "" {
			if rmErr := h.storage.RemovePhoto(c.Request.Context(), photoPath); rmErr != nil {
				h.logger.Warnf("remove orphaned photo %s: %v", photoPath, rmErr)
			}
		}
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Catch logged successfully",
		"catch":   h.catchToResponse(c, *caught),
	})
}

func (h *Handler) deleteCatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := h.actingUser(c, c.Query("userId"))
	if !ok {
		return
	}

	deleted, err := h.catches.Delete(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	resp := gin.H{"deleted": deleted.ID}
	if deleted.PhotoPath != "" {
		if err := h.storage.RemovePhoto(c.Request.Context(), deleted.PhotoPath); err != nil {
			h.logger.Warnf("remove photo %s: %v", deleted.PhotoPath, err)
			resp["warnings"] = []string{"photo cleanup failed"}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listFolders(c *gin.Context) {
	userID, ok := h.actingUser(c, c.Query("userId"))
	if !ok {
		return
	}

	folders, err := h.folders.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	resp := make([]FolderResponse, len(folders))
	for i := range folders {
		resp[i] = folderToResponse(folders[i])
	}
	c.JSON(http.StatusOK, resp)
}

type createFolderRequest struct {
	UserID int64  `json:"userId" form:"userId"`
	Name   string `json:"name" form:"name"`
}

func (h *Handler) createFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed := ""
	if req.UserID != 0 {
		claimed = strconv.FormatInt(req.UserID, 10)
	}
	userID, ok := h.actingUser(c, claimed)
	if !ok {
		return
	}

	folder, err := h.folders.Create(c.Request.Context(), userID, req.Name)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Folder created",
		"folder":  folderToResponse(*folder),
	})
}

func (h *Handler) deleteFolder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := h.actingUser(c, c.Query("userId"))
	if !ok {
		return
	}

	if err := h.folders.Delete(c.Request.Context(), id, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// listCatchesLegacy serves the original single-table clients: every catch
// of the session user, wrapped in a "catches" object.
func (h *Handler) listCatchesLegacy(c *gin.Context) {
	catches, err := h.catches.ListByOwner(c.Request.Context(), authedUser(c), nil)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"catches": h.catchesToResponse(c, catches)})
}

type logCatchRequest struct {
	Species     string `json:"species"`
	Size        string `json:"size"`
	Weight      string `json:"weight"`
	CatchMethod string `json:"catchMethod"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	FolderID    *int64 `json:"folderId"`
}

// logCatchLegacy is the JSON submission path (no photo upload).
func (h *Handler) logCatchLegacy(c *gin.Context) {
	var req logCatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := service.CatchInput{
		Species:     req.Species,
		Size:        req.Size,
		Weight:      req.Weight,
		CatchMethod: req.CatchMethod,
		Location:    req.Location,
		Date:        req.Date,
	}

	caught, err := h.catches.Create(c.Request.Context(), authedUser(c), in, "", req.FolderID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Catch logged successfully",
		"catch":   h.catchToResponse(c, *caught),
	})
}

type CatchResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Species     string `json:"species"`
	Size        string `json:"size"`
	Weight      string `json:"weight"`
	CatchMethod string `json:"catchMethod"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	PhotoPath   string `json:"photoPath,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	FolderID    *int64 `json:"folderId"`
	CreatedAt   string `json:"createdAt"`
}

type FolderResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func (h *Handler) catchToResponse(c *gin.Context, rec domain.Catch) CatchResponse {
	resp := CatchResponse{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Species:     rec.Species,
		Size:        rec.Size,
		Weight:      rec.Weight,
		CatchMethod: rec.CatchMethod,
		Location:    rec.Location,
		Date:        rec.Date,
		PhotoPath:   rec.PhotoPath,
		FolderID:    rec.FolderID,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.PhotoPath != "" {
		url, err := h.storage.PhotoURL(c.Request.Context(), rec.PhotoPath, 15*time.Minute)
		if err != nil {
			h.logger.Warnf("photo url for %s: %v", rec.PhotoPath, err)
		} else {
			resp.PhotoURL = url
		}
	}
	return resp
}

func (h *Handler) catchesToResponse(c *gin.Context, catches []domain.Catch) []CatchResponse {
	resp := make([]CatchResponse, len(catches))
	for i := range catches {
		resp[i] = h.catchToResponse(c, catches[i])
	}
	return resp
}

func folderToResponse(f domain.Folder) FolderResponse {
	return FolderResponse{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func optionalID(c *gin.Context, raw, name string) (*int64, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrFolderNotOwned):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrIncorrectOldPassword):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internals of unexpected failures; expected domain
// errors pass through as their own text.
func errorMessage(err error) string {
	if statusForError(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
