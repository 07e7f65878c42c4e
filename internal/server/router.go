package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/snipstash/backend/internal/auth"
	"github.com/snipstash/backend/internal/snippets"
	"go.uber.org/zap"
)

const identityContextKey = "snipstash_identity"

const maxSearchQueryLength = 200

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingSnippetsService  = errors.New("snippets service dependency required")
	errMissingMemberships      = errors.New("membership checker dependency required")
)

// SessionValidator resolves the requester identity from an incoming request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.Identity, error)
}

type Dependencies struct {
	Sessions        SessionValidator
	SnippetsService *snippets.Service
	Memberships     snippets.MembershipChecker
	Logger          *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionValidator
	}
	if deps.SnippetsService == nil {
		return nil, errMissingSnippetsService
	}
	if deps.Memberships == nil {
		return nil, errMissingMemberships
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:    deps.Sessions,
		service:     deps.SnippetsService,
		memberships: deps.Memberships,
		logger:      logger,
	}

	open := router.Group("/")
	open.Use(handler.resolveIdentity)
	open.GET("/snippets", handler.handleListSnippets)
	open.GET("/snippets/:id", handler.handleGetSnippet)

	protected := router.Group("/")
	protected.Use(handler.requireIdentity)
	protected.POST("/snippets", handler.handleCreateSnippet)
	protected.PUT("/snippets/:id", handler.handleUpdateSnippet)
	protected.DELETE("/snippets/:id", handler.handleDeleteSnippet)
	protected.GET("/snippets/search", handler.handleSearchSnippets)

	return router, nil
}

type httpHandler struct {
	sessions    SessionValidator
	service     *snippets.Service
	memberships snippets.MembershipChecker
	logger      *zap.Logger
}

// resolveIdentity attaches the requester identity when credentials are
// present. Absent credentials resolve to the anonymous identity; invalid
// credentials are rejected rather than silently downgraded.
func (h *httpHandler) resolveIdentity(c *gin.Context) {
	identity, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSessionToken) {
			c.Set(identityContextKey, auth.Anonymous())
			c.Next()
			return
		}
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(identityContextKey, identity)
	c.Next()
}

func (h *httpHandler) requireIdentity(c *gin.Context) {
	identity, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if !errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Warn("session validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(identityContextKey, identity)
	c.Next()
}

func requesterIdentity(c *gin.Context) auth.Identity {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Anonymous()
	}
	identity, ok := value.(auth.Identity)
	if !ok {
		return auth.Anonymous()
	}
	return identity
}

type snippetPayload struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	TeamID      *int64   `json:"team_id,omitempty"`
	UserID      int64    `json:"user_id"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// toSnippetPayload shapes a record for the wire. Embeddings and scores
// stay server-side.
func toSnippetPayload(record snippets.Snippet) snippetPayload {
	return snippetPayload{
		ID:          record.ID,
		Title:       record.Title,
		Code:        record.Code,
		Language:    record.Language,
		Description: record.Description,
		Tags:        record.TagList(),
		Visibility:  string(record.Visibility),
		TeamID:      record.TeamID,
		UserID:      record.UserID,
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   record.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSnippetPayloads(records []snippets.Snippet) []snippetPayload {
	payloads := make([]snippetPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toSnippetPayload(record))
	}
	return payloads
}

type createRequestPayload struct {
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	TeamID      *int64   `json:"team_id"`
}

func (h *httpHandler) handleCreateSnippet(c *gin.Context) {
	var request createRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	visibility := snippets.VisibilityPrivate
	if strings.TrimSpace(request.Visibility) != "" {
		parsed, err := snippets.ParseVisibility(request.Visibility)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_visibility"})
			return
		}
		visibility = parsed
	}

	identity := requesterIdentity(c)
	record, err := h.service.Create(c.Request.Context(), identity.UserID, snippets.CreatePayload{
		Title:       request.Title,
		Code:        request.Code,
		Language:    request.Language,
		Description: request.Description,
		Tags:        request.Tags,
		Visibility:  visibility,
		TeamID:      request.TeamID,
	})
	if err != nil {
		if errors.Is(err, snippets.ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		h.logger.Error("failed to create snippet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}

	c.JSON(http.StatusCreated, toSnippetPayload(record))
}

func (h *httpHandler) handleListSnippets(c *gin.Context) {
	identity := requesterIdentity(c)

	if rawTeamID := c.Query("team_id"); rawTeamID != "" {
		teamID, err := strconv.ParseInt(rawTeamID, 10, 64)
		if err != nil || teamID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_team_id"})
			return
		}
		if identity.IsAnonymous() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		member, err := h.memberships.IsMember(c.Request.Context(), identity.UserID, teamID)
		if err != nil {
			h.logger.Error("membership check failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		if !member {
			// Team rosters are hidden from non-members, same as records.
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		records, err := h.service.ListForTeam(c.Request.Context(), teamID)
		if err != nil {
			h.logger.Error("failed to list team snippets", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"snippets": toSnippetPayloads(records)})
		return
	}

	if c.Query("visibility") == string(snippets.VisibilityPublic) {
		records, err := h.service.ListPublic(c.Request.Context())
		if err != nil {
			h.logger.Error("failed to list public snippets", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"snippets": toSnippetPayloads(records)})
		return
	}

	if identity.IsAnonymous() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	records, err := h.service.ListForUser(c.Request.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to list snippets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snippets": toSnippetPayloads(records)})
}

func (h *httpHandler) handleGetSnippet(c *gin.Context) {
	id, ok := snippetIDParam(c)
	if !ok {
		return
	}

	record, err := h.service.GetByID(c.Request.Context(), id, requesterIdentity(c))
	if err != nil {
		if errors.Is(err, snippets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.logger.Error("failed to load snippet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}

	c.JSON(http.StatusOK, toSnippetPayload(record))
}

type updateRequestPayload struct {
	Title       *string   `json:"title"`
	Code        *string   `json:"code"`
	Language    *string   `json:"language"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Visibility  *string   `json:"visibility"`
}

func (h *httpHandler) handleUpdateSnippet(c *gin.Context) {
	id, ok := snippetIDParam(c)
	if !ok {
		return
	}

	var request updateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	payload := snippets.UpdatePayload{
		Title:       request.Title,
		Code:        request.Code,
		Language:    request.Language,
		Description: request.Description,
		Tags:        request.Tags,
	}
	if request.Visibility != nil {
		parsed, err := snippets.ParseVisibility(*request.Visibility)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_visibility"})
			return
		}
		payload.Visibility = &parsed
	}
	if payload.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_update"})
		return
	}

	identity := requesterIdentity(c)
	record, err := h.service.Update(c.Request.Context(), id, identity.UserID, payload)
	if err != nil {
		switch {
		case errors.Is(err, snippets.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		case errors.Is(err, snippets.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		default:
			h.logger.Error("failed to update snippet", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		}
		return
	}

	c.JSON(http.StatusOK, toSnippetPayload(record))
}

func (h *httpHandler) handleDeleteSnippet(c *gin.Context) {
	id, ok := snippetIDParam(c)
	if !ok {
		return
	}

	identity := requesterIdentity(c)
	if err := h.service.Delete(c.Request.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, snippets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.logger.Error("failed to delete snippet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleSearchSnippets(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" || len(query) > maxSearchQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query"})
		return
	}

	limit := 0
	if rawLimit := c.Query("k"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}

	identity := requesterIdentity(c)
	records, err := h.service.Search(c.Request.Context(), query, identity, limit)
	if err != nil {
		if errors.Is(err, snippets.ErrSearchUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search_unavailable"})
			return
		}
		h.logger.Error("search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": toSnippetPayloads(records)})
}

func snippetIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}
