package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/dto"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// declarationHandler handles HTTP requests related to birth declarations.
type declarationHandler struct {
	declarationService portssvc.DeclarationSvcFacade
}

func newDeclarationHandler(ds portssvc.DeclarationSvcFacade) *declarationHandler {
	return &declarationHandler{declarationService: ds}
}

// RegisterDeclarationRoutes registers routes related to declarations.
// The group must already run behind AuthMiddleware.
func RegisterDeclarationRoutes(rg *gin.RouterGroup, declarationService portssvc.DeclarationSvcFacade) {
	h := newDeclarationHandler(declarationService)

	declarations := rg.Group("/declarations")
	{
		declarations.POST("", middleware.RequireRoles(domain.RoleGuardian), h.submitDeclaration)
		declarations.GET("", h.listDeclarations)
		declarations.GET("/:declarationID", h.getDeclaration)
		declarations.POST("/:declarationID/route", h.routeToHospital)
		declarations.POST("/:declarationID/reject", h.rejectDeclaration)
		declarations.POST("/:declarationID/validate", h.validateDeclaration)
		declarations.POST("/:declarationID/verify", h.verifyDeclaration)
		declarations.POST("/:declarationID/archive", h.archiveDeclaration)
	}
}

// actorOrAbort reads the authenticated actor, answering 401 when it is missing.
func actorOrAbort(c *gin.Context, logger *slog.Logger) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		logger.Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return actor, ok
}

// submitDeclaration godoc
// @Summary Declare a birth
// @Description A guardian submits a birth declaration to a municipal office
// @Tags declarations
// @Accept  json
// @Produce  json
// @Param   declaration body dto.SubmitDeclarationRequest true "Declaration details"
// @Success 201 {object} dto.DeclarationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Only guardians can declare"
// @Failure 422 {object} map[string]string "Validation error"
// @Failure 500 {object} map[string]string "Failed to submit declaration"
// @Security BearerAuth
// @Router /declarations [post]
func (h *declarationHandler) submitDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitDeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "SubmitDeclaration")
		return
	}
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}

	declaration, err := h.declarationService.Submit(c.Request.Context(), actor, req.ToDomain(actor.ID))
	if err != nil {
		respondError(c, logger, err, "Failed to submit declaration")
		return
	}

	c.JSON(http.StatusCreated, dto.ToDeclarationResponse(declaration, actor.Role))
}

// getDeclaration godoc
// @Summary Get a declaration by ID
// @Description Returns a declaration visible to the caller together with the actions available to them
// @Tags declarations
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Success 200 {object} dto.DeclarationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 500 {object} map[string]string "Failed to retrieve declaration"
// @Security BearerAuth
// @Router /declarations/{declarationID} [get]
func (h *declarationHandler) getDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	declarationID := c.Param("declarationID")

	declaration, err := h.declarationService.GetDeclaration(c.Request.Context(), actor, declarationID)
	if err != nil {
		respondError(c, logger.With(slog.String("declaration_id", declarationID)), err, "Failed to retrieve declaration")
		return
	}
	c.JSON(http.StatusOK, dto.ToDeclarationResponse(declaration, actor.Role))
}

// listDeclarations godoc
// @Summary List declarations
// @Description Lists the declarations the caller may see, newest first
// @Tags declarations
// @Produce  json
// @Param   status query string false "Comma separated statuses"
// @Param   municipalOfficeID query string false "Municipal office"
// @Param   hospitalID query string false "Assigned hospital"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListDeclarationsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 403 {object} map[string]string "Filter outside the caller's affiliation"
// @Failure 500 {object} map[string]string "Failed to list declarations"
// @Security BearerAuth
// @Router /declarations [get]
func (h *declarationHandler) listDeclarations(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}

	var params dto.ListDeclarationsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListDeclarations", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	filter := domain.DeclarationFilter{
		MunicipalOfficeID:  params.MunicipalOfficeID,
		AssignedHospitalID: params.HospitalID,
	}
	if params.Status != "" {
		for _, raw := range strings.Split(params.Status, ",") {
			st, err := domain.ParseDeclarationStatus(strings.TrimSpace(raw))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	declarations, next, err := h.declarationService.ListDeclarations(c.Request.Context(), actor, filter, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, logger, err, "Failed to list declarations")
		return
	}

	logger.Info("Declarations listed", slog.Int("count", len(declarations)))
	c.JSON(http.StatusOK, dto.ListDeclarationsResponse{
		Declarations: dto.ToDeclarationResponses(declarations, actor.Role),
		NextToken:    next,
	})
}

// routeToHospital godoc
// @Summary Route a declaration to a hospital
// @Description A municipal officer sends the declaration to a registered hospital for verification, or re-assigns it
// @Tags workflow
// @Accept  json
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Param   body body dto.RouteToHospitalRequest true "Target hospital"
// @Success 200 {object} dto.DeclarationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 409 {object} map[string]string "Concurrent update"
// @Failure 412 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /declarations/{declarationID}/route [post]
func (h *declarationHandler) routeToHospital(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RouteToHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "RouteToHospital")
		return
	}
	h.runTransition(c, logger, func(actor domain.Actor, id string) (*domain.Declaration, error) {
		return h.declarationService.RouteToHospital(c.Request.Context(), actor, id, req.HospitalID)
	})
}

// rejectDeclaration godoc
// @Summary Reject a declaration
// @Description A municipal officer rejects a declaration with a reason
// @Tags workflow
// @Accept  json
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Param   body body dto.RejectDeclarationRequest true "Rejection reason"
// @Success 200 {object} dto.DeclarationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 409 {object} map[string]string "Concurrent update"
// @Failure 412 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /declarations/{declarationID}/reject [post]
func (h *declarationHandler) rejectDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RejectDeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "RejectDeclaration")
		return
	}
	h.runTransition(c, logger, func(actor domain.Actor, id string) (*domain.Declaration, error) {
		return h.declarationService.Reject(c.Request.Context(), actor, id, req.Reason)
	})
}

// validateDeclaration godoc
// @Summary Validate a declaration
// @Description A municipal officer validates a declaration whose birth certificate was found authentic
// @Tags workflow
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Success 200 {object} dto.DeclarationResponse
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 409 {object} map[string]string "Concurrent update"
// @Failure 412 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /declarations/{declarationID}/validate [post]
func (h *declarationHandler) validateDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	h.runTransition(c, logger, func(actor domain.Actor, id string) (*domain.Declaration, error) {
		return h.declarationService.Validate(c.Request.Context(), actor, id)
	})
}

// verifyDeclaration godoc
// @Summary Record the hospital verdict
// @Description The assigned hospital states whether the birth certificate is authentic
// @Tags workflow
// @Accept  json
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Param   body body dto.VerifyDeclarationRequest true "Verdict"
// @Success 200 {object} dto.DeclarationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 409 {object} map[string]string "Concurrent update"
// @Failure 412 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /declarations/{declarationID}/verify [post]
func (h *declarationHandler) verifyDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.VerifyDeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "VerifyDeclaration")
		return
	}
	h.runTransition(c, logger, func(actor domain.Actor, id string) (*domain.Declaration, error) {
		return h.declarationService.Verify(c.Request.Context(), actor, id, *req.Authentic, req.Comment)
	})
}

// archiveDeclaration godoc
// @Summary Archive a validated declaration
// @Description An administrator archives the declaration; its certificate stops accepting downloads
// @Tags workflow
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Success 200 {object} dto.DeclarationResponse
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 409 {object} map[string]string "Concurrent update"
// @Failure 412 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /declarations/{declarationID}/archive [post]
func (h *declarationHandler) archiveDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	h.runTransition(c, logger, func(actor domain.Actor, id string) (*domain.Declaration, error) {
		return h.declarationService.Archive(c.Request.Context(), actor, id)
	})
}

func (h *declarationHandler) runTransition(c *gin.Context, logger *slog.Logger, run func(domain.Actor, string) (*domain.Declaration, error)) {
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	declarationID := c.Param("declarationID")
	logger = logger.With(slog.String("declaration_id", declarationID))

	declaration, err := run(actor, declarationID)
	if err != nil {
		respondError(c, logger, err, "Failed to apply transition")
		return
	}
	c.JSON(http.StatusOK, dto.ToDeclarationResponse(declaration, actor.Role))
}
