package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
	"github.com/SscSPs/esiti_settimanali/internal/importer"
	"github.com/SscSPs/esiti_settimanali/internal/middleware"
	"github.com/gin-gonic/gin"
)

// recordHandler handles HTTP requests that read or change records.
type recordHandler struct {
	recordService portssvc.RecordSvcFacade
}

func newRecordHandler(rs portssvc.RecordSvcFacade) *recordHandler {
	return &recordHandler{recordService: rs}
}

// registerRecordRoutes registers routes related to records. Creating endpoints go
// through writeLimit.
func registerRecordRoutes(rg *gin.RouterGroup, recordService portssvc.RecordSvcFacade, writeLimit gin.HandlerFunc) {
	h := newRecordHandler(recordService)

	records := rg.Group("/records")
	{
		records.GET("", h.listRecords)
		records.POST("", writeLimit, h.createRecord)
		records.POST("/import", writeLimit, h.importRecords)
		records.POST("/refresh", h.refreshRecords)
		records.GET("/:id", h.getRecord)
		records.PATCH("/:id", h.updateRecordField)
		records.DELETE("/:id", h.deleteRecord)
		records.PUT("/:id/hierarchy", h.editHierarchy)
		records.PUT("/:id/inclusion", h.setInclusion)
	}
}

// listRecords godoc
// @Summary List records
// @Description Lists records newest first with their result and hierarchy state. Without a limit every record is returned.
// @Tags records
// @Produce  json
// @Param   limit query int false "Page size (1-500)"
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListRecordsResponse
// @Failure 400 {object} map[string]string "Invalid paging parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /records [get]
func (h *recordHandler) listRecords(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	var params dto.ListRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind list parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}

	page, err := h.recordService.ListRecordsPage(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list records")
		return
	}
	c.JSON(http.StatusOK, page)
}

// getRecord godoc
// @Summary Get a record by ID
// @Tags records
// @Produce  json
// @Param   id path string true "Record ID"
// @Success 200 {object} dto.RecordResponse
// @Failure 404 {object} map[string]string "Record not found"
// @Security BearerAuth
// @Router /records/{id} [get]
func (h *recordHandler) getRecord(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	rec, err := h.recordService.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// createRecord godoc
// @Summary Add a record
// @Description Adds a record owned by the logged-in user. Negativo is stored as a deficit whatever sign is sent.
// @Tags records
// @Accept  json
// @Produce  json
// @Param   record body dto.CreateRecordRequest true "Record details"
// @Success 201 {object} dto.RecordResponse
// @Failure 400 {object} map[string]string "Invalid input or hierarchy assignment"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 502 {object} map[string]string "Record store rejected the write"
// @Security BearerAuth
// @Router /records [post]
func (h *recordHandler) createRecord(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateRecord", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	ownerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rec, err := h.recordService.AddRecord(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to create record")
		return
	}
	logger.Info("Record created", slog.String("record_id", rec.RecordID))
	c.JSON(http.StatusCreated, rec)
}

// updateRecordField godoc
// @Summary Update one field of a record
// @Tags records
// @Accept  json
// @Produce  json
// @Param   id path string true "Record ID"
// @Param   update body dto.UpdateFieldRequest true "Field and raw value"
// @Success 200 {object} dto.RecordResponse
// @Failure 400 {object} map[string]string "Invalid field or empty name"
// @Failure 404 {object} map[string]string "Record not found"
// @Failure 502 {object} map[string]string "Record store rejected the write, state re-fetched"
// @Security BearerAuth
// @Router /records/{id} [patch]
func (h *recordHandler) updateRecordField(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c).With(slog.String("record_id", c.Param("id")))
	var req dto.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateField", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	rec, err := h.recordService.UpdateField(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err, "Failed to update record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// deleteRecord godoc
// @Summary Delete a record
// @Description Deletes a record. Children are not deleted; they become roots.
// @Tags records
// @Param   id path string true "Record ID"
// @Param   confirm query bool true "Must be true"
// @Success 204
// @Failure 400 {object} map[string]string "Deletion not confirmed"
// @Failure 404 {object} map[string]string "Record not found"
// @Failure 502 {object} map[string]string "Record store rejected the delete"
// @Security BearerAuth
// @Router /records/{id} [delete]
func (h *recordHandler) deleteRecord(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c).With(slog.String("record_id", c.Param("id")))
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	if err := h.recordService.DeleteRecord(c.Request.Context(), c.Param("id"), confirmed); err != nil {
		respondError(c, logger, err, "Failed to delete record")
		return
	}
	c.Status(http.StatusNoContent)
}

// editHierarchy godoc
// @Summary Reassign level and parent
// @Description Omitting parentID keeps the current parent when the new level allows it; an empty parentID makes the record a root.
// @Tags records
// @Accept  json
// @Produce  json
// @Param   id path string true "Record ID"
// @Param   assignment body dto.EditHierarchyRequest true "Level and optional parent"
// @Success 200 {object} domain.HierarchyAssignment
// @Failure 400 {object} map[string]string "Assignment violates the level rules"
// @Failure 404 {object} map[string]string "Record not found"
// @Security BearerAuth
// @Router /records/{id}/hierarchy [put]
func (h *recordHandler) editHierarchy(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c).With(slog.String("record_id", c.Param("id")))
	var req dto.EditHierarchyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for EditHierarchy", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	a, err := h.recordService.EditHierarchy(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err, "Failed to edit hierarchy")
		return
	}
	c.JSON(http.StatusOK, a)
}

// setInclusion godoc
// @Summary Toggle versamenti inclusion
// @Tags records
// @Accept  json
// @Param   id path string true "Record ID"
// @Param   inclusion body dto.SetInclusionRequest true "Inclusion flag"
// @Success 204
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Record not found"
// @Security BearerAuth
// @Router /records/{id}/inclusion [put]
func (h *recordHandler) setInclusion(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c).With(slog.String("record_id", c.Param("id")))
	var req dto.SetInclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetInclusion", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.recordService.SetInclusion(c.Request.Context(), c.Param("id"), *req.Include); err != nil {
		respondError(c, logger, err, "Failed to set inclusion")
		return
	}
	c.Status(http.StatusNoContent)
}

// importRecords godoc
// @Summary Import records from CSV
// @Description Bulk-creates records from a CSV file with columns name, negativo, cauzione, versamenti_settimanali, disponibilita and optional level, parent_id. Rows without a name are skipped.
// @Tags records
// @Accept  multipart/form-data
// @Produce  json
// @Param   file formData file true "CSV file"
// @Success 201 {object} dto.ImportResult
// @Failure 400 {object} map[string]string "Missing file, bad header or nothing to import"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 502 {object} map[string]string "Record store rejected the import"
// @Security BearerAuth
// @Router /records/import [post]
func (h *recordHandler) importRecords(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	ownerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Importing user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		logger.Warn("Import file missing", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file is required in the 'file' field"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, logger, err, "Failed to read import file")
		return
	}
	defer f.Close()

	rows, err := importer.Parse(f)
	if err != nil {
		respondError(c, logger, err, "Failed to parse import file")
		return
	}
	if len(rows) == 0 {
		respondError(c, logger, apperrors.ErrImportEmpty, "Nothing to import")
		return
	}

	result, err := h.recordService.ImportRecords(c.Request.Context(), ownerID, rows)
	if err != nil {
		respondError(c, logger, err, "Failed to import records")
		return
	}
	logger.Info("Records imported", slog.Int("imported", result.Imported), slog.Int("skipped", result.Skipped))
	c.JSON(http.StatusCreated, result)
}

// refreshRecords godoc
// @Summary Re-fetch every record
// @Description Reloads the workspace from the record store, discarding any unconfirmed local state
// @Tags records
// @Success 204
// @Failure 502 {object} map[string]string "Record store unavailable"
// @Security BearerAuth
// @Router /records/refresh [post]
func (h *recordHandler) refreshRecords(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	if err := h.recordService.Refresh(c.Request.Context()); err != nil {
		respondError(c, logger, err, "Failed to refresh records")
		return
	}
	c.Status(http.StatusNoContent)
}
