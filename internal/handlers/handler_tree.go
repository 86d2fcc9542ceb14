package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
	"github.com/SscSPs/esiti_settimanali/internal/middleware"
	"github.com/gin-gonic/gin"
)

// viewHandler serves the computed tree and export views.
type viewHandler struct {
	viewService      portssvc.ViewSvc
	csvExportEnabled bool
}

func newViewHandler(vs portssvc.ViewSvc, csvExportEnabled bool) *viewHandler {
	return &viewHandler{viewService: vs, csvExportEnabled: csvExportEnabled}
}

func registerViewRoutes(rg *gin.RouterGroup, viewService portssvc.ViewSvc, csvExportEnabled bool) {
	h := newViewHandler(viewService, csvExportEnabled)

	tree := rg.Group("/tree")
	{
		tree.GET("", h.getTree)
		tree.GET("/totals", h.getTotals)
		tree.GET("/nodes/:id", h.getNode)
	}

	export := rg.Group("/export")
	{
		export.GET("/rows", h.getExportRows)
		export.GET("/flat", h.getFlatRows)
	}

	rg.GET("/hierarchy/levels", h.getLevels)
}

// getTree godoc
// @Summary Visible tree rows
// @Description Returns the rows visible for the given root, search query and expansion state, each with own and subtree values. A search lists every match flat; a root shows its subtree only.
// @Tags tree
// @Produce  json
// @Param   root query string false "Selected root record ID"
// @Param   q query string false "Case-insensitive name search"
// @Param   expanded query string false "Comma separated expanded record IDs"
// @Success 200 {object} dto.TreeResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Security BearerAuth
// @Router /tree [get]
func (h *viewHandler) getTree(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	var q dto.TreeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		logger.Warn("Failed to bind tree query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}
	_, q.ExpandedSet = c.GetQuery("expanded")

	c.JSON(http.StatusOK, h.viewService.Tree(c.Request.Context(), q.ToViewState()))
}

// getTotals godoc
// @Summary Grand totals
// @Description Sums every record exactly once, whatever the tree shape
// @Tags tree
// @Produce  json
// @Success 200 {object} domain.Values
// @Security BearerAuth
// @Router /tree/totals [get]
func (h *viewHandler) getTotals(c *gin.Context) {
	c.JSON(http.StatusOK, h.viewService.Totals(c.Request.Context()))
}

// getNode godoc
// @Summary Describe one node
// @Description Returns a record's position, values, children and the records it may be moved under
// @Tags tree
// @Produce  json
// @Param   id path string true "Record ID"
// @Success 200 {object} dto.NodeResponse
// @Failure 404 {object} map[string]string "Record not found"
// @Security BearerAuth
// @Router /tree/nodes/{id} [get]
func (h *viewHandler) getNode(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	node, err := h.viewService.Node(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to describe node")
		return
	}
	c.JSON(http.StatusOK, node)
}

// getExportRows godoc
// @Summary Hierarchical export rows
// @Description Full-tree rows with an aggregate row after every node that has children
// @Tags export
// @Produce  json
// @Success 200 {array} domain.ExportRow
// @Security BearerAuth
// @Router /export/rows [get]
func (h *viewHandler) getExportRows(c *gin.Context) {
	c.JSON(http.StatusOK, h.viewService.ExportRows(c.Request.Context()))
}

// getFlatRows godoc
// @Summary Flat export rows
// @Description Store-order rows with upper-cased names and two-decimal amounts. Disabled unless CSV export is enabled.
// @Tags export
// @Produce  json
// @Success 200 {array} dto.FlatRowResponse
// @Failure 404 {object} map[string]string "CSV export disabled"
// @Security BearerAuth
// @Router /export/flat [get]
func (h *viewHandler) getFlatRows(c *gin.Context) {
	if !h.csvExportEnabled {
		c.JSON(http.StatusNotFound, gin.H{"error": "CSV export is disabled"})
		return
	}
	c.JSON(http.StatusOK, h.viewService.FlatRows(c.Request.Context()))
}

// getLevels godoc
// @Summary Hierarchy levels
// @Description Lists the levels from highest to lowest with the levels each may report to
// @Tags tree
// @Produce  json
// @Success 200 {array} dto.LevelInfo
// @Security BearerAuth
// @Router /hierarchy/levels [get]
func (h *viewHandler) getLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.viewService.Levels())
}
