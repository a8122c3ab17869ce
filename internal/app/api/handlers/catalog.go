package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/packledger/internal/platform/catalog"
	"github.com/fatflowers/packledger/pkg/response"
)

// @Summary      List pack templates
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespListPackTemplates
// @Router       /api/v1/pack_templates [get]
func ApiListPackTemplates(cat catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(cat.ListTemplates(c.Request.Context())))
	}
}

func RegisterCatalogRoutes(r gin.IRouter, cat catalog.Catalog) {
	r.GET("/pack_templates", ApiListPackTemplates(cat))
}
