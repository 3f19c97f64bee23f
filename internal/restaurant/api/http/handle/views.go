package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/app/services"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/logger"
)

// ViewHandler serves the data behind the four dashboards.
type ViewHandler struct {
	catalog    *services.MenuCatalog
	board      *services.OrderBoard
	db         core.IDB
	restaurant config.Restaurant
	mylog      logger.Logger
}

func NewViewHandler(
	catalog *services.MenuCatalog,
	board *services.OrderBoard,
	db core.IDB,
	restaurant config.Restaurant,
	mylog logger.Logger,
) *ViewHandler {
	return &ViewHandler{
		catalog:    catalog,
		board:      board,
		db:         db,
		restaurant: restaurant,
		mylog:      mylog,
	}
}

// Portal is the customer view: menu by name, narrowed by ?category= and ?q=.
func (vh *ViewHandler) Portal() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := services.MenuFilter{
			Category: c.Query("category"),
			Search:   c.Query("q"),
		}
		menu := vh.catalog.ByName()
		if filter != (services.MenuFilter{}) {
			menu = byName(vh.catalog.Filter(filter), menu)
		}

		jsonResponse(c, http.StatusOK, gin.H{
			"restaurant": gin.H{
				"name":      vh.restaurant.Name,
				"logo_text": vh.restaurant.LogoText,
			},
			"categories": vh.catalog.Categories(),
			"menu":       menu,
		})
	}
}

func (vh *ViewHandler) Kitchen() gin.HandlerFunc {
	return func(c *gin.Context) {
		jsonResponse(c, http.StatusOK, gin.H{"columns": vh.board.Kitchen()})
	}
}

func (vh *ViewHandler) Billing() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := c.DefaultQuery("filter", services.BillingAll)
		orders := vh.board.Billing(c.Query("q"), filter)
		jsonResponse(c, http.StatusOK, gin.H{
			"orders": orders,
			"count":  len(orders),
			"filter": filter,
		})
	}
}

func (vh *ViewHandler) Settings() gin.HandlerFunc {
	return func(c *gin.Context) {
		items := vh.catalog.Filter(services.MenuFilter{
			Category: c.DefaultQuery("category", services.CategoryAll),
			Diet:     c.DefaultQuery("diet", services.DietAll),
			Search:   c.Query("q"),
		})
		if items == nil {
			items = []models.MenuItem{}
		}
		jsonResponse(c, http.StatusOK, gin.H{
			"categories": vh.catalog.Categories(),
			"items":      items,
		})
	}
}

func (vh *ViewHandler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := vh.db.IsAlive(); err != nil {
			jsonResponse(c, http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		jsonResponse(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Home redirects unknown routes to the customer portal.
func (vh *ViewHandler) Home() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	}
}

// byName keeps the items of subset in the order of sorted.
func byName(subset, sorted []models.MenuItem) []models.MenuItem {
	keep := make(map[string]bool, len(subset))
	for _, item := range subset {
		keep[item.ID] = true
	}
	out := make([]models.MenuItem, 0, len(subset))
	for _, item := range sorted {
		if keep[item.ID] {
			out = append(out, item)
		}
	}
	return out
}
