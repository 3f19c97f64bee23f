package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moms-kitchen/internal/restaurant/app/services"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

type MenuHandler struct {
	catalog  *services.MenuCatalog
	seedFile string
	mylog    logger.Logger
}

func NewMenuHandler(catalog *services.MenuCatalog, seedFile string, mylog logger.Logger) *MenuHandler {
	return &MenuHandler{
		catalog:  catalog,
		seedFile: seedFile,
		mylog:    mylog,
	}
}

func (mh *MenuHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		jsonResponse(c, http.StatusOK, gin.H{"items": mh.catalog.Items()})
	}
}

func (mh *MenuHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload dto.MenuItemPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			mh.mylog.Action("parse_failed").Debug("invalid menu item", "error", err.Error())
			jsonError(c, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		item, err := mh.catalog.Add(ctx, toMenuItem("", payload))
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusCreated, item)
	}
}

func (mh *MenuHandler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload dto.MenuItemPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			jsonError(c, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		item := toMenuItem(c.Param("id"), payload)
		if err := mh.catalog.Update(ctx, item); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusOK, item)
	}
}

func (mh *MenuHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		if err := mh.catalog.Remove(ctx, c.Param("id")); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusOK, gin.H{"success": true})
	}
}

// Seed imports the default catalog into an empty menu.
func (mh *MenuHandler) Seed() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := services.LoadMenu(mh.seedFile)
		if err != nil {
			mh.mylog.Action("seed_menu_invalid").Error("Failed to read default menu", err)
			jsonError(c, http.StatusInternalServerError, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := mh.catalog.SeedDefaults(ctx, items); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusCreated, gin.H{"success": true, "items": len(items)})
	}
}

func toMenuItem(id string, p dto.MenuItemPayload) models.MenuItem {
	return models.MenuItem{
		ID:       id,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		Image:    p.Image,
		IsVeg:    p.IsVeg,
	}
}
