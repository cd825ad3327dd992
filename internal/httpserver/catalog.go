package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storekit/shopcore/internal/engine"
	"github.com/storekit/shopcore/internal/events"
	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/search"
	"github.com/storekit/shopcore/internal/util"
)

type CatalogHandler struct {
	Engine   *engine.Engine
	Producer *events.Producer
	Indexer  *search.Indexer
}

func (h *CatalogHandler) index(c echo.Context, p *models.Product) {
	if h.Indexer == nil {
		return
	}
	if err := h.Indexer.IndexProduct(c.Request().Context(), p); err != nil {
		c.Logger().Errorf("index error: %v", err)
	}
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	product, err := h.Engine.Repo().Product(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) GetProducts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Engine.Repo().Products(c.Request().Context(), offset, limit)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"total":    total,
			"size":     limit,
			"has_next": int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	created, err := h.Engine.CreateProduct(c.Request().Context(), &p)
	if err != nil {
		return engineError(c, err)
	}

	h.index(c, created)
	publish(c, h.Producer, fmt.Sprint(created.ID), map[string]any{
		"type":       "product_created",
		"product_id": created.ID,
		"sku":        created.SKU,
	})
	return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	p.ID = id

	updated, err := h.Engine.UpdateProduct(c.Request().Context(), &p)
	if err != nil {
		return engineError(c, err)
	}

	h.index(c, updated)
	publish(c, h.Producer, fmt.Sprint(id), map[string]any{
		"type":       "product_updated",
		"product_id": id,
	})
	return c.JSON(http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.DeleteProduct(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}

	if h.Indexer != nil {
		if err := h.Indexer.RemoveProduct(c.Request().Context(), id); err != nil {
			c.Logger().Errorf("index remove error: %v", err)
		}
	}
	publish(c, h.Producer, fmt.Sprint(id), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var cat models.Category
	if err := c.Bind(&cat); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	created, err := h.Engine.CreateCategory(c.Request().Context(), &cat)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var cat models.Category
	if err := c.Bind(&cat); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	cat.ID = id
	updated, err := h.Engine.UpdateCategory(c.Request().Context(), &cat)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.DeleteCategory(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) AddProductImage(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var img models.ProductImage
	if err := c.Bind(&img); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	img.ProductID = id
	created, err := h.Engine.AddProductImage(c.Request().Context(), &img)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) SetPrimaryImage(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	imageID, err := strconv.Atoi(c.Param("image_id"))
	if err != nil || imageID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image id")
	}
	if err := h.Engine.SetPrimaryImage(c.Request().Context(), id, uint(imageID)); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) DeleteProductImage(c echo.Context) error {
	imageID, err := strconv.Atoi(c.Param("image_id"))
	if err != nil || imageID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image id")
	}
	if err := h.Engine.DeleteProductImage(c.Request().Context(), uint(imageID)); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) GetProductReviews(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	reviews, err := h.Engine.Repo().ReviewsForProduct(c.Request().Context(), id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

type SearchHandler struct {
	Indexer *search.Indexer
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	total, products, err := h.Indexer.Search(c.Request().Context(), q, from, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
