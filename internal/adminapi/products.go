package adminapi

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/smartstock/internal/domain"
	"github.com/talkincode/smartstock/internal/store"
	"github.com/talkincode/smartstock/internal/syncer"
	"github.com/talkincode/smartstock/internal/viewmodel"
	"go.uber.org/zap"
)

type productPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category"`
}

// Handler exposes the product store and sync engine over REST. Writes are
// local-first: a push failure never fails the request, the record simply
// stays unsynced until the next cycle.
type Handler struct {
	store  *store.ProductStore
	engine *syncer.Engine
	vm     *viewmodel.ProductViewModel
}

func NewHandler(s *store.ProductStore, e *syncer.Engine, vm *viewmodel.ProductViewModel) *Handler {
	return &Handler{store: s, engine: e, vm: vm}
}

func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/stream", h.streamProducts)
	api.GET("/products/:id", h.getProduct)
	api.POST("/products", h.createProduct)
	api.PUT("/products/:id", h.updateProduct)
	api.DELETE("/products/:id", h.deleteProduct)
	api.GET("/stats", h.stats)
	api.GET("/state", h.state)
	api.POST("/state/reset", h.resetState)
	api.POST("/sync", h.triggerSync)
}

// listProducts returns all products, optionally filtered by ?q= (substring
// on the name) or ?category=.
func (h *Handler) listProducts(c echo.Context) error {
	ctx := c.Request().Context()
	q := strings.TrimSpace(c.QueryParam("q"))
	category := strings.TrimSpace(c.QueryParam("category"))

	var rows []domain.Product
	var err error
	if category != "" {
		rows, err = h.store.ByCategory(ctx, category)
	} else {
		rows, err = h.store.SearchByName(ctx, q)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return ok(c, rows)
}

// streamProducts pushes the full product list to the client as a
// server-sent event every time the local table changes.
func (h *Handler) streamProducts(c echo.Context) error {
	ctx := c.Request().Context()
	sub := h.store.Watch(ctx)
	defer sub.Cancel()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	enc := jsoniter.ConfigCompatibleWithStandardLibrary
	for {
		select {
		case <-ctx.Done():
			return nil
		case rows, okc := <-sub.C:
			if !okc {
				return nil
			}
			data, err := enc.Marshal(rows)
			if err != nil {
				zap.L().Warn("product stream encode failed", zap.Error(err))
				continue
			}
			if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func (h *Handler) getProduct(c echo.Context) error {
	p, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, p)
}

func (h *Handler) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	p := domain.Product{
		ID:          strings.TrimSpace(payload.ID),
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Price:       payload.Price,
		Quantity:    payload.Quantity,
		Category:    strings.TrimSpace(payload.Category),
	}
	if !p.Valid() {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			"Name and category are required, price must be > 0 and quantity >= 0", nil)
	}

	ctx := c.Request().Context()
	if _, err := h.store.Insert(ctx, &p); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	if err := h.engine.PushOne(ctx, &p); err != nil {
		zap.L().Warn("created product not yet pushed", zap.String("id", p.ID), zap.Error(err))
	}
	return ok(c, p)
}

func (h *Handler) updateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := h.store.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	p := *current
	p.Name = strings.TrimSpace(payload.Name)
	p.Description = strings.TrimSpace(payload.Description)
	p.Price = payload.Price
	p.Quantity = payload.Quantity
	p.Category = strings.TrimSpace(payload.Category)
	if !p.Valid() {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			"Name and category are required, price must be > 0 and quantity >= 0", nil)
	}

	if err := h.store.Update(ctx, &p); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	if err := h.engine.PushOne(ctx, &p); err != nil {
		zap.L().Warn("updated product not yet pushed", zap.String("id", p.ID), zap.Error(err))
	}
	return ok(c, p)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	p := domain.Product{ID: id}
	if err := h.store.Delete(ctx, &p); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	// local deletion is authoritative, the remote catches up on failure
	_ = h.engine.DeleteRemote(ctx, id)
	return ok(c, map[string]interface{}{"id": id})
}

func (h *Handler) stats(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"count":       h.vm.ProductCount().Get(),
		"total_value": h.vm.TotalStockValue().Get(),
	})
}

func (h *Handler) state(c echo.Context) error {
	return ok(c, h.vm.State().Get())
}

func (h *Handler) resetState(c echo.Context) error {
	h.vm.ResetState()
	return ok(c, h.vm.State().Get())
}

func (h *Handler) triggerSync(c echo.Context) error {
	h.vm.TriggerSync()
	return c.JSON(http.StatusAccepted, map[string]interface{}{"code": 0, "data": "sync started"})
}
