package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/persons-api/internal/middleware"
	"github.com/iliyamo/persons-api/internal/model"
)

// PersonService is implemented by service.PersonService.
type PersonService interface {
	Get(ctx context.Context, id uint64) (*model.Person, error)
	List(ctx context.Context, limit, offset int) ([]model.Person, error)
	Create(ctx context.Context, actorID uint64, in model.PersonPayload) (*model.Person, error)
	Update(ctx context.Context, actorID, id uint64, in model.PersonPayload, partial bool) (*model.Person, error)
	Delete(ctx context.Context, actorID, id uint64) error
}

// PersonHandler serves /api/persons.
type PersonHandler struct {
	Svc PersonService
}

func NewPersonHandler(svc PersonService) *PersonHandler { return &PersonHandler{Svc: svc} }

func (h *PersonHandler) List(c echo.Context) error {
	limit, offset, err := parsePage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail(err.Error()))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	persons, err := h.Svc.List(ctx, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, persons)
}

func (h *PersonHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PersonHandler) Create(c echo.Context) error {
	var in model.PersonPayload
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	actor, _ := middleware.UserID(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Svc.Create(ctx, actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Update serves PUT (full) and PATCH (partial).
func (h *PersonHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	var in model.PersonPayload
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	actor, _ := middleware.UserID(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	partial := c.Request().Method == http.MethodPatch
	p, err := h.Svc.Update(ctx, actor, id, in, partial)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PersonHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	actor, _ := middleware.UserID(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Svc.Delete(ctx, actor, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
