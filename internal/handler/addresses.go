package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/persons-api/internal/model"
	"github.com/iliyamo/persons-api/internal/repository"
)

// AddressHandler serves /api/addresses.  Addresses edited here are not
// tied to a person; deleting one unlinks any person slot that pointed at it.
type AddressHandler struct {
	Addresses repository.AddressStore
}

func NewAddressHandler(a repository.AddressStore) *AddressHandler {
	return &AddressHandler{Addresses: a}
}

func (h *AddressHandler) List(c echo.Context) error {
	limit, offset, err := parsePage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail(err.Error()))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Addresses.List(ctx, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AddressHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Addresses.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AddressHandler) Create(c echo.Context) error {
	var in model.AddressPatch
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	if err := in.Validate(true); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a := in.NewAddress()
	if err := h.Addresses.Create(ctx, a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Update serves PUT and PATCH.  PUT requires address_line.
func (h *AddressHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	var in model.AddressPatch
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	if err := in.Validate(c.Request().Method == http.MethodPut); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Addresses.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	in.Apply(a)
	if err := h.Addresses.Update(ctx, a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AddressHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Addresses.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
