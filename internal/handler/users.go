package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/persons-api/internal/model"
	"github.com/iliyamo/persons-api/internal/utils"
)

// UserStore is the user repository contract used by the CRUD endpoints.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, limit, offset int) ([]model.User, error)
}

// UserHandler serves /api/users.  The password is write-only and stored
// as a bcrypt hash; users created without one get an unusable password.
type UserHandler struct {
	Users  UserStore
	Hasher *utils.PasswordHasher
}

func NewUserHandler(u UserStore, h *utils.PasswordHasher) *UserHandler {
	return &UserHandler{Users: u, Hasher: h}
}

func (h *UserHandler) List(c echo.Context) error {
	limit, offset, err := parsePage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail(err.Error()))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, err := h.Users.List(ctx, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Create(c echo.Context) error {
	var in model.UserPayload
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	if err := in.Validate(false); err != nil {
		return respondError(c, err)
	}

	u := &model.User{IsActive: true}
	in.Apply(u)
	if err := h.setPassword(u, in.Password); err != nil {
		return respondError(c, err)
	}
	if u.PasswordHash == "" {
		u.PasswordHash = utils.UnusablePassword()
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Users.Create(ctx, u); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Update serves PUT and PATCH.  An omitted password keeps the current hash.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	var in model.UserPayload
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	if err := in.Validate(c.Request().Method == http.MethodPatch); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	in.Apply(u)
	if err := h.setPassword(u, in.Password); err != nil {
		return respondError(c, err)
	}
	if err := h.Users.Update(ctx, u); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, detail(msgNotFound))
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) setPassword(u *model.User, pw model.Optional[string]) error {
	if !pw.Present() {
		return nil
	}
	hash, err := h.Hasher.Hash(pw.Value)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}
