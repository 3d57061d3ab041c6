package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/pkg/collection"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

type UserController struct {
	users *repositories.UserRepository
}

func NewUserController(users *repositories.UserRepository) *UserController {
	return &UserController{users: users}
}

// Index lists users, optionally filtered by role.
func (uc *UserController) Index(c *ctx.Context) {
	role := c.Query("role")
	if role != "" && !models.ValidRole(role) {
		c.Error(http.StatusBadRequest, "Invalid role")
		return
	}

	users, err := uc.users.All(c.Context(), role)
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	views := collection.Map(users, models.User.View)
	c.SuccessWithMeta(views, count{Count: len(views)})
}

func (uc *UserController) Show(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		c.Error(http.StatusBadRequest, "Invalid user id")
		return
	}

	u, err := uc.users.FindByID(c.Context(), id)
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	if u == nil {
		c.NotFound("User not found")
		return
	}
	c.Success(u.View())
}
