package controllers

import (
	"time"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/session"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=200"`
}

type currentUser struct {
	User    models.UserView `json:"user"`
	Session session.Session `json:"session"`
}

type AuthController struct {
	service      *services.AuthService
	secureCookie bool
	now          func() time.Time
}

// NewAuthController marks the session cookie Secure when secureCookie is
// set, which production does.
func NewAuthController(service *services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{service: service, secureCookie: secureCookie, now: time.Now}
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in LoginRequest
	if !c.BindJSON(&in) {
		return
	}

	res, err := ac.service.Login(c.Context(), services.LoginInput{
		Email:     in.Email,
		Password:  in.Password,
		IP:        c.ClientIP(),
		UserAgent: c.UserAgent(),
	})
	if err != nil {
		fail(c, err, "User not found")
		return
	}

	maxAge := int(res.ExpiresAt.Sub(ac.now()).Seconds())
	c.SetCookie(session.CookieName, res.Token, max(maxAge, 1), ac.secureCookie)
	c.Success(res)
}

// Current returns the signed-in user and session. The token comes from the
// Authorization header or the session cookie.
func (ac *AuthController) Current(c *ctx.Context) {
	token, ok := ac.token(c)
	if !ok {
		return
	}

	sess, u, err := ac.service.Current(c.Context(), token)
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	c.Success(currentUser{User: u.View(), Session: sess})
}

func (ac *AuthController) Logout(c *ctx.Context) {
	token, ok := ac.token(c)
	if !ok {
		return
	}

	if err := ac.service.Logout(c.Context(), token); err != nil {
		fail(c, err, "Session not found")
		return
	}
	c.SetCookie(session.CookieName, "", -1, ac.secureCookie)
	c.Success(map[string]bool{"loggedOut": true})
}

func (ac *AuthController) token(c *ctx.Context) (string, bool) {
	if t := c.BearerToken(); t != "" {
		return t, true
	}
	if t, err := c.Cookie(session.CookieName); err == nil && t != "" {
		return t, true
	}
	c.Unauthorized("Missing token")
	return "", false
}
