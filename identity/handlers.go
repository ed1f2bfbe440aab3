package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"estante/common"
	"estante/models"
)

const currentUserKey = "current_user"

// UserPublic is what other users get to see of an account.
type UserPublic struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the account owner's own view, including the email.
type UserProfile struct {
	UserPublic
	Email string `json:"email"`
}

func PublicView(u *models.User) UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name, Bio: u.Bio, CreatedAt: u.CreatedAt}
}

func ProfileView(u *models.User) UserProfile {
	return UserProfile{UserPublic: PublicView(u), Email: u.Email}
}

// RegisterRoutes mounts the account endpoints. authLimit guards the
// credential endpoints against brute forcing.
func (m *IdentityModule) RegisterRoutes(router gin.IRouter, authLimit gin.HandlerFunc) {
	router.POST("/signup", authLimit, m.signup)
	router.POST("/login", authLimit, m.login)
	router.GET("/me", m.RequireAuth, m.me)
	router.GET("/users/:id", m.getUser)

	users := router.Group("/users/me")
	users.Use(m.RequireAuth)
	{
		users.PATCH("", m.updateMe)
		users.DELETE("", m.deleteMe)
	}
}

// RequireAuth resolves the bearer token and stores the caller in the context.
func (m *IdentityModule) RequireAuth(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		common.RespondError(c, m.log, common.ErrInvalidToken)
		return
	}

	user, err := m.ResolveToken(c.Request.Context(), token)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		common.RespondError(c, m.log, err)
		return
	}

	SetCurrentUser(c, user)
	c.Next()
}

func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the caller resolved by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (m *IdentityModule) signup(c *gin.Context) {
	var request struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		common.RespondError(c, m.log, common.Invalid("invalid request body"))
		return
	}

	user, err := m.Register(c.Request.Context(), request.Name, request.Email, request.Password)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusCreated, ProfileView(user))
}

// login accepts the OAuth2 password form (username carries the email) or a
// JSON body with email and password.
func (m *IdentityModule) login(c *gin.Context) {
	var email, password string

	if c.ContentType() == "application/json" {
		var request struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			common.RespondError(c, m.log, common.Invalid("invalid request body"))
			return
		}
		email, password = request.Email, request.Password
	} else {
		email = c.PostForm("username")
		if email == "" {
			email = c.PostForm("email")
		}
		password = c.PostForm("password")
	}

	token, err := m.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

func (m *IdentityModule) me(c *gin.Context) {
	c.JSON(http.StatusOK, ProfileView(CurrentUser(c)))
}

func (m *IdentityModule) getUser(c *gin.Context) {
	id, err := common.UintParam(c, "id")
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	user, err := m.GetUser(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, PublicView(user))
}

func (m *IdentityModule) updateMe(c *gin.Context) {
	var request ProfileUpdate
	if err := c.ShouldBindJSON(&request); err != nil {
		common.RespondError(c, m.log, common.Invalid("invalid request body"))
		return
	}

	user, err := m.UpdateProfile(c.Request.Context(), CurrentUser(c), request)
	if err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.JSON(http.StatusOK, ProfileView(user))
}

func (m *IdentityModule) deleteMe(c *gin.Context) {
	if err := m.DeleteUser(c.Request.Context(), CurrentUser(c)); err != nil {
		common.RespondError(c, m.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
