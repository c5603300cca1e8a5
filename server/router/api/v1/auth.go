package v1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keepsakehq/keepsake/server/auth"
	"github.com/keepsakehq/keepsake/store"
)

const userContextKey = "keepsake-user"

type requestLoginCodeRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginResponse struct {
	AccessToken string        `json:"accessToken"`
	User        *userResponse `json:"user"`
}

type userResponse struct {
	ID       int32  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// RequestLoginCode issues a one-time login code for the email address,
// creating the account on first contact. The code is stored hashed; in
// dev mode it is also logged for local testing.
func (s *APIV1Service) RequestLoginCode(c echo.Context) error {
	ctx := c.Request().Context()

	request := &requestLoginCodeRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	email := strings.ToLower(strings.TrimSpace(request.Email))
	if email == "" || !strings.Contains(email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "a valid email is required")
	}

	user, err := s.Store.GetUser(ctx, &store.FindUser{Email: &email})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find user").SetInternal(err)
	}
	if user == nil {
		user, err = s.Store.CreateUser(ctx, &store.User{
			Email:    email,
			Nickname: email[:strings.Index(email, "@")],
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user").SetInternal(err)
		}
	}

	code, codeHash, err := auth.GenerateLoginCode()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate login code").SetInternal(err)
	}
	now := time.Now()
	if err := s.Store.UpsertLoginCode(ctx, &store.LoginCode{
		UserID:    user.ID,
		CodeHash:  codeHash,
		CreatedTs: now.Unix(),
		ExpiresTs: now.Add(auth.LoginCodeDuration).Unix(),
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store login code").SetInternal(err)
	}

	if s.Profile.IsDev() {
		slog.Info("login code issued", "email", email, "code", code)
	} else {
		// TODO: send the code by email once an SMTP profile setting exists.
		slog.Info("login code issued", "email", email)
	}
	return c.NoContent(http.StatusAccepted)
}

// Login exchanges a one-time code for a session token.
func (s *APIV1Service) Login(c echo.Context) error {
	ctx := c.Request().Context()

	request := &loginRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	email := strings.ToLower(strings.TrimSpace(request.Email))

	user, err := s.Store.GetUser(ctx, &store.FindUser{Email: &email})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find user").SetInternal(err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or code")
	}

	loginCode, err := s.Store.GetLoginCode(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find login code").SetInternal(err)
	}
	if loginCode == nil || time.Now().Unix() > loginCode.ExpiresTs || !auth.VerifyLoginCode(request.Code, loginCode.CodeHash) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or code")
	}
	if err := s.Store.DeleteLoginCode(ctx, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to consume login code").SetInternal(err)
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.Email, time.Now().Add(auth.AccessTokenDuration), []byte(s.Profile.Secret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to sign session token").SetInternal(err)
	}
	return c.JSON(http.StatusOK, &loginResponse{
		AccessToken: accessToken,
		User:        convertUser(user),
	})
}

// Me returns the signed-in user.
func (s *APIV1Service) Me(c echo.Context) error {
	user := c.Get(userContextKey).(*store.User)
	return c.JSON(http.StatusOK, convertUser(user))
}

// Logout tears down the user's feed session. The JWT itself simply
// expires; there is no server-side token registry.
func (s *APIV1Service) Logout(c echo.Context) error {
	user := c.Get(userContextKey).(*store.User)
	s.Feeds.Drop(user.ID)
	return c.NoContent(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token to a user and aborts with
// 401 otherwise.
func (s *APIV1Service) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := extractToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}
		userID, err := auth.VerifyAccessToken(token, []byte(s.Profile.Secret))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token").SetInternal(err)
		}
		user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &userID})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to find user").SetInternal(err)
		}
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie("keepsake_session"); err == nil {
		return cookie.Value
	}
	return ""
}

func convertUser(user *store.User) *userResponse {
	return &userResponse{
		ID:       user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
	}
}
