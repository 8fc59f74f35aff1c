package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/entities"
	"github.com/mrlokans/clubhouse/internal/logging"
)

// ContextKeyUser holds the *entities.UserSummary of an authenticated request.
const ContextKeyUser = "auth_user"

// Authorizer resolves a session identifier to its user.
type Authorizer interface {
	Authorize(ctx context.Context, sessionID string) (*entities.UserSummary, error)
}

// Guard gates routes on a valid session. The identifier is read from the
// session cookie and resolved on every request; nothing about the session
// is cached between requests.
type Guard struct {
	authorizer Authorizer
	cookies    *CookieCodec
	logger     logrus.FieldLogger
}

// NewGuard creates a guard. A nil logger discards output.
func NewGuard(authorizer Authorizer, cookies *CookieCodec, logger logrus.FieldLogger) *Guard {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Guard{authorizer: authorizer, cookies: cookies, logger: logger}
}

// LoadSession resolves the session cookie, when present, and stores the user
// in the context. Requests without a valid session pass through anonymously.
func (g *Guard) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := g.cookies.Read(c.Request)
		if !ok {
			c.Next()
			return
		}

		user, err := g.authorizer.Authorize(c.Request.Context(), sessionID)
		switch {
		case err == nil:
			c.Set(ContextKeyUser, user)
		case errors.Is(err, ErrUnauthenticated):
			g.cookies.Clear(c.Writer)
		default:
			// Anonymous pages still render; RequireSession reports the failure.
			logging.LogError(g.logger, "failed to load session", err, nil)
		}
		c.Next()
	}
}

// RequireSession aborts with a redirect to "/" unless the request carries a
// valid session. Store failures abort with 500.
func (g *Guard) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}

		sessionID, _ := g.cookies.Read(c.Request)
		user, err := g.authorizer.Authorize(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				c.Redirect(http.StatusFound, "/")
				c.Abort()
				return
			}
			_ = c.Error(err)
			c.Status(http.StatusInternalServerError)
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by LoadSession or RequireSession.
func CurrentUser(c *gin.Context) (*entities.UserSummary, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*entities.UserSummary)
	return user, ok && user != nil
}
