package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/logging"
)

// FormErrorExpired is the ?error= code used when a form is sent back after a
// CSRF failure.
const FormErrorExpired = "expired"

// formErrors maps ?error= codes to the messages shown on the form. Unknown
// codes show nothing.
var formErrors = map[string]string{
	FormErrorExpired: "Form expired. Please try again.",
}

// AuthController handles the signup, login and logout endpoints.
type AuthController struct {
	service *Service
	cookies *CookieCodec
	logger  logrus.FieldLogger
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, cookies *CookieCodec, logger logrus.FieldLogger) *AuthController {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuthController{
		service: service,
		cookies: cookies,
		logger:  logger,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/signup", ac.SignupPage)
	router.POST("/signup", ac.Signup)
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.GET("/logout", ac.Logout)
}

// SignupPage renders the signup form.
func (ac *AuthController) SignupPage(c *gin.Context) {
	ac.renderForm(c, http.StatusOK, "signup.html", "Sign up", formErrors[c.Query("error")], gin.H{"Name": "", "Email": ""})
}

// Signup handles the signup form submission.
func (ac *AuthController) Signup(c *gin.Context) {
	var form SignupInput
	if err := c.ShouldBind(&form); err != nil {
		ac.logger.WithError(err).Debug("signup form binding failed")
	}
	form.Client = ClientInfoFrom(c)

	sess, err := ac.service.Signup(c.Request.Context(), form)
	if err != nil {
		ac.renderFailure(c, "signup.html", "Sign up", err, gin.H{
			"Name":  form.Name,
			"Email": form.Email,
		})
		return
	}

	ac.startSession(c, sess.ID)
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	ac.renderForm(c, http.StatusOK, "login.html", "Log in", formErrors[c.Query("error")], gin.H{"Email": ""})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	var form LoginInput
	if err := c.ShouldBind(&form); err != nil {
		ac.logger.WithError(err).Debug("login form binding failed")
	}
	form.Client = ClientInfoFrom(c)

	sess, err := ac.service.Login(c.Request.Context(), form)
	if err != nil {
		var rlerr *RateLimitError
		if errors.As(err, &rlerr) {
			c.Header("Retry-After", retryAfterSeconds(rlerr.RetryAfter))
		}
		ac.renderFailure(c, "login.html", "Log in", err, gin.H{"Email": form.Email})
		return
	}

	ac.startSession(c, sess.ID)
}

// Logout destroys the current session, if any, and returns to the home page.
func (ac *AuthController) Logout(c *gin.Context) {
	if sessionID, ok := ac.cookies.Read(c.Request); ok {
		ac.service.Logout(c.Request.Context(), sessionID, ClientInfoFrom(c))
	}
	ac.cookies.Clear(c.Writer)
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) startSession(c *gin.Context, sessionID string) {
	if err := ac.cookies.Set(c.Writer, sessionID); err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		c.Abort()
		return
	}
	c.Redirect(http.StatusFound, "/members")
}

// renderFailure shows user-facing errors on the form and hands internal
// errors to the error page.
func (ac *AuthController) renderFailure(c *gin.Context, tmpl, title string, err error, data gin.H) {
	msg, ok := UserMessage(err)
	if !ok {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		c.Abort()
		return
	}

	status := http.StatusOK
	var rlerr *RateLimitError
	if errors.As(err, &rlerr) {
		status = http.StatusTooManyRequests
	}
	ac.renderForm(c, status, tmpl, title, msg, data)
}

func (ac *AuthController) renderForm(c *gin.Context, status int, tmpl, title, errMsg string, data gin.H) {
	data["Title"] = title
	data["Error"] = errMsg
	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFField"] = CSRFFieldName
	if user, ok := CurrentUser(c); ok {
		data["User"] = user
	}
	c.HTML(status, tmpl, data)
}

// retryAfterSeconds formats d as Retry-After delta-seconds, rounded up.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ClientInfoFrom extracts the caller's address and user agent.
func ClientInfoFrom(c *gin.Context) ClientInfo {
	return ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
