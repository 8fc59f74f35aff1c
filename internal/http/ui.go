package http

import (
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/clubhouse/internal/auth"
	"github.com/mrlokans/clubhouse/web"
)

// UIController renders the public and members-only pages.
type UIController struct {
	pick func(n int) int
}

// NewUIController creates the page controller. pick chooses the members
// picture and defaults to a uniform random choice.
func NewUIController(pick func(n int) int) *UIController {
	if pick == nil {
		pick = rand.IntN
	}
	return &UIController{pick: pick}
}

// HomePage shows the landing page, greeting the user when a session is valid.
func (controller *UIController) HomePage(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", pageData(c, ""))
}

// MembersPage shows one of the member pictures. Routed behind RequireSession.
func (controller *UIController) MembersPage(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}

	data := pageData(c, "Members")
	data["User"] = user
	data["Image"] = web.MemberImages[controller.pick(len(web.MemberImages))]
	c.HTML(http.StatusOK, "members.html", data)
}

// NotFound handles unmatched routes.
func (controller *UIController) NotFound(c *gin.Context) {
	if wantsJSON(c) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", RequestID: GetRequestID(c)})
		return
	}
	data := pageData(c, "Not found")
	data["Path"] = c.Request.URL.Path
	c.HTML(http.StatusNotFound, "404.html", data)
}
