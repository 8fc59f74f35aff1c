package http

import (
	"html/template"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/clubhouse/internal/auth"
	"github.com/mrlokans/clubhouse/web"
)

// ErrorResponse is the JSON error body for clients that ask for JSON.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// LoadTemplates parses the page templates from dir, or the embedded set when
// dir is empty.
func LoadTemplates(dir string) (*template.Template, error) {
	if dir == "" {
		return template.ParseFS(web.Templates(), "*.html")
	}
	return template.ParseGlob(strings.TrimRight(dir, "/") + "/*.html")
}

// pageData returns the values every page template expects.
func pageData(c *gin.Context, title string) gin.H {
	data := gin.H{
		"Title":     title,
		"RequestID": GetRequestID(c),
	}
	if user, ok := auth.CurrentUser(c); ok {
		data["User"] = user
	}
	return data
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
