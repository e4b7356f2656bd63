package wpfront

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// RenderPartial renders a fragment for htmx and records u as the new
// browser URL so history and the listing state stay in sync.
func RenderPartial(c echo.Context, u string, cmp templ.Component) error {
	c.Response().Header().Set("HX-Push-Url", u)
	c.Response().Header().Add(echo.HeaderVary, "HX-Request")
	return Render(c, cmp)
}
