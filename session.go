package wpfront

import (
	"math/rand/v2"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName  = "wpfront_visitor"
	keyVisitorID = "vid"
	keyTagSeed   = "tag_seed"
)

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore(a.sessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 24 * 30,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// ensureVisitorSession returns the visitor id, creating the session with a
// fresh id and tag sample seed on first contact.
func ensureVisitorSession(c echo.Context) (string, error) {
	sess, err := session.Get(sessionName, c)
	if err != nil && sess == nil {
		return "", err
	}
	id, _ := sess.Values[keyVisitorID].(string)
	_, hasSeed := sess.Values[keyTagSeed].(int64)
	if id != "" && hasSeed {
		return id, nil
	}
	if id == "" {
		id = uuid.NewString()
		sess.Values[keyVisitorID] = id
	}
	if !hasSeed {
		sess.Values[keyTagSeed] = rand.Int64()
	}
	return id, sess.Save(c.Request(), c.Response())
}

// sessionVisitorID returns the visitor id of the current session, or "" when
// there is none.
func sessionVisitorID(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[keyVisitorID].(string)
	return id
}

// tagSeed is the per-visitor seed for the tag cloud sample, so a session
// keeps seeing the same tags across htmx re-renders.
func tagSeed(c echo.Context) int64 {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return 0
	}
	seed, _ := sess.Values[keyTagSeed].(int64)
	return seed
}
