package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/access"
	"github.com/folio/folio/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	gatePrefix = "/studio-7f3a9c"
	gateSecret = "open-sesame"
	gateUA     = "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/124.0"
)

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"resource not found"}` + "\n"))
}

func newGatedRouter(rec metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.NotFound(notFoundHandler)
	r.Use(Gate(http.HandlerFunc(notFoundHandler), discardLogger(), rec,
		access.NewAdminPolicy(gateSecret, gatePrefix, discardLogger()),
		access.NewDashboardPolicy("dash"),
	))

	ok := func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("protected")) }
	r.Get(gatePrefix+"/", ok)
	r.Get(gatePrefix+"/api/projects", ok)
	r.Get("/dashboard/{secret}/stats", ok)
	r.Get("/", ok)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGate_DeniedLooksLikeMissingRoute(t *testing.T) {
	t.Parallel()

	router := newGatedRouter(nil)

	denied := httptest.NewRequest(http.MethodGet, gatePrefix+"/api/projects", nil)
	denied.Header.Set("User-Agent", gateUA)
	missing := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	missing.Header.Set("User-Agent", gateUA)

	a := serve(router, denied)
	b := serve(router, missing)

	assert.Equal(t, http.StatusNotFound, a.Code)
	assert.Equal(t, b.Code, a.Code)
	assert.Equal(t, b.Body.String(), a.Body.String())
	assert.Equal(t, b.Header(), a.Header())
}

func TestGate_SecretLinkThenCookie(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	router := newGatedRouter(rec)

	req := httptest.NewRequest(http.MethodGet, gatePrefix+"/?secret="+gateSecret, nil)
	req.Header.Set("User-Agent", gateUA)
	res := serve(router, req)

	require.Equal(t, http.StatusTemporaryRedirect, res.Code)
	assert.Equal(t, gatePrefix+"/", res.Header().Get("Location"))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, access.SessionCookieName, cookies[0].Name)

	follow := httptest.NewRequest(http.MethodGet, gatePrefix+"/", nil)
	follow.Header.Set("User-Agent", gateUA)
	follow.AddCookie(&http.Cookie{Name: cookies[0].Name, Value: cookies[0].Value})
	res = serve(router, follow)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "protected", res.Body.String())

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.AccessDecisions["admin/redirect"])
	assert.Equal(t, uint64(1), snap.AccessDecisions["admin/allow"])
}

func TestGate_StaleCookieCleared(t *testing.T) {
	t.Parallel()

	router := newGatedRouter(nil)

	req := httptest.NewRequest(http.MethodGet, gatePrefix+"/", nil)
	req.Header.Set("User-Agent", gateUA)
	req.AddCookie(&http.Cookie{Name: access.SessionCookieName, Value: "garbage"})
	res := serve(router, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestGate_Dashboard(t *testing.T) {
	t.Parallel()

	router := newGatedRouter(nil)

	res := serve(router, httptest.NewRequest(http.MethodGet, "/dashboard/dash/stats", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	res = serve(router, httptest.NewRequest(http.MethodGet, "/dashboard/wrong/stats", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
}

func TestGate_UngatedPathsPassThrough(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	router := newGatedRouter(rec)

	res := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, rec.Snapshot().AccessDecisions)
}
