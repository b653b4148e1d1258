package view

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"billsplit/internal/flash"
)

var testFS = fstest.MapFS{
	"templates/base.html": {Data: []byte(`<html>{{range .Flashes}}[{{.Category}}:{{.Text}}]{{end}}{{block "content" .}}{{end}}</html>`)},
	"templates/hello.html": {Data: []byte(`{{define "content"}}hello {{.Data}}{{if .User}} {{.User.Username}}{{end}}{{end}}`)},
	"templates/broken.html": {Data: []byte(`{{define "content"}}{{.Data{{end}}`)},
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	return c, w
}

func TestRenderWrapsViewInBase(t *testing.T) {
	flashes := flash.NewStore([]byte("k"), false)
	r := New(testFS, flashes)

	c, w := newContext()
	flashes.Add(c, flash.Success, "saved")
	r.Render(c, http.StatusOK, "hello.html", "world")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>[success:saved]hello world</html>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestRenderShowsFlashesEvenForHTMXRequests(t *testing.T) {
	flashes := flash.NewStore([]byte("k"), false)
	r := New(testFS, flashes)

	c, w := newContext()
	c.Request.Header.Set("HX-Request", "true")
	flashes.Add(c, flash.Success, "saved")
	r.Render(c, http.StatusOK, "hello.html", "x")

	assert.Equal(t, "<html>[success:saved]hello x</html>", w.Body.String())
}

func TestRenderTemplateError(t *testing.T) {
	r := New(testFS, flash.NewStore([]byte("k"), false))

	c, w := newContext()
	r.Render(c, http.StatusOK, "broken.html", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Template error", w.Body.String())
}
