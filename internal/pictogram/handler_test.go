package pictogram

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

func newTestRouter(t *testing.T, gen Generator) *mux.Router {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(newTestService(t, gen)).Register(r)
	return r
}

func serve(r http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHandlerCRUD(t *testing.T) {
	r := newTestRouter(t, nil)

	body, _ := json.Marshal(createRequest{Name: "Sun", Markup: sunMarkup})
	rec := serve(r, "POST", "/api/pictograms", string(body))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[Pictogram](t, rec)

	rec = serve(r, "GET", "/api/pictograms/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sun", decodeBody[Pictogram](t, rec).Name)

	body, _ = json.Marshal(saveRequest{Markup: strings.Replace(sunMarkup, `r="20"`, `r="5"`, 1)})
	rec = serve(r, "PUT", "/api/pictograms/"+created.ID, string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decodeBody[Pictogram](t, rec)
	assert.Equal(t, 2, saved.Version)
	assert.Contains(t, saved.Markup, `r="5"`)

	rec = serve(r, "GET", "/api/pictograms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]Pictogram](t, rec), 1)

	rec = serve(r, "DELETE", "/api/pictograms/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(r, "GET", "/api/pictograms/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerBadRequests(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := serve(r, "POST", "/api/pictograms", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, "POST", "/api/pictograms", `{"name":"x","markup":"<svg>"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[map[string]string](t, rec)["error"], "invalid pictogram markup")

	rec = serve(r, "POST", "/api/pictograms/generate", `{"prompt":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, "POST", "/api/pictograms/generate", `{"prompt":"a sun"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerImportMultipart(t *testing.T) {
	r := newTestRouter(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sunny-day.svg")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sunMarkup))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/pictograms/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeBody[Result](t, rec)
	assert.Equal(t, "sunny-day", res.Name)
	assert.Empty(t, res.Notice)
}

func TestHandlerImportRawBody(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := serve(r, "POST", "/api/pictograms/import?name=oops", "<svg><circle></svg>")
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeBody[Result](t, rec)
	assert.Equal(t, "oops", res.Name)
	assert.NotEmpty(t, res.Notice)
}

func TestHandlerGenerate(t *testing.T) {
	sun, err := document.FromMarkup(sunMarkup)
	require.NoError(t, err)
	r := newTestRouter(t, &fakeGenerator{root: sun})

	rec := serve(r, "POST", "/api/pictograms/generate", `{"name":"Sun","prompt":"a sun"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeBody[Result](t, rec)
	assert.Equal(t, "Sun", res.Name)
	assert.Contains(t, res.Markup, `id="sun"`)
}
