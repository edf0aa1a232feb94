package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/library"
	"github.com/inkwellapp/inkwell-server/internal/progress"
	"github.com/inkwellapp/inkwell-server/internal/search"
	"github.com/inkwellapp/inkwell-server/internal/service"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := library.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	cache, err := library.NewCache(store, 4, logger)
	require.NoError(t, err)
	prog, err := progress.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { prog.Close() })
	index, err := search.NewIndex(logger)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	svc := service.New(store, cache, library.NewIngestor(store, logger), prog, index, logger)
	require.NoError(t, svc.Bootstrap(context.Background()))

	return NewServer(svc, 0, nil, logger)
}

func epubBytes(t *testing.T, title string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles></container>`,
		"content.opf": `<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>` + title + `</dc:title></metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/><itemref idref="ch2"/></spine>
</package>`,
		"ch1.xhtml": "<html><body><p>The whale surfaced at dawn.</p></body></html>",
		"ch2.xhtml": "<html><body><p>The harpoon missed.</p></body></html>",
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func uploadDocument(t *testing.T, s *Server, filename, title string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, filename, epubBytes(t, title)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.ID)
	return env.Data.ID
}

func TestHealthCheck(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestUploadAndGetDocument(t *testing.T) {
	s := testServer(t)
	docID := uploadDocument(t, s, "moby.epub", "Moby-Dick")
	assert.Equal(t, "moby", docID)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listEnv struct {
		Data []domain.LibraryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listEnv))
	require.Len(t, listEnv.Data, 1)
	assert.Equal(t, "Moby-Dick", listEnv.Data[0].Title)
	assert.Equal(t, 2, listEnv.Data[0].Chapters)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var docEnv struct {
		Data domain.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docEnv))
	assert.Equal(t, "Moby-Dick", docEnv.Data.Metadata.Title)
	assert.Len(t, docEnv.Data.Spine, 2)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChapterPagination(t *testing.T) {
	s := testServer(t)
	docID := uploadDocument(t, s, "moby.epub", "Moby-Dick")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID+"/chapters/0", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data chapterPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 2, env.Data.Total)
	assert.Nil(t, env.Data.Prev)
	require.NotNil(t, env.Data.Next)
	assert.Equal(t, 1, *env.Data.Next)
	assert.Contains(t, env.Data.Chapter.Text, "whale")

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID+"/chapters/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	env.Data = chapterPayload{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Data.Prev)
	assert.Equal(t, 0, *env.Data.Prev)
	assert.Nil(t, env.Data.Next)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID+"/chapters/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID+"/chapters/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImageMissing(t *testing.T) {
	s := testServer(t)
	docID := uploadDocument(t, s, "moby.epub", "Moby-Dick")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID+"/images/ghost.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("plain text")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRateLimited(t *testing.T) {
	s := testServer(t)

	last := 0
	for i := 0; i < uploadBurst+1; i++ {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("x")))
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestDeleteDocument(t *testing.T) {
	s := testServer(t)
	docID := uploadDocument(t, s, "moby.epub", "Moby-Dick")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	s := testServer(t)
	docID := uploadDocument(t, s, "moby.epub", "Moby-Dick")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=harpoon", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data search.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data.Hits, 1)
	assert.Equal(t, docID, env.Data.Hits[0].DocumentID)
	assert.Equal(t, 1, env.Data.Hits[0].Chapter)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=whale&limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressEndpoints(t *testing.T) {
	s := testServer(t)
	docID := uploadDocument(t, s, "moby.epub", "Moby-Dick")
	base := "/api/v1/documents/" + docID + "/progress"

	// No progress saved yet.
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, base, strings.NewReader(`{"chapter":1,"offset":0.5}`))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data progress.Position `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data.Chapter)
	assert.NotEmpty(t, env.Data.UpdatedAt)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, base, strings.NewReader(`{"chapter":9}`))
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, base, strings.NewReader(`not json`))
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
