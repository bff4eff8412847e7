package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moosedocs/internal/anchor"
	"moosedocs/internal/document/model"
	"moosedocs/internal/document/service"
	"moosedocs/internal/document/store"
	"moosedocs/internal/identity"
	"moosedocs/internal/storage"
)

func newTestHandler(t *testing.T) (*DocumentHandler, *identity.Store, *store.Store) {
	ctx := context.Background()
	backend := storage.NewMemory()

	ids, err := identity.NewStore(ctx, backend)
	require.NoError(t, err)
	_, err = ids.Signup(ctx, "alice", "secret", "Alice", "Smith")
	require.NoError(t, err)

	docs, err := store.NewStore(ctx, backend, ids)
	require.NoError(t, err)

	svc := service.NewDocumentService(docs, nil)
	return NewDocumentHandler(svc), ids, docs
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateAndListDocuments(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h.CreateDocument, http.MethodPost, "/api/documents/create", model.CreateDocRequest{Title: "Notes"})
	require.Equal(t, http.StatusOK, rec.Code)

	var created model.DocumentMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Notes", created.Title)
	assert.NotEmpty(t, created.ID)
	assert.Contains(t, created.Content, "<h1>Notes</h1>")

	rec = doJSON(t, h.GetDocuments, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []model.DocumentMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, created.ID, docs[0].ID)
}

func TestUnknownDocumentMapsToNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h.GetDocument, http.MethodGet, "/api/documents/get?docId=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h.DeleteDocument, http.MethodDelete, "/api/documents/delete?docId=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h.SaveDocument, http.MethodPost, "/api/documents/save", model.SaveDocRequest{
		DocID:   "ghost",
		Content: "<p>hi</p>",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCommentRequiresSession(t *testing.T) {
	h, ids, docs := newTestHandler(t)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, "Notes")
	require.NoError(t, err)
	require.NoError(t, ids.Logout(ctx))

	rec := doJSON(t, h.AddComment, http.MethodPost, "/api/documents/comments/add", model.CommentRequest{
		DocID:   doc.ID,
		Content: "fix intro",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolvedCommentRejectsRepliesWithConflict(t *testing.T) {
	h, _, docs := newTestHandler(t)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, "Notes")
	require.NoError(t, err)
	comment, err := docs.AddComment(ctx, doc.ID, "fix intro", model.Position{}, nil)
	require.NoError(t, err)
	require.NoError(t, docs.ResolveComment(ctx, doc.ID, comment.ID, true))

	rec := doJSON(t, h.AddReply, http.MethodPost, "/api/documents/comments/replies/add", model.ReplyRequest{
		DocID:     doc.ID,
		CommentID: comment.ID,
		Content:   "done",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCommentMarkersEndpoint(t *testing.T) {
	h, _, docs := newTestHandler(t)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, "Notes")
	require.NoError(t, err)
	content := "<h1>Notes</h1><p>The intro needs work.</p>"
	require.NoError(t, docs.UpdateContent(ctx, doc.ID, content))

	pos, err := anchor.Capture(content, 17, 26) // "The intro"
	require.NoError(t, err)
	comment, err := docs.AddComment(ctx, doc.ID, "fix intro", pos, nil)
	require.NoError(t, err)

	rec := doJSON(t, h.GetCommentMarkers, http.MethodGet, "/api/documents/comments/markers?docId="+doc.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var markers []anchor.Marker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	require.Len(t, markers, 1)
	assert.Equal(t, comment.ID, markers[0].CommentID)
	assert.Equal(t, 17, markers[0].Start)
	assert.Equal(t, 26, markers[0].End)

	// Editing the anchored text away drops the marker instead of
	// mislocating it.
	require.NoError(t, docs.UpdateContent(ctx, doc.ID, "<h1>Notes</h1><p>Rewritten.</p>"))
	rec = doJSON(t, h.GetCommentMarkers, http.MethodGet, "/api/documents/comments/markers?docId="+doc.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	markers = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	assert.Empty(t, markers)
}

func TestShareValidation(t *testing.T) {
	h, _, docs := newTestHandler(t)
	ctx := context.Background()

	doc, err := docs.CreateDocument(ctx, "Notes")
	require.NoError(t, err)

	bob := identity.User{ID: "u-bob", Username: "bob"}
	rec := doJSON(t, h.ShareDocument, http.MethodPost, "/api/documents/share", model.ShareRequest{
		DocID: doc.ID,
		Users: []model.SharedUser{{User: bob, Permission: "owner"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.ShareDocument, http.MethodPost, "/api/documents/share", model.ShareRequest{
		DocID: doc.ID,
		Users: []model.SharedUser{{User: bob, Permission: model.PermissionEdit}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.GetSharedUsers, http.MethodGet, "/api/documents/members?docId="+doc.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shared []model.SharedUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shared))
	require.Len(t, shared, 1)
	assert.Equal(t, "bob", shared[0].User.Username)
}
