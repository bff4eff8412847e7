package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"moosedocs/internal/anchor"
	"moosedocs/internal/document/model"
	"moosedocs/internal/document/service"
	"moosedocs/internal/document/store"
	"moosedocs/middleware"
	"moosedocs/pkg/logger"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: svc}
}

// statusFor maps store errors to HTTP status codes. Anything unrecognized
// is a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrCommentResolved):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func userIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(middleware.UserIDKey).(string); ok {
		return id
	}
	return ""
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docs, err := h.Service.GetDocuments(r.Context())
	if err != nil {
		logger.Sugar.Errorf("Error fetching documents: %v", err)
		http.Error(w, "Failed to fetch documents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.GetDocument(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to fetch document %s: %v", docID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateDocRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default to empty

	doc, err := h.Service.CreateDocument(r.Context(), req.Title)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, "Failed to create document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	var req model.UpdateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateTitle(r.Context(), docID, req.Title); err != nil {
		logger.Sugar.Errorf("Handler: Failed to update title for doc %s: %v", docID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document updated successfully"))
}

func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.SaveDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || req.Content == "" {
		http.Error(w, "Document ID and content are required", http.StatusBadRequest)
		return
	}

	if err := h.Service.SaveDocument(r.Context(), userIDFrom(r), req); err != nil {
		logger.Sugar.Errorf("Error saving document: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document saved successfully"))
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteDocument(r.Context(), docID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete document %s: %v", docID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document deleted successfully"))
}

func (h *DocumentHandler) StarDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.StarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.StarDocument(r.Context(), req); err != nil {
		logger.Sugar.Errorf("Handler: Failed to star document %s: %v", req.DocID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document star updated"))
}

func (h *DocumentHandler) GetCurrentDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, ok := h.Service.CurrentDocument()
	if !ok {
		http.Error(w, "No document is open", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) SetCurrentDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		DocID string `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.SetCurrentDocument(req.DocID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to open document %s: %v", req.DocID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Current document updated"))
}

func (h *DocumentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || req.Content == "" {
		http.Error(w, "Document ID and Content are required", http.StatusBadRequest)
		return
	}

	comment, err := h.Service.AddComment(r.Context(), userIDFrom(r), req)
	if err != nil {
		logger.Sugar.Errorf("Failed to add comment: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comment)
}

func (h *DocumentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || req.CommentID == "" || req.Content == "" {
		http.Error(w, "Document ID, comment ID and content are required", http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateComment(r.Context(), userIDFrom(r), req); err != nil {
		logger.Sugar.Errorf("Handler: Failed to update comment %s: %v", req.CommentID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Comment updated"))
}

func (h *DocumentHandler) ResolveComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.ResolveCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || req.CommentID == "" {
		http.Error(w, "Document ID and comment ID are required", http.StatusBadRequest)
		return
	}

	if err := h.Service.ResolveComment(r.Context(), userIDFrom(r), req); err != nil {
		logger.Sugar.Errorf("Handler: Failed to resolve comment %s: %v", req.CommentID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Comment status updated"))
}

func (h *DocumentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	commentID := r.URL.Query().Get("commentId")
	if docID == "" || commentID == "" {
		http.Error(w, "Missing docId or commentId parameter", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteComment(r.Context(), userIDFrom(r), docID, commentID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete comment %s: %v", commentID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Comment deleted"))
}

func (h *DocumentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.GetDocument(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching comments: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	comments := doc.Comments
	if comments == nil {
		comments = []model.Comment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

// GetCommentMarkers recomputes overlay spans for a document's unresolved
// comments against its current content. Comments whose anchored text was
// edited away are omitted.
func (h *DocumentHandler) GetCommentMarkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.GetDocument(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to fetch document %s for markers: %v", docID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	markers := anchor.Markers(doc.Content, doc.Comments)
	if markers == nil {
		markers = []anchor.Marker{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markers)
}

func (h *DocumentHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || req.CommentID == "" || req.Content == "" {
		http.Error(w, "Document ID, comment ID and content are required", http.StatusBadRequest)
		return
	}

	reply, err := h.Service.AddReply(r.Context(), userIDFrom(r), req)
	if err != nil {
		logger.Sugar.Errorf("Failed to add reply: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

func (h *DocumentHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	commentID := r.URL.Query().Get("commentId")
	replyID := r.URL.Query().Get("replyId")
	if docID == "" || commentID == "" || replyID == "" {
		http.Error(w, "Missing docId, commentId or replyId parameter", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteReply(r.Context(), userIDFrom(r), docID, commentID, replyID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete reply %s: %v", replyID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Reply deleted"))
}

func (h *DocumentHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.AttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || req.CommentID == "" || req.Attachment.ID == "" {
		http.Error(w, "Document ID, comment ID and attachment are required", http.StatusBadRequest)
		return
	}

	if err := h.Service.AddAttachment(r.Context(), userIDFrom(r), req); err != nil {
		logger.Sugar.Errorf("Handler: Failed to attach file to comment %s: %v", req.CommentID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Attachment added"))
}

func (h *DocumentHandler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	commentID := r.URL.Query().Get("commentId")
	attachmentID := r.URL.Query().Get("attachmentId")
	replyID := r.URL.Query().Get("replyId") // optional, empty targets the comment
	if docID == "" || commentID == "" || attachmentID == "" {
		http.Error(w, "Missing docId, commentId or attachmentId parameter", http.StatusBadRequest)
		return
	}

	if err := h.Service.RemoveAttachment(r.Context(), userIDFrom(r), docID, commentID, attachmentID, replyID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to remove attachment %s: %v", attachmentID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Attachment removed"))
}

func (h *DocumentHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DocID == "" || len(req.Users) == 0 {
		http.Error(w, "Document ID and users are required", http.StatusBadRequest)
		return
	}
	for _, su := range req.Users {
		if !model.ValidPermission(su.Permission) {
			http.Error(w, "Invalid permission. Must be view, edit, or comment", http.StatusBadRequest)
			return
		}
	}

	if err := h.Service.ShareDocument(r.Context(), req); err != nil {
		logger.Sugar.Errorf("Handler: Failed to share document %s: %v", req.DocID, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document shared successfully"))
}

func (h *DocumentHandler) GetSharedUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	users := h.Service.SharedUsers(docID)
	if users == nil {
		users = []model.SharedUser{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}
