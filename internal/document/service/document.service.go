package service

import (
	"context"
	"encoding/json"

	"moosedocs/internal/document/model"
	"moosedocs/internal/document/store"
	"moosedocs/socket"
)

// DocumentService wraps the store and fans mutations out to the websocket
// hub so open rooms see comments and saves as they happen. A nil hub is
// allowed for headless use.
type DocumentService struct {
	Store *store.Store
	Hub   *socket.Hub
}

func NewDocumentService(st *store.Store, hub *socket.Hub) *DocumentService {
	return &DocumentService{Store: st, Hub: hub}
}

func (s *DocumentService) broadcast(msgType, docID, userID string, payload any) {
	if s.Hub == nil {
		return
	}
	raw, _ := json.Marshal(payload)
	s.Hub.Broadcast <- socket.WSMessage{
		Type:    msgType,
		DocID:   docID,
		UserID:  userID,
		Payload: raw,
	}
}

func (s *DocumentService) GetDocuments(ctx context.Context) ([]model.DocumentMeta, error) {
	return s.Store.Documents(ctx)
}

func (s *DocumentService) GetDocument(ctx context.Context, id string) (model.DocumentMeta, error) {
	return s.Store.Document(ctx, id)
}

func (s *DocumentService) CreateDocument(ctx context.Context, title string) (model.DocumentMeta, error) {
	if title == "" {
		title = "Untitled Document"
	}
	return s.Store.CreateDocument(ctx, title)
}

func (s *DocumentService) UpdateTitle(ctx context.Context, id, title string) error {
	if err := s.Store.UpdateTitle(ctx, id, title); err != nil {
		return err
	}
	s.broadcast(socket.MetadataType, id, "", map[string]string{"title": title})
	return nil
}

func (s *DocumentService) SaveDocument(ctx context.Context, userID string, req model.SaveDocRequest) error {
	if err := s.Store.UpdateContent(ctx, req.DocID, req.Content); err != nil {
		return err
	}
	s.broadcast(socket.UpdateType, req.DocID, userID, map[string]string{"content": req.Content})
	return nil
}

func (s *DocumentService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.RemoveDocument(id)
	}
	return nil
}

func (s *DocumentService) StarDocument(ctx context.Context, req model.StarRequest) error {
	return s.Store.Star(ctx, req.DocID, req.Starred)
}

func (s *DocumentService) CurrentDocument() (model.DocumentMeta, bool) {
	return s.Store.CurrentDocument()
}

func (s *DocumentService) SetCurrentDocument(id string) error {
	return s.Store.SetCurrentDocument(id)
}

func (s *DocumentService) AddComment(ctx context.Context, userID string, req model.CommentRequest) (model.Comment, error) {
	comment, err := s.Store.AddComment(ctx, req.DocID, req.Content, req.Position, req.Attachments)
	if err != nil {
		return model.Comment{}, err
	}
	s.broadcast(socket.CommentType, req.DocID, userID, comment)
	return comment, nil
}

func (s *DocumentService) UpdateComment(ctx context.Context, userID string, req model.UpdateCommentRequest) error {
	if err := s.Store.UpdateComment(ctx, req.DocID, req.CommentID, req.Content); err != nil {
		return err
	}
	s.broadcast(socket.CommentUpdateType, req.DocID, userID, map[string]string{"id": req.CommentID})
	return nil
}

func (s *DocumentService) ResolveComment(ctx context.Context, userID string, req model.ResolveCommentRequest) error {
	if err := s.Store.ResolveComment(ctx, req.DocID, req.CommentID, req.Resolved); err != nil {
		return err
	}
	s.broadcast(socket.CommentUpdateType, req.DocID, userID, map[string]any{
		"id":       req.CommentID,
		"resolved": req.Resolved,
	})
	return nil
}

func (s *DocumentService) DeleteComment(ctx context.Context, userID, docID, commentID string) error {
	if err := s.Store.DeleteComment(ctx, docID, commentID); err != nil {
		return err
	}
	s.broadcast(socket.CommentDeleteType, docID, userID, map[string]string{"id": commentID})
	return nil
}

func (s *DocumentService) AddReply(ctx context.Context, userID string, req model.ReplyRequest) (model.CommentReply, error) {
	reply, err := s.Store.AddReply(ctx, req.DocID, req.CommentID, req.Content, req.Attachments)
	if err != nil {
		return model.CommentReply{}, err
	}
	s.broadcast(socket.CommentUpdateType, req.DocID, userID, map[string]string{"id": req.CommentID})
	return reply, nil
}

func (s *DocumentService) DeleteReply(ctx context.Context, userID, docID, commentID, replyID string) error {
	if err := s.Store.DeleteReply(ctx, docID, commentID, replyID); err != nil {
		return err
	}
	s.broadcast(socket.CommentUpdateType, docID, userID, map[string]string{"id": commentID})
	return nil
}

func (s *DocumentService) AddAttachment(ctx context.Context, userID string, req model.AttachmentRequest) error {
	if err := s.Store.AddAttachment(ctx, req.DocID, req.CommentID, req.ReplyID, req.Attachment); err != nil {
		return err
	}
	s.broadcast(socket.CommentUpdateType, req.DocID, userID, map[string]string{"id": req.CommentID})
	return nil
}

func (s *DocumentService) RemoveAttachment(ctx context.Context, userID, docID, commentID, attachmentID, replyID string) error {
	if err := s.Store.RemoveAttachment(ctx, docID, commentID, attachmentID, replyID); err != nil {
		return err
	}
	s.broadcast(socket.CommentUpdateType, docID, userID, map[string]string{"id": commentID})
	return nil
}

func (s *DocumentService) ShareDocument(ctx context.Context, req model.ShareRequest) error {
	return s.Store.Share(ctx, req.DocID, req.Users)
}

func (s *DocumentService) SharedUsers(docID string) []model.SharedUser {
	return s.Store.SharedUsers(docID)
}
