// Package store implements the document state container: document metadata,
// HTML content, comment threads and ephemeral share lists, persisted as one
// JSON collection through an injectable backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"moosedocs/internal/document/model"
	"moosedocs/internal/identity"
	"moosedocs/internal/simulate"
	"moosedocs/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrNotFound reports an unknown document, comment, reply or attachment
	// id. The demo this replaces silently no-opped and reported success;
	// here a missing target is surfaced explicitly.
	ErrNotFound = errors.New("not found")

	// ErrNotLoggedIn is returned when a comment or reply is created without
	// an active session.
	ErrNotLoggedIn = errors.New("user must be logged in")

	// ErrCommentResolved is returned when replying to a resolved comment.
	ErrCommentResolved = errors.New("comment is resolved")
)

// Session exposes the active user to the document store. The identity store
// satisfies it.
type Session interface {
	ActiveUser() (identity.User, bool)
}

type Store struct {
	mu      sync.RWMutex
	backend storage.Backend
	session Session
	docs    []model.DocumentMeta
	current string
	shares  map[string][]model.SharedUser
	delay   time.Duration
	now     func() time.Time
}

// NewStore loads the persisted document collection from the backend.
func NewStore(ctx context.Context, backend storage.Backend, session Session) (*Store, error) {
	s := &Store{
		backend: backend,
		session: session,
		shares:  make(map[string][]model.SharedUser),
		// UTC wall times, so timestamps survive the JSON round trip
		// through the backend unchanged.
		now: func() time.Time { return time.Now().UTC() },
	}

	data, err := backend.Load(ctx, storage.KeyDocuments)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &s.docs); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	}
	return s, nil
}

// SetLatency configures the simulated network delay applied to every call.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.RLock()
	d := s.delay
	s.mu.RUnlock()
	return simulate.Wait(ctx, d)
}

// touch advances a document's UpdatedAt. The timestamp is kept monotonic
// non-decreasing even if the clock steps backwards.
func (s *Store) touch(doc *model.DocumentMeta) {
	t := s.now()
	if t.Before(doc.UpdatedAt) {
		t = doc.UpdatedAt
	}
	doc.UpdatedAt = t
}

// called with the lock held
func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.docs)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storage.KeyDocuments, data)
}

// called with the lock held
func (s *Store) find(id string) (*model.DocumentMeta, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return &s.docs[i], nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
}

func findComment(doc *model.DocumentMeta, commentID string) (*model.Comment, error) {
	for i := range doc.Comments {
		if doc.Comments[i].ID == commentID {
			return &doc.Comments[i], nil
		}
	}
	return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
}

func findReply(c *model.Comment, replyID string) (*model.CommentReply, error) {
	for i := range c.Replies {
		if c.Replies[i].ID == replyID {
			return &c.Replies[i], nil
		}
	}
	return nil, fmt.Errorf("reply %s: %w", replyID, ErrNotFound)
}

// Documents returns the collection in display order, newest first.
func (s *Store) Documents(ctx context.Context) ([]model.DocumentMeta, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.DocumentMeta, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Clone()
	}
	return out, nil
}

// Document returns a snapshot of one document.
func (s *Store) Document(ctx context.Context, id string) (model.DocumentMeta, error) {
	if err := s.wait(ctx); err != nil {
		return model.DocumentMeta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.find(id)
	if err != nil {
		return model.DocumentMeta{}, err
	}
	return doc.Clone(), nil
}

// DocumentContent returns the HTML blob without the simulated delay. The
// presence hub uses it to seed a room when the first client joins.
func (s *Store) DocumentContent(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.find(id)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// CurrentDocument resolves the open-document pointer against the collection,
// so a title or content change to the open document is always visible here.
func (s *Store) CurrentDocument() (model.DocumentMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return model.DocumentMeta{}, false
	}
	doc, err := s.find(s.current)
	if err != nil {
		return model.DocumentMeta{}, false
	}
	return doc.Clone(), true
}

// SetCurrentDocument points the editor view at a document. An empty id clears
// the pointer.
func (s *Store) SetCurrentDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.current = ""
		return nil
	}
	if _, err := s.find(id); err != nil {
		return err
	}
	s.current = id
	return nil
}

// ClearCurrent drops the open-document pointer. Registered as a logout hook.
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
}

// CreateDocument makes a new document with boilerplate content, owned by the
// active user, and prepends it to the collection.
func (s *Store) CreateDocument(ctx context.Context, title string) (model.DocumentMeta, error) {
	if err := s.wait(ctx); err != nil {
		return model.DocumentMeta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := "unknown"
	if u, ok := s.session.ActiveUser(); ok {
		owner = u.ID
	}

	now := s.now()
	doc := model.DocumentMeta{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Owner:     owner,
		Starred:   false,
		Content:   fmt.Sprintf("<h1>%s</h1><p>Start typing to edit this document...</p>", title),
		Comments:  []model.Comment{},
	}

	s.docs = append([]model.DocumentMeta{doc}, s.docs...)
	if err := s.persist(ctx); err != nil {
		return model.DocumentMeta{}, err
	}
	return doc.Clone(), nil
}

// UpdateTitle replaces the title and bumps UpdatedAt.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	return s.mutateDocument(ctx, id, func(doc *model.DocumentMeta) error {
		doc.Title = title
		return nil
	})
}

// UpdateContent replaces the HTML content and bumps UpdatedAt.
func (s *Store) UpdateContent(ctx context.Context, id, content string) error {
	return s.mutateDocument(ctx, id, func(doc *model.DocumentMeta) error {
		doc.Content = content
		return nil
	})
}

// Star sets the starred flag.
func (s *Store) Star(ctx context.Context, id string, starred bool) error {
	return s.mutateDocument(ctx, id, func(doc *model.DocumentMeta) error {
		doc.Starred = starred
		return nil
	})
}

// Delete removes a document. If it was the open document the pointer is
// cleared; otherwise the pointer is untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.docs {
		if s.docs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	s.docs = append(s.docs[:idx], s.docs[idx+1:]...)
	delete(s.shares, id)
	if s.current == id {
		s.current = ""
	}
	return s.persist(ctx)
}

// AddComment appends a comment authored by the active user. Author name and
// avatar are copied at creation time so later profile edits do not rewrite
// historical authorship.
func (s *Store) AddComment(ctx context.Context, docID, content string, pos model.Position, attachments []model.FileAttachment) (model.Comment, error) {
	if err := s.wait(ctx); err != nil {
		return model.Comment{}, err
	}

	user, ok := s.session.ActiveUser()
	if !ok {
		return model.Comment{}, ErrNotLoggedIn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.find(docID)
	if err != nil {
		return model.Comment{}, err
	}

	now := s.now()
	comment := model.Comment{
		ID:           uuid.NewString(),
		DocumentID:   docID,
		AuthorID:     user.ID,
		AuthorName:   user.DisplayName(),
		AuthorAvatar: user.Avatar,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
		Resolved:     false,
		Position:     pos,
		Attachments:  append([]model.FileAttachment{}, attachments...),
		Replies:      []model.CommentReply{},
	}

	doc.Comments = append(doc.Comments, comment)
	s.touch(doc)
	if err := s.persist(ctx); err != nil {
		return model.Comment{}, err
	}
	return comment.Clone(), nil
}

// UpdateComment replaces a comment's text.
func (s *Store) UpdateComment(ctx context.Context, docID, commentID, content string) error {
	return s.mutateComment(ctx, docID, commentID, func(c *model.Comment) error {
		c.Content = content
		c.UpdatedAt = s.now()
		return nil
	})
}

// ResolveComment sets the resolved flag. A resolved comment no longer
// accepts replies until it is unresolved.
func (s *Store) ResolveComment(ctx context.Context, docID, commentID string, resolved bool) error {
	return s.mutateComment(ctx, docID, commentID, func(c *model.Comment) error {
		c.Resolved = resolved
		c.UpdatedAt = s.now()
		return nil
	})
}

// DeleteComment removes a comment and its replies.
func (s *Store) DeleteComment(ctx context.Context, docID, commentID string) error {
	return s.mutateDocument(ctx, docID, func(doc *model.DocumentMeta) error {
		for i := range doc.Comments {
			if doc.Comments[i].ID == commentID {
				doc.Comments = append(doc.Comments[:i], doc.Comments[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	})
}

// AddReply appends a reply to a comment. Replying to a resolved comment is
// rejected.
func (s *Store) AddReply(ctx context.Context, docID, commentID, content string, attachments []model.FileAttachment) (model.CommentReply, error) {
	if err := s.wait(ctx); err != nil {
		return model.CommentReply{}, err
	}

	user, ok := s.session.ActiveUser()
	if !ok {
		return model.CommentReply{}, ErrNotLoggedIn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.find(docID)
	if err != nil {
		return model.CommentReply{}, err
	}
	comment, err := findComment(doc, commentID)
	if err != nil {
		return model.CommentReply{}, err
	}
	if comment.Resolved {
		return model.CommentReply{}, ErrCommentResolved
	}

	reply := model.CommentReply{
		ID:           uuid.NewString(),
		CommentID:    commentID,
		AuthorID:     user.ID,
		AuthorName:   user.DisplayName(),
		AuthorAvatar: user.Avatar,
		Content:      content,
		CreatedAt:    s.now(),
		Attachments:  append([]model.FileAttachment{}, attachments...),
	}

	comment.Replies = append(comment.Replies, reply)
	comment.UpdatedAt = s.now()
	s.touch(doc)
	if err := s.persist(ctx); err != nil {
		return model.CommentReply{}, err
	}
	return reply.Clone(), nil
}

// DeleteReply removes a reply from a comment's thread.
func (s *Store) DeleteReply(ctx context.Context, docID, commentID, replyID string) error {
	return s.mutateComment(ctx, docID, commentID, func(c *model.Comment) error {
		for i := range c.Replies {
			if c.Replies[i].ID == replyID {
				c.Replies = append(c.Replies[:i], c.Replies[i+1:]...)
				c.UpdatedAt = s.now()
				return nil
			}
		}
		return fmt.Errorf("reply %s: %w", replyID, ErrNotFound)
	})
}

// AddAttachment attaches a file to a comment, or to one of its replies when
// replyID is supplied.
func (s *Store) AddAttachment(ctx context.Context, docID, commentID, replyID string, att model.FileAttachment) error {
	return s.mutateComment(ctx, docID, commentID, func(c *model.Comment) error {
		if replyID == "" {
			c.Attachments = append(c.Attachments, att)
			c.UpdatedAt = s.now()
			return nil
		}
		reply, err := findReply(c, replyID)
		if err != nil {
			return err
		}
		reply.Attachments = append(reply.Attachments, att)
		return nil
	})
}

// RemoveAttachment detaches a file from a comment or one of its replies.
func (s *Store) RemoveAttachment(ctx context.Context, docID, commentID, attachmentID, replyID string) error {
	return s.mutateComment(ctx, docID, commentID, func(c *model.Comment) error {
		if replyID == "" {
			for i := range c.Attachments {
				if c.Attachments[i].ID == attachmentID {
					c.Attachments = append(c.Attachments[:i], c.Attachments[i+1:]...)
					c.UpdatedAt = s.now()
					return nil
				}
			}
			return fmt.Errorf("attachment %s: %w", attachmentID, ErrNotFound)
		}
		reply, err := findReply(c, replyID)
		if err != nil {
			return err
		}
		for i := range reply.Attachments {
			if reply.Attachments[i].ID == attachmentID {
				reply.Attachments = append(reply.Attachments[:i], reply.Attachments[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("attachment %s: %w", attachmentID, ErrNotFound)
	})
}

// Share records the share list for a document. The list is display-only
// state: permissions are recorded but not enforced, and nothing is persisted.
func (s *Store) Share(ctx context.Context, docID string, users []model.SharedUser) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	for _, su := range users {
		if !model.ValidPermission(su.Permission) {
			return fmt.Errorf("invalid permission %q", su.Permission)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.find(docID); err != nil {
		return err
	}
	s.shares[docID] = append([]model.SharedUser{}, users...)
	return nil
}

// SharedUsers returns the recorded share list for a document.
func (s *Store) SharedUsers(docID string) []model.SharedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SharedUser{}, s.shares[docID]...)
}

func (s *Store) mutateDocument(ctx context.Context, id string, fn func(*model.DocumentMeta) error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.find(id)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	s.touch(doc)
	return s.persist(ctx)
}

func (s *Store) mutateComment(ctx context.Context, docID, commentID string, fn func(*model.Comment) error) error {
	return s.mutateDocument(ctx, docID, func(doc *model.DocumentMeta) error {
		comment, err := findComment(doc, commentID)
		if err != nil {
			return err
		}
		return fn(comment)
	})
}
