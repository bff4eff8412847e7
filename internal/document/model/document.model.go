package model

import (
	"time"

	"moosedocs/internal/identity"
)

// Share permissions. Recorded against a document but never enforced; the demo
// records who a document was shared with purely for display.
const (
	PermissionView    = "view"
	PermissionEdit    = "edit"
	PermissionComment = "comment"
)

func ValidPermission(p string) bool {
	return p == PermissionView || p == PermissionEdit || p == PermissionComment
}

// Position is a textual comment anchor: the selected text plus its
// first-occurrence offsets inside the serialized HTML. It is not a stable
// structural anchor; if the matched substring occurs more than once or the
// document is edited, the marker can attach to the wrong occurrence.
type Position struct {
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

type FileAttachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"` // MIME type, used only for icon selection
	Size int64  `json:"size"`
}

type CommentReply struct {
	ID           string           `json:"id"`
	CommentID    string           `json:"comment_id"`
	AuthorID     string           `json:"author_id"`
	AuthorName   string           `json:"author_name"`
	AuthorAvatar string           `json:"author_avatar,omitempty"`
	Content      string           `json:"content"`
	CreatedAt    time.Time        `json:"created_at"`
	Attachments  []FileAttachment `json:"attachments"`
}

type Comment struct {
	ID           string           `json:"id"`
	DocumentID   string           `json:"document_id"`
	AuthorID     string           `json:"author_id"`
	AuthorName   string           `json:"author_name"`
	AuthorAvatar string           `json:"author_avatar,omitempty"`
	Content      string           `json:"content"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Resolved     bool             `json:"resolved"`
	Position     Position         `json:"position"`
	Attachments  []FileAttachment `json:"attachments"`
	Replies      []CommentReply   `json:"replies"`
}

type DocumentMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Owner     string    `json:"owner"`
	Starred   bool      `json:"starred"`
	Content   string    `json:"content"`
	Comments  []Comment `json:"comments"`
}

// SharedUser is ephemeral share state; it is held in memory and never written
// to the persistence backend.
type SharedUser struct {
	User       identity.User `json:"user"`
	Permission string        `json:"permission"`
}

func (r CommentReply) Clone() CommentReply {
	out := r
	out.Attachments = append([]FileAttachment(nil), r.Attachments...)
	return out
}

func (c Comment) Clone() Comment {
	out := c
	out.Attachments = append([]FileAttachment(nil), c.Attachments...)
	out.Replies = make([]CommentReply, len(c.Replies))
	for i, r := range c.Replies {
		out.Replies[i] = r.Clone()
	}
	return out
}

func (d DocumentMeta) Clone() DocumentMeta {
	out := d
	out.Comments = make([]Comment, len(d.Comments))
	for i, c := range d.Comments {
		out.Comments[i] = c.Clone()
	}
	return out
}

// Request/response shapes for the HTTP surface.

type CreateDocRequest struct {
	Title string `json:"title"`
}

type UpdateDocRequest struct {
	Title string `json:"title"`
}

type SaveDocRequest struct {
	DocID   string `json:"document_id"`
	Content string `json:"content"`
}

type StarRequest struct {
	DocID   string `json:"document_id"`
	Starred bool   `json:"starred"`
}

type ShareRequest struct {
	DocID string       `json:"document_id"`
	Users []SharedUser `json:"users"`
}

type CommentRequest struct {
	DocID       string           `json:"document_id"`
	Content     string           `json:"content"`
	Position    Position         `json:"position"`
	Attachments []FileAttachment `json:"attachments,omitempty"`
}

type UpdateCommentRequest struct {
	DocID     string `json:"document_id"`
	CommentID string `json:"comment_id"`
	Content   string `json:"content"`
}

type ResolveCommentRequest struct {
	DocID     string `json:"document_id"`
	CommentID string `json:"comment_id"`
	Resolved  bool   `json:"resolved"`
}

type ReplyRequest struct {
	DocID       string           `json:"document_id"`
	CommentID   string           `json:"comment_id"`
	Content     string           `json:"content"`
	Attachments []FileAttachment `json:"attachments,omitempty"`
}

type AttachmentRequest struct {
	DocID      string         `json:"document_id"`
	CommentID  string         `json:"comment_id"`
	ReplyID    string         `json:"reply_id,omitempty"`
	Attachment FileAttachment `json:"attachment"`
}
