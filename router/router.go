package router

import (
	"net/http"

	"moosedocs/internal/background"
	docHandler "moosedocs/internal/document"
	"moosedocs/internal/document/service"
	"moosedocs/internal/document/store"
	"moosedocs/internal/identity"
	"moosedocs/internal/static"
	"moosedocs/internal/upload"
	"moosedocs/middleware"
	"moosedocs/socket"
)

type Deps struct {
	Identity   *identity.Store
	Documents  *store.Store
	Background *background.Store
	Hub        *socket.Hub
	Uploader   upload.Uploader
}

func Setup(deps Deps) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(middleware.UserIDKey).(string)
		username := userID
		if user, ok := deps.Identity.ActiveUser(); ok && user.ID == userID {
			username = user.Username
		}
		socket.ServeWs(deps.Hub, w, r, userID, username)
	})
	mux.Handle("/ws", auth(wsHandler))

	// Auth and users
	idHandler := identity.NewHandler(deps.Identity)
	mux.Handle("/api/auth/signup", http.HandlerFunc(idHandler.Signup))
	mux.Handle("/api/auth/login", http.HandlerFunc(idHandler.Login))
	mux.Handle("/api/auth/logout", auth(http.HandlerFunc(idHandler.Logout)))
	mux.Handle("/api/auth/me", auth(http.HandlerFunc(idHandler.Me)))
	mux.Handle("/api/auth/reset-request", http.HandlerFunc(idHandler.RequestPasswordReset))
	mux.Handle("/api/users/search", auth(http.HandlerFunc(idHandler.SearchUsers)))
	mux.Handle("/api/users/profile", auth(http.HandlerFunc(idHandler.UpdateProfile)))
	mux.Handle("/api/users/avatar", auth(http.HandlerFunc(idHandler.UpdateAvatar)))

	// Documents and comments
	docService := service.NewDocumentService(deps.Documents, deps.Hub)
	docs := docHandler.NewDocumentHandler(docService)

	mux.Handle("/api/documents", auth(http.HandlerFunc(docs.GetDocuments)))
	mux.Handle("/api/documents/get", auth(http.HandlerFunc(docs.GetDocument)))
	mux.Handle("/api/documents/create", auth(http.HandlerFunc(docs.CreateDocument)))
	mux.Handle("/api/documents/update", auth(http.HandlerFunc(docs.UpdateDocument)))
	mux.Handle("/api/documents/delete", auth(http.HandlerFunc(docs.DeleteDocument)))
	mux.Handle("/api/documents/save", auth(http.HandlerFunc(docs.SaveDocument)))
	mux.Handle("/api/documents/star", auth(http.HandlerFunc(docs.StarDocument)))
	mux.Handle("/api/documents/current", auth(currentDocumentHandler(docs)))
	mux.Handle("/api/documents/share", auth(http.HandlerFunc(docs.ShareDocument)))
	mux.Handle("/api/documents/members", auth(http.HandlerFunc(docs.GetSharedUsers)))

	mux.Handle("/api/documents/comments", auth(http.HandlerFunc(docs.GetComments)))
	mux.Handle("/api/documents/comments/add", auth(http.HandlerFunc(docs.AddComment)))
	mux.Handle("/api/documents/comments/update", auth(http.HandlerFunc(docs.UpdateComment)))
	mux.Handle("/api/documents/comments/resolve", auth(http.HandlerFunc(docs.ResolveComment)))
	mux.Handle("/api/documents/comments/delete", auth(http.HandlerFunc(docs.DeleteComment)))
	mux.Handle("/api/documents/comments/markers", auth(http.HandlerFunc(docs.GetCommentMarkers)))
	mux.Handle("/api/documents/comments/replies/add", auth(http.HandlerFunc(docs.AddReply)))
	mux.Handle("/api/documents/comments/replies/delete", auth(http.HandlerFunc(docs.DeleteReply)))
	mux.Handle("/api/documents/comments/attachments/add", auth(http.HandlerFunc(docs.AddAttachment)))
	mux.Handle("/api/documents/comments/attachments/delete", auth(http.HandlerFunc(docs.RemoveAttachment)))

	// Uploads
	uploads := upload.NewHandler(deps.Uploader)
	mux.Handle("/api/uploads", auth(http.HandlerFunc(uploads.Upload)))

	// Background customization
	bg := background.NewHandler(deps.Background)
	mux.Handle("/api/background", auth(backgroundDispatch(bg)))
	mux.Handle("/api/background/reset", auth(http.HandlerFunc(bg.ResetSettings)))

	// Static catalogs
	mux.Handle("/api/static/fonts", http.HandlerFunc(static.FontsHandler))
	mux.Handle("/api/static/images", http.HandlerFunc(static.SearchImagesHandler))

	return middleware.CORSMiddleware(mux)
}

// currentDocumentHandler multiplexes the open-document pointer: GET reads
// it, PUT moves it.
func currentDocumentHandler(docs *docHandler.DocumentHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			docs.GetCurrentDocument(w, r)
		case http.MethodPut:
			docs.SetCurrentDocument(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func backgroundDispatch(bg *background.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			bg.GetSettings(w, r)
		case http.MethodPut:
			bg.UpdateSettings(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
