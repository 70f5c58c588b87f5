// Package api - HTTP-интерфейс платформы: JSON-эндпоинты поверх chi.
package api

import (
	"net/http"

	"github.com/UkralStul/ecosocial/internal/auth"
	"github.com/UkralStul/ecosocial/internal/dataloader"
	"github.com/UkralStul/ecosocial/internal/invite"
	"github.com/UkralStul/ecosocial/internal/payment"
	"github.com/UkralStul/ecosocial/internal/realtime"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps - зависимости обработчиков.
type Deps struct {
	Store    storage.Storage
	Auth     *auth.Authenticator
	Invites  *invite.Service
	Payments *payment.Service
	Hub      *realtime.Hub
	AdminKey auth.AdminKey
	Currency string
}

// Server содержит обработчики всех ресурсов.
type Server struct {
	store    storage.Storage
	auth     *auth.Authenticator
	invites  *invite.Service
	payments *payment.Service
	hub      *realtime.Hub
	adminKey auth.AdminKey
	currency string
}

func New(d Deps) *Server {
	return &Server{
		store:    d.Store,
		auth:     d.Auth,
		invites:  d.Invites,
		payments: d.Payments,
		hub:      d.Hub,
		adminKey: d.AdminKey,
		currency: d.Currency,
	}
}

// Routes собирает роутер со всеми маршрутами.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.auth.Middleware)
	r.Use(dataloader.Middleware(s.store))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Публичные маршруты
	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Post("/auth/logout", s.logout)
	r.Post("/webhooks/stripe", s.stripeWebhook)
	r.Post("/text/annotate", s.annotateText)
	r.Get("/invites/{code}", s.validateInvite)
	r.Get("/posts/trending", s.trendingPosts)
	r.Get("/posts/{postID}", s.getPost)
	r.Get("/posts/{postID}/comments", s.listComments)
	r.Get("/hashtags/trending", s.trendingHashtags)
	r.Get("/hashtags/{tag}/posts", s.hashtagPosts)
	r.Get("/users", s.searchUsers)
	r.Get("/users/{username}", s.getProfile)
	r.Get("/users/{username}/posts", s.userPosts)
	r.Get("/users/{username}/followers", s.listFollowers)
	r.Get("/users/{username}/following", s.listFollowing)
	r.Get("/products", s.listProducts)
	r.Get("/products/{productID}", s.getProduct)
	r.Get("/tasks", s.listTasks)

	r.With(s.requireAdmin).Post("/admin/tasks", s.createTask)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/ws", s.websocket)

		r.Get("/users/me", s.me)
		r.Patch("/users/me", s.updateMe)
		r.Post("/users/{username}/follow", s.follow)
		r.Delete("/users/{username}/follow", s.unfollow)

		r.Post("/posts", s.createPost)
		r.Get("/posts/feed", s.feed)
		r.Delete("/posts/{postID}", s.deletePost)
		r.Post("/posts/{postID}/comments", s.createComment)
		r.Delete("/comments/{commentID}", s.deleteComment)
		r.Post("/posts/{postID}/like", s.like)
		r.Delete("/posts/{postID}/like", s.unlike)
		r.Post("/posts/{postID}/repost", s.repost)
		r.Delete("/posts/{postID}/repost", s.unrepost)
		r.Post("/posts/{postID}/bookmark", s.addBookmark)
		r.Patch("/posts/{postID}/bookmark", s.moveBookmark)
		r.Delete("/posts/{postID}/bookmark", s.removeBookmark)
		r.Get("/bookmarks", s.listBookmarks)

		r.Get("/collections", s.listCollections)
		r.Post("/collections", s.createCollection)
		r.Patch("/collections/{collectionID}", s.updateCollection)
		r.Delete("/collections/{collectionID}", s.deleteCollection)

		r.Get("/conversations", s.listConversations)
		r.Post("/conversations", s.openConversation)
		r.Get("/conversations/{conversationID}/messages", s.listMessages)
		r.Post("/conversations/{conversationID}/messages", s.sendMessage)
		r.Post("/conversations/{conversationID}/read", s.markConversationRead)

		r.Get("/notifications", s.listNotifications)
		r.Get("/notifications/unread-count", s.unreadCount)
		r.Post("/notifications/read-all", s.markAllNotificationsRead)
		r.Post("/notifications/{notificationID}/read", s.markNotificationRead)

		r.Get("/invites", s.listInvites)
		r.Post("/invites", s.createInvite)
		r.Post("/invites/bulk", s.createInvitesBulk)
		r.Post("/invites/redeem", s.redeemInvite)

		r.Post("/products", s.createProduct)
		r.Patch("/products/{productID}", s.updateProduct)
		r.Delete("/products/{productID}", s.deactivateProduct)

		r.Get("/wishlist", s.listWishlist)
		r.Post("/wishlist/{productID}", s.addToWishlist)
		r.Delete("/wishlist/{productID}", s.removeFromWishlist)

		r.Get("/orders", s.listOrders)
		r.Post("/orders", s.createOrder)
		r.Get("/orders/{orderID}", s.getOrder)
		r.Patch("/orders/{orderID}", s.updateOrder)

		r.Post("/tasks/{taskID}/complete", s.completeTask)
	})

	return r
}
