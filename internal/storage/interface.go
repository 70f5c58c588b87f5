package storage

import (
	"context"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
)

// Page - аргументы для offset-пагинации.
type Page struct {
	Limit  int
	Offset int
}

// PostFilter ограничивает выборку постов.
type PostFilter struct {
	AuthorIDs []string // пустой срез - без ограничения по авторам
	Hashtag   string
	Since     time.Time
}

// ProductFilter ограничивает выборку товаров.
type ProductFilter struct {
	SellerID        string
	IncludeInactive bool
}

// OrderFilter выбирает заказы покупателя или продавца.
type OrderFilter struct {
	BuyerID  string
	SellerID string
}

// ProductPatch - частичное изменение товара. nil-поля не меняются,
// поэтому остаток, списанный заказами, не перезаписывается.
type ProductPatch struct {
	Title       *string
	Description *string
	PriceCents  *int64
	Currency    *string
	Stock       *int
	ImageURLs   *[]string
	IsActive    *bool
}

// Apply переносит заданные поля в p.
func (pp ProductPatch) Apply(p *domain.Product) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.PriceCents != nil {
		p.PriceCents = *pp.PriceCents
	}
	if pp.Currency != nil {
		p.Currency = *pp.Currency
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	if pp.ImageURLs != nil {
		p.ImageURLs = *pp.ImageURLs
	}
	if pp.IsActive != nil {
		p.IsActive = *pp.IsActive
	}
}

// Counter - денормализованный счетчик поста.
type Counter string

const (
	CounterLikes    Counter = "likes_count"
	CounterComments Counter = "comments_count"
	CounterReposts  Counter = "reposts_count"
)

// Users - пользователи, сессии и баллы.
type Users interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error)
	AddPoints(ctx context.Context, userID string, delta int) error
	AdjustFollowCounts(ctx context.Context, followerID, followeeID string, delta int) error

	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	RevokeSession(ctx context.Context, id string) error
}

// Posts - посты, комментарии и реакции. Счетчики поста меняются
// в той же транзакции, что и сама реакция.
type Posts interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error)
	ListPosts(ctx context.Context, filter PostFilter, page Page) ([]*domain.Post, error)
	DeletePost(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string, page Page) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	CreateRepost(ctx context.Context, repost *domain.Repost) (*domain.Repost, error)
	DeleteRepost(ctx context.Context, postID, userID string) error
}

// Library - закладки и коллекции.
type Library interface {
	CreateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error)
	GetCollection(ctx context.Context, id string) (*domain.Collection, error)
	ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error)
	UpdateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error)
	// DeleteCollection удаляет коллекцию и обнуляет ссылки закладок на нее.
	DeleteCollection(ctx context.Context, id string) error

	CreateBookmark(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, postID string) error
	MoveBookmark(ctx context.Context, userID, postID string, collectionID *string) (*domain.Bookmark, error)
	ListBookmarks(ctx context.Context, userID string, collectionID *string, page Page) ([]*domain.Bookmark, error)
}

// Social - подписки и уведомления.
type Social interface {
	CreateFollow(ctx context.Context, followerID, followeeID string) error
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	ListFollowers(ctx context.Context, userID string, page Page) ([]*domain.User, error)
	ListFollowing(ctx context.Context, userID string, page Page) ([]*domain.User, error)

	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page Page) ([]*domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Messaging - диалоги и сообщения.
type Messaging interface {
	// GetOrCreateConversation возвращает диалог пары и признак его создания.
	GetOrCreateConversation(ctx context.Context, a, b string) (*domain.Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string, page Page) ([]*domain.Conversation, error)
	// CreateMessage сохраняет сообщение и сдвигает updated_at диалога.
	CreateMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID string, page Page) ([]*domain.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
}

// Invites - реферальные коды.
type Invites interface {
	FindActiveInvite(ctx context.Context, inviterID string) (*domain.Invite, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	// CreateInvites вставляет коды одним пакетом; при дубликате кода - ErrConflict.
	CreateInvites(ctx context.Context, invites []*domain.Invite) error
	GetInviteByCode(ctx context.Context, code string) (*domain.Invite, error)
	ListInvites(ctx context.Context, inviterID string) ([]*domain.Invite, error)
	// RedeemInvite условно переводит код из unused в used.
	RedeemInvite(ctx context.Context, code, userID string, at time.Time) (*domain.Invite, error)
}

// Market - товары, заказы, список желаний и события оплаты.
type Market interface {
	CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter, page Page) ([]*domain.Product, error)
	// UpdateProduct меняет только поля, заданные в patch.
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error)

	// CreateOrder списывает остаток товара и создает заказ атомарно.
	CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, page Page) ([]*domain.Order, error)
	SetPaymentIntent(ctx context.Context, orderID, intentID string) error
	// UpdateOrderStatus меняет статус, только если текущий равен from.
	UpdateOrderStatus(ctx context.Context, orderID, from, to string) (*domain.Order, error)
	// CancelOrderRestock отменяет заказ в статусе pending и возвращает остаток.
	CancelOrderRestock(ctx context.Context, orderID string) error
	// SetPaymentStatus возвращает false, если статус уже был таким.
	SetPaymentStatus(ctx context.Context, orderID, status string) (bool, error)

	WebhookEventProcessed(ctx context.Context, id string) (bool, error)
	RecordWebhookEvent(ctx context.Context, e *domain.WebhookEvent) error

	AddWishlistItem(ctx context.Context, userID, productID string) error
	RemoveWishlistItem(ctx context.Context, userID, productID string) error
	ListWishlist(ctx context.Context, userID string) ([]*domain.Product, error)
}

// Tasks - задания и их выполнение.
type Tasks interface {
	CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, activeOnly bool) ([]*domain.Task, error)
	CompleteTask(ctx context.Context, c *domain.TaskCompletion) error
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	Users
	Posts
	Library
	Social
	Messaging
	Invites
	Market
	Tasks
}
