// Package storagetest содержит общий набор проверок контракта storage.Storage.
// Каждая реализация хранилища прогоняет его из своего _test.go.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory создает пустое хранилище для одного подтеста.
type Factory func(t *testing.T) storage.Storage

// Run прогоняет все проверки контракта.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"Users", testUsers},
		{"Sessions", testSessions},
		{"PostCounters", testPostCounters},
		{"CommentReplies", testCommentReplies},
		{"ListPostsFilters", testListPostsFilters},
		{"DeletePostCascades", testDeletePostCascades},
		{"Collections", testCollections},
		{"Follows", testFollows},
		{"Notifications", testNotifications},
		{"Conversations", testConversations},
		{"Invites", testInvites},
		{"Orders", testOrders},
		{"ProductPatchKeepsStock", testProductPatchKeepsStock},
		{"PaymentStatus", testPaymentStatus},
		{"WebhookEvents", testWebhookEvents},
		{"Wishlist", testWishlist},
		{"Tasks", testTasks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// MustUser создает пользователя с почтой name@example.com.
func MustUser(t *testing.T, s storage.Storage, name string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &domain.User{
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "hash",
		DisplayName:  name,
	})
	require.NoError(t, err)
	return u
}

// MustPost создает пост автора authorID.
func MustPost(t *testing.T, s storage.Storage, authorID, content string, tags ...string) *domain.Post {
	t.Helper()
	p, err := s.CreatePost(context.Background(), &domain.Post{AuthorID: authorID, Content: content, Hashtags: tags})
	require.NoError(t, err)
	return p
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	assert.NotEmpty(t, alice.ID)

	_, err := s.CreateUser(ctx, &domain.User{Email: "ALICE@example.com", Username: "other", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.CreateUser(ctx, &domain.User{Email: "new@example.com", Username: "Alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.CreateUser(ctx, &domain.User{Email: "bad", Username: "bad", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	byEmail, err := s.GetUserByEmail(ctx, "  Alice@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bob := MustUser(t, s, "bob")
	MustUser(t, s, "alina")
	found, err := s.SearchUsers(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "alice", found[0].Username)
	assert.Equal(t, "alina", found[1].Username)

	byIDs, err := s.GetUsersByIDs(ctx, []string{alice.ID, bob.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	require.NoError(t, s.AddPoints(ctx, alice.ID, 100))
	require.NoError(t, s.AdjustFollowCounts(ctx, alice.ID, bob.ID, 1))
	alice, err = s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, alice.Points)
	assert.Equal(t, 1, alice.FollowingCount)

	alice.Bio = "eco enthusiast"
	updated, err := s.UpdateUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "eco enthusiast", updated.Bio)
}

func testSessions(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := MustUser(t, s, "alice")
	sess := &domain.Session{UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, sess))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Active(time.Now()))

	require.NoError(t, s.RevokeSession(ctx, sess.ID))
	require.NoError(t, s.RevokeSession(ctx, sess.ID))
	got, err = s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, got.Active(time.Now()))

	assert.ErrorIs(t, s.RevokeSession(ctx, "missing"), domain.ErrNotFound)
}

func testPostCounters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := MustUser(t, s, "alice")
	reader := MustUser(t, s, "bob")
	post := MustPost(t, s, author.ID, "Planted a tree today")

	require.NoError(t, s.LikePost(ctx, post.ID, reader.ID))
	err := s.LikePost(ctx, post.ID, reader.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "post is already liked", err.Error())

	_, err = s.CreateRepost(ctx, &domain.Repost{PostID: post.ID, UserID: reader.ID, Quote: "nice"})
	require.NoError(t, err)
	_, err = s.CreateRepost(ctx, &domain.Repost{PostID: post.ID, UserID: reader.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: reader.ID, Content: "Great!"})
	require.NoError(t, err)

	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 1, got.RepostsCount)
	assert.Equal(t, 1, got.CommentsCount)

	require.NoError(t, s.UnlikePost(ctx, post.ID, reader.ID))
	assert.ErrorIs(t, s.UnlikePost(ctx, post.ID, reader.ID), domain.ErrNotFound)
	require.NoError(t, s.DeleteRepost(ctx, post.ID, reader.ID))

	got, err = s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikesCount)
	assert.Equal(t, 0, got.RepostsCount)

	assert.ErrorIs(t, s.LikePost(ctx, "missing", reader.ID), domain.ErrNotFound)
}

func testCommentReplies(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := MustUser(t, s, "alice")
	post := MustPost(t, s, author.ID, "Compost tips?")
	other := MustPost(t, s, author.ID, "Another post")

	parent, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Content: "Parent"})
	require.NoError(t, err)
	child, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &parent.ID, AuthorID: author.ID, Content: "Child"})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &child.ID, AuthorID: author.ID, Content: "Grandchild"})
	require.NoError(t, err)
	keep, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Content: "Keep"})
	require.NoError(t, err)

	// Родитель из другого поста не подходит
	_, err = s.CreateComment(ctx, &domain.Comment{PostID: other.ID, ParentID: &parent.ID, AuthorID: author.ID, Content: "Wrong"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Content: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	comments, err := s.ListComments(ctx, post.ID, storage.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, comments, 4)

	// Удаляется вся ветка ответов, включая внуков
	require.NoError(t, s.DeleteComment(ctx, parent.ID))
	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)

	comments, err = s.ListComments(ctx, post.ID, storage.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, keep.ID, comments[0].ID)
}

func testListPostsFilters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	bob := MustUser(t, s, "bob")
	p1 := MustPost(t, s, alice.ID, "#zerowaste week", "zerowaste")
	p2 := MustPost(t, s, bob.ID, "bike to work #zerowaste", "zerowaste")
	p3 := MustPost(t, s, bob.ID, "no tags here")

	tagged, err := s.ListPosts(ctx, storage.PostFilter{Hashtag: "zerowaste"}, storage.Page{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, postIDs(tagged))

	byBob, err := s.ListPosts(ctx, storage.PostFilter{AuthorIDs: []string{bob.ID}}, storage.Page{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p2.ID, p3.ID}, postIDs(byBob))

	page, err := s.ListPosts(ctx, storage.PostFilter{}, storage.Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	rest, err := s.ListPosts(ctx, storage.PostFilter{}, storage.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	_, err = s.CreatePost(ctx, &domain.Post{AuthorID: "missing", Content: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDeletePostCascades(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	post := MustPost(t, s, alice.ID, "to be deleted #gone", "gone")
	_, err := s.CreateBookmark(ctx, &domain.Bookmark{UserID: alice.ID, PostID: post.ID})
	require.NoError(t, err)
	require.NoError(t, s.LikePost(ctx, post.ID, alice.ID))

	require.NoError(t, s.DeletePost(ctx, post.ID))
	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), domain.ErrNotFound)

	bookmarks, err := s.ListBookmarks(ctx, alice.ID, nil, storage.Page{})
	require.NoError(t, err)
	assert.Empty(t, bookmarks)

	tagged, err := s.ListPosts(ctx, storage.PostFilter{Hashtag: "gone"}, storage.Page{})
	require.NoError(t, err)
	assert.Empty(t, tagged)
}

func testCollections(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	post := MustPost(t, s, alice.ID, "recycling guide")

	c, err := s.CreateCollection(ctx, &domain.Collection{UserID: alice.ID, Name: "Guides"})
	require.NoError(t, err)
	_, err = s.CreateCollection(ctx, &domain.Collection{UserID: alice.ID, Name: "Guides"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	b, err := s.CreateBookmark(ctx, &domain.Bookmark{UserID: alice.ID, PostID: post.ID, CollectionID: &c.ID})
	require.NoError(t, err)
	require.NotNil(t, b.CollectionID)
	_, err = s.CreateBookmark(ctx, &domain.Bookmark{UserID: alice.ID, PostID: post.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	inCollection, err := s.ListBookmarks(ctx, alice.ID, &c.ID, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, inCollection, 1)

	// Удаление коллекции сохраняет закладки
	require.NoError(t, s.DeleteCollection(ctx, c.ID))
	all, err := s.ListBookmarks(ctx, alice.ID, nil, storage.Page{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].CollectionID)

	missing := "missing"
	_, err = s.MoveBookmark(ctx, alice.ID, post.ID, &missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testFollows(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	bob := MustUser(t, s, "bob")

	require.NoError(t, s.CreateFollow(ctx, alice.ID, bob.ID))
	assert.ErrorIs(t, s.CreateFollow(ctx, alice.ID, bob.ID), domain.ErrConflict)
	assert.ErrorIs(t, s.CreateFollow(ctx, alice.ID, "missing"), domain.ErrNotFound)

	following, err := s.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followers, err := s.ListFollowers(ctx, bob.ID, storage.Page{})
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)

	ids, err := s.FollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, ids)

	require.NoError(t, s.DeleteFollow(ctx, alice.ID, bob.ID))
	assert.ErrorIs(t, s.DeleteFollow(ctx, alice.ID, bob.ID), domain.ErrNotFound)
}

func testNotifications(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	bob := MustUser(t, s, "bob")

	n1, err := s.CreateNotification(ctx, &domain.Notification{UserID: alice.ID, ActorID: bob.ID, Type: domain.NotificationLike})
	require.NoError(t, err)
	_, err = s.CreateNotification(ctx, &domain.Notification{UserID: alice.ID, ActorID: bob.ID, Type: domain.NotificationFollow})
	require.NoError(t, err)

	count, err := s.CountUnreadNotifications(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Чужое уведомление выглядит как отсутствующее
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, n1.ID, bob.ID), domain.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, n1.ID, alice.ID))
	require.NoError(t, s.MarkNotificationRead(ctx, n1.ID, alice.ID))

	unread, err := s.ListNotifications(ctx, alice.ID, true, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	updated, err := s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
}

func testConversations(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	bob := MustUser(t, s, "bob")

	conv, created, err := s.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// Порядок участников не важен
	again, created, err := s.GetOrCreateConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	_, _, err = s.GetOrCreateConversation(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.CreateMessage(ctx, &domain.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: "hi"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, &domain.Message{ConversationID: conv.ID, SenderID: bob.ID, Content: "hello"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, &domain.Message{ConversationID: conv.ID, SenderID: bob.ID, Content: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	msgs, err := s.ListMessages(ctx, conv.ID, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	read, err := s.MarkConversationRead(ctx, conv.ID, alice.ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, read)

	list, err := s.ListConversations(ctx, bob.ID, storage.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)
}

func testInvites(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	bob := MustUser(t, s, "bob")
	carol := MustUser(t, s, "carol")

	require.NoError(t, s.CreateInvites(ctx, []*domain.Invite{{Code: "ABCD2345", InviterID: alice.ID}}))

	// Пакет с занятым кодом не вставляется целиком
	err := s.CreateInvites(ctx, []*domain.Invite{
		{Code: "WXYZ6789", InviterID: alice.ID},
		{Code: "ABCD2345", InviterID: alice.ID},
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	taken, err := s.InviteCodeExists(ctx, "WXYZ6789")
	require.NoError(t, err)
	assert.False(t, taken)

	active, err := s.FindActiveInvite(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABCD2345", active.Code)

	_, err = s.RedeemInvite(ctx, "ABCD2345", alice.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrSelfRedemption)

	inv, err := s.RedeemInvite(ctx, "ABCD2345", bob.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, inv.IsUsed)
	require.NotNil(t, inv.InvitedUserID)
	assert.Equal(t, bob.ID, *inv.InvitedUserID)

	_, err = s.RedeemInvite(ctx, "ABCD2345", carol.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrInviteUnavailable)
	_, err = s.RedeemInvite(ctx, "ABCD2345", alice.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrSelfRedemption)
	_, err = s.RedeemInvite(ctx, "NOPE0000", bob.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindActiveInvite(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func mustProduct(t *testing.T, s storage.Storage, sellerID string, stock int) *domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), &domain.Product{
		SellerID: sellerID, Title: "Bamboo toothbrush", PriceCents: 450, Currency: "usd", Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func newOrder(p *domain.Product, buyerID string, qty int) *domain.Order {
	return &domain.Order{
		BuyerID:        buyerID,
		SellerID:       p.SellerID,
		ProductID:      p.ID,
		Quantity:       qty,
		UnitPriceCents: p.PriceCents,
		TotalCents:     p.PriceCents * int64(qty),
		Currency:       p.Currency,
		OrderStatus:    domain.OrderPending,
		PaymentStatus:  domain.PaymentPending,
	}
}

func testOrders(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller")
	buyer := MustUser(t, s, "buyer")
	product := mustProduct(t, s, seller.ID, 3)

	_, err := s.CreateOrder(ctx, newOrder(product, buyer.ID, 4))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	order, err := s.CreateOrder(ctx, newOrder(product, buyer.ID, 2))
	require.NoError(t, err)
	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	// Условное обновление со старым статусом отклоняется
	_, err = s.UpdateOrderStatus(ctx, order.ID, domain.OrderShipped, domain.OrderFulfilled)
	assert.ErrorIs(t, err, domain.ErrStaleOrder)
	updated, err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderPending, domain.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, updated.OrderStatus)
	_, err = s.UpdateOrderStatus(ctx, "missing", domain.OrderPending, domain.OrderShipped)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.CancelOrderRestock(ctx, order.ID), domain.ErrStaleOrder)

	second, err := s.CreateOrder(ctx, newOrder(product, buyer.ID, 1))
	require.NoError(t, err)
	require.NoError(t, s.CancelOrderRestock(ctx, second.ID))
	got, err = s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	byBuyer, err := s.ListOrders(ctx, storage.OrderFilter{BuyerID: buyer.ID}, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, byBuyer, 2)

	// Неактивный товар нельзя заказать
	inactive, restock := false, 10
	_, err = s.UpdateProduct(ctx, product.ID, storage.ProductPatch{IsActive: &inactive, Stock: &restock})
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, newOrder(product, buyer.ID, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	listed, err := s.ListProducts(ctx, storage.ProductFilter{}, storage.Page{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	listed, err = s.ListProducts(ctx, storage.ProductFilter{SellerID: seller.ID, IncludeInactive: true}, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func testProductPatchKeepsStock(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller")
	buyer := MustUser(t, s, "buyer")
	product := mustProduct(t, s, seller.ID, 5)

	// Копия, прочитанная до заказа, не должна вернуть старый остаток
	stale, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, newOrder(stale, buyer.ID, 2))
	require.NoError(t, err)

	title := "Bamboo toothbrush, set of 4"
	updated, err := s.UpdateProduct(ctx, stale.ID, storage.ProductPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, stale.PriceCents, updated.PriceCents)

	inactive := false
	_, err = s.UpdateProduct(ctx, stale.ID, storage.ProductPatch{IsActive: &inactive})
	require.NoError(t, err)
	got, err := s.GetProduct(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, title, got.Title)

	zero := int64(0)
	_, err = s.UpdateProduct(ctx, stale.ID, storage.ProductPatch{PriceCents: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = s.UpdateProduct(ctx, "missing", storage.ProductPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testPaymentStatus(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller")
	buyer := MustUser(t, s, "buyer")
	order, err := s.CreateOrder(ctx, newOrder(mustProduct(t, s, seller.ID, 5), buyer.ID, 1))
	require.NoError(t, err)

	require.NoError(t, s.SetPaymentIntent(ctx, order.ID, "pi_123"))

	changed, err := s.SetPaymentStatus(ctx, order.ID, domain.PaymentCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.SetPaymentStatus(ctx, order.ID, domain.PaymentCompleted)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.SetPaymentStatus(ctx, "missing", domain.PaymentCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", got.PaymentIntentID)
	assert.Equal(t, domain.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
}

func testWebhookEvents(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seen, err := s.WebhookEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.RecordWebhookEvent(ctx, &domain.WebhookEvent{ID: "evt_1", Type: domain.EventPaymentSucceeded}))
	seen, err = s.WebhookEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	err = s.RecordWebhookEvent(ctx, &domain.WebhookEvent{ID: "evt_1", Type: domain.EventPaymentSucceeded})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func testWishlist(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller")
	buyer := MustUser(t, s, "buyer")
	product := mustProduct(t, s, seller.ID, 1)

	require.NoError(t, s.AddWishlistItem(ctx, buyer.ID, product.ID))
	assert.ErrorIs(t, s.AddWishlistItem(ctx, buyer.ID, product.ID), domain.ErrConflict)
	assert.ErrorIs(t, s.AddWishlistItem(ctx, buyer.ID, "missing"), domain.ErrNotFound)

	items, err := s.ListWishlist(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, product.ID, items[0].ID)

	require.NoError(t, s.RemoveWishlistItem(ctx, buyer.ID, product.ID))
	assert.ErrorIs(t, s.RemoveWishlistItem(ctx, buyer.ID, product.ID), domain.ErrNotFound)
}

func testTasks(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := MustUser(t, s, "alice")

	_, err := s.CreateTask(ctx, &domain.Task{Title: "Too generous", Points: 5000})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	task, err := s.CreateTask(ctx, &domain.Task{Title: "Pick up litter", Points: 20, CreatedBy: "admin"})
	require.NoError(t, err)
	assert.True(t, task.IsActive)

	tasks, err := s.ListTasks(ctx, true)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, s.CompleteTask(ctx, &domain.TaskCompletion{TaskID: task.ID, UserID: u.ID, PointsAwarded: task.Points}))
	err = s.CompleteTask(ctx, &domain.TaskCompletion{TaskID: task.ID, UserID: u.ID, PointsAwarded: task.Points})
	assert.ErrorIs(t, err, domain.ErrConflict)
	err = s.CompleteTask(ctx, &domain.TaskCompletion{TaskID: "missing", UserID: u.ID, PointsAwarded: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func postIDs(posts []*domain.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
