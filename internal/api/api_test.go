package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UkralStul/ecosocial/internal/auth"
	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/invite"
	"github.com/UkralStul/ecosocial/internal/payment"
	"github.com/UkralStul/ecosocial/internal/realtime"
	"github.com/UkralStul/ecosocial/internal/storage/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	webhookSecret = "whsec_test"
	adminKey      = "admin-key"
)

type testEnv struct {
	t       *testing.T
	srv     *httptest.Server
	handler http.Handler
	store   *inmemory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := inmemory.New()
	server := New(Deps{
		Store:    store,
		Auth:     auth.New(store, auth.NewTokens("test-secret", time.Hour), time.Hour, false),
		Invites:  invite.NewService(store),
		Payments: payment.NewService(store, nil, payment.NewVerifier(webhookSecret)),
		Hub:      realtime.NewHub(),
		AdminKey: adminKey,
		Currency: "usd",
	})
	handler := server.Routes()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{t: t, srv: srv, handler: handler, store: store}
}

// do выполняет запрос и декодирует ответ в out, если он не nil.
func (e *testEnv) do(client *http.Client, method, path, token string, body any, out any) int {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) call(method, path, token string, body any, out any) int {
	e.t.Helper()
	return e.do(http.DefaultClient, method, path, token, body, out)
}

type session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func (e *testEnv) register(username string) session {
	e.t.Helper()
	var s session
	status := e.call(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    username + "@example.com",
		"username": username,
		"password": "correct horse",
	}, &s)
	require.Equal(e.t, http.StatusCreated, status)
	require.NotEmpty(e.t, s.Token)
	return s
}

func TestAuth_BearerFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")

	var me domain.User
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/users/me", alice.Token, nil, &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "alice@example.com", me.Email)

	var errResp errorResponse
	require.Equal(t, http.StatusUnauthorized, env.call(http.MethodGet, "/users/me", "", nil, &errResp))
	assert.Equal(t, "authentication required", errResp.Error)

	require.Equal(t, http.StatusUnauthorized, env.call(http.MethodGet, "/users/me", "garbage", nil, nil))

	var login session
	status := env.call(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ALICE@example.com", "password": "correct horse",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice.User.ID, login.User.ID)

	status = env.call(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong password",
	}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", errResp.Error)

	status = env.call(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "whatever1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuth_CookieSession(t *testing.T) {
	env := newTestEnv(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	status := env.do(client, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "carol@example.com", "username": "carol", "password": "correct horse",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var me domain.User
	require.Equal(t, http.StatusOK, env.do(client, http.MethodGet, "/users/me", "", nil, &me))
	assert.Equal(t, "carol", me.Username)

	require.Equal(t, http.StatusNoContent, env.do(client, http.MethodPost, "/auth/logout", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, env.do(client, http.MethodGet, "/users/me", "", nil, nil))
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice")

	var errResp errorResponse
	status := env.call(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "short@example.com", "username": "shorty", "password": "123",
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, errResp.Error)

	status = env.call(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "other@example.com", "username": "alice", "password": "correct horse",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/auth/register", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPosts_SocialFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")

	var post domain.Post
	status := env.call(http.MethodPost, "/posts", alice.Token, map[string]string{
		"content": "Planting trees today #Eco with @bob",
	}, &post)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, []string{"eco"}, []string(post.Hashtags))
	assert.Equal(t, []string{"bob"}, []string(post.Mentions))
	require.NotNil(t, post.Author)
	assert.Equal(t, "alice", post.Author.Username)

	// Упоминание создало уведомление для bob
	var unread map[string]int64
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/notifications/unread-count", bob.Token, nil, &unread))
	assert.Equal(t, int64(1), unread["unread"])

	var counters countersResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/posts/"+post.ID+"/like", bob.Token, nil, &counters))
	assert.Equal(t, 1, counters.LikesCount)
	assert.Equal(t, http.StatusConflict, env.call(http.MethodPost, "/posts/"+post.ID+"/like", bob.Token, nil, nil))

	var comment domain.Comment
	status = env.call(http.MethodPost, "/posts/"+post.ID+"/comments", bob.Token, map[string]string{"content": "Count me in"}, &comment)
	require.Equal(t, http.StatusCreated, status)

	var fetched domain.Post
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/posts/"+post.ID, "", nil, &fetched))
	assert.Equal(t, 1, fetched.LikesCount)
	assert.Equal(t, 1, fetched.CommentsCount)

	var comments []domain.Comment
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/posts/"+post.ID+"/comments", "", nil, &comments))
	require.Len(t, comments, 1)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "bob", comments[0].Author.Username)

	// Лайк и комментарий - два уведомления для alice
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/notifications/unread-count", alice.Token, nil, &unread))
	assert.Equal(t, int64(2), unread["unread"])

	var byTag []domain.Post
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/hashtags/eco/posts", "", nil, &byTag))
	require.Len(t, byTag, 1)
	assert.Equal(t, post.ID, byTag[0].ID)

	var feed []domain.Post
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/posts/feed", bob.Token, nil, &feed))
	assert.Empty(t, feed)
	require.Equal(t, http.StatusNoContent, env.call(http.MethodPost, "/users/alice/follow", bob.Token, nil, nil))
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/posts/feed", bob.Token, nil, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, post.ID, feed[0].ID)

	var profile struct {
		Username       string        `json:"username"`
		Email          string        `json:"email"`
		FollowersCount int           `json:"followers_count"`
		IsFollowing    bool          `json:"is_following"`
		RecentPosts    []domain.Post `json:"recent_posts"`
	}
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/users/alice", bob.Token, nil, &profile))
	assert.True(t, profile.IsFollowing)
	assert.Equal(t, 1, profile.FollowersCount)
	assert.Empty(t, profile.Email)
	assert.Len(t, profile.RecentPosts, 1)

	assert.Equal(t, http.StatusForbidden, env.call(http.MethodDelete, "/posts/"+post.ID, bob.Token, nil, nil))
	assert.Equal(t, http.StatusNoContent, env.call(http.MethodDelete, "/posts/"+post.ID, alice.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(http.MethodGet, "/posts/"+post.ID, "", nil, nil))
}

func TestComments_MentionNotifies(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")

	var post domain.Post
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/posts", alice.Token, map[string]string{"content": "Beach cleanup on Sunday"}, &post))
	status := env.call(http.MethodPost, "/posts/"+post.ID+"/comments", bob.Token, map[string]string{
		"content": "@carol join us, @alice thanks",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var list []domain.Notification
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/notifications", carol.Token, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationMention, list[0].Type)
	assert.Equal(t, post.ID, list[0].EntityID)
	assert.Equal(t, "bob mentioned you in a comment", list[0].Message)

	// Автор поста получает одно уведомление о комментарии, без дубля-упоминания
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/notifications", alice.Token, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationComment, list[0].Type)
}

// chunkedEmpty отправляет запрос с пустым телом без Content-Length.
func (e *testEnv) chunkedEmpty(method, path, token string) int {
	e.t.Helper()
	req := httptest.NewRequest(method, path, io.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestOptionalBody_ChunkedEmpty(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")

	var post domain.Post
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/posts", alice.Token, map[string]string{"content": "refill station opened"}, &post))

	assert.Equal(t, http.StatusCreated, env.chunkedEmpty(http.MethodPost, "/posts/"+post.ID+"/repost", bob.Token))
	assert.Equal(t, http.StatusCreated, env.chunkedEmpty(http.MethodPost, "/posts/"+post.ID+"/bookmark", bob.Token))

	// Битое тело по-прежнему отклоняется
	req := httptest.NewRequest(http.MethodPost, "/posts/"+post.ID+"/repost", strings.NewReader("{oops"))
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollow_Self(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	assert.Equal(t, http.StatusBadRequest, env.call(http.MethodPost, "/users/alice/follow", alice.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(http.MethodPost, "/users/ghost/follow", alice.Token, nil, nil))
}

func TestTrending(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")

	var quiet, popular domain.Post
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/posts", alice.Token, map[string]string{"content": "quiet #compost"}, &quiet))
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/posts", alice.Token, map[string]string{"content": "popular #solar"}, &popular))
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/posts/"+popular.ID+"/repost", bob.Token, nil, nil))

	var posts []domain.Post
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/posts/trending", "", nil, &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, popular.ID, posts[0].ID)

	var tags []struct {
		Tag   string `json:"tag"`
		Score int    `json:"score"`
	}
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/hashtags/trending?limit=1", "", nil, &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "solar", tags[0].Tag)
}

func TestBookmarks_Collections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")

	var post domain.Post
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/posts", alice.Token, map[string]string{"content": "bike to work"}, &post))

	var coll domain.Collection
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/collections", bob.Token, map[string]string{"name": "Ideas"}, &coll))

	// Чужая коллекция недоступна
	status := env.call(http.MethodPost, "/posts/"+post.ID+"/bookmark", alice.Token, map[string]string{"collection_id": coll.ID}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = env.call(http.MethodPost, "/posts/"+post.ID+"/bookmark", bob.Token, map[string]string{"collection_id": coll.ID}, nil)
	require.Equal(t, http.StatusCreated, status)

	var bookmarks []domain.Bookmark
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/bookmarks?collection_id="+coll.ID, bob.Token, nil, &bookmarks))
	require.Len(t, bookmarks, 1)
	require.NotNil(t, bookmarks[0].Post)
	assert.Equal(t, "bike to work", bookmarks[0].Post.Content)

	require.Equal(t, http.StatusNoContent, env.call(http.MethodDelete, "/collections/"+coll.ID, bob.Token, nil, nil))
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/bookmarks", bob.Token, nil, &bookmarks))
	require.Len(t, bookmarks, 1)
	assert.Nil(t, bookmarks[0].CollectionID)
}

func TestConversations(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")
	eve := env.register("eve")

	var conv struct {
		ID          string              `json:"id"`
		Participant *domain.UserSummary `json:"participant"`
	}
	status := env.call(http.MethodPost, "/conversations", alice.Token, map[string]string{"participant_id": bob.User.ID}, &conv)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, conv.Participant)
	assert.Equal(t, "bob", conv.Participant.Username)

	var again struct {
		ID string `json:"id"`
	}
	status = env.call(http.MethodPost, "/conversations", bob.Token, map[string]string{"participant_id": alice.User.ID}, &again)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, conv.ID, again.ID)

	assert.Equal(t, http.StatusBadRequest,
		env.call(http.MethodPost, "/conversations", alice.Token, map[string]string{"participant_id": alice.User.ID}, nil))

	path := "/conversations/" + conv.ID + "/messages"
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, path, alice.Token, map[string]string{"content": "hi bob"}, nil))
	assert.Equal(t, http.StatusForbidden, env.call(http.MethodGet, path, eve.Token, nil, nil))

	var messages []domain.Message
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, path, bob.Token, nil, &messages))
	require.Len(t, messages, 1)
	assert.Nil(t, messages[0].ReadAt)

	var read map[string]int64
	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/conversations/"+conv.ID+"/read", bob.Token, nil, &read))
	assert.Equal(t, int64(1), read["updated"])
}

func TestInvites_RegisterWithCode(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")

	var inv domain.Invite
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/invites", alice.Token, nil, &inv))
	require.Len(t, inv.Code, invite.CodeLength)

	var check inviteCheckResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/invites/"+inv.Code, "", nil, &check))
	assert.True(t, check.Valid)
	assert.Equal(t, "alice", check.Inviter.Username)

	var bob session
	status := env.call(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "bob@example.com", "username": "bob", "password": "correct horse", "invite_code": inv.Code,
	}, &bob)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, domain.InviteBonusPoints, bob.User.Points)

	var me domain.User
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/users/me", alice.Token, nil, &me))
	assert.Equal(t, domain.InviteBonusPoints, me.Points)

	assert.Equal(t, http.StatusNotFound, env.call(http.MethodGet, "/invites/"+inv.Code, "", nil, nil))
	status = env.call(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "dan@example.com", "username": "dan", "password": "correct horse", "invite_code": inv.Code,
	}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestInvites_SelfRedemption(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")

	var inv domain.Invite
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/invites", alice.Token, nil, &inv))
	status := env.call(http.MethodPost, "/invites/redeem", alice.Token, map[string]string{"code": inv.Code}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var bulk []domain.Invite
	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/invites/bulk", alice.Token, map[string]int{"count": 3}, &bulk))
	assert.Len(t, bulk, 3)
	assert.Equal(t, http.StatusBadRequest, env.call(http.MethodPost, "/invites/bulk", alice.Token, map[string]int{"count": 0}, nil))
}

type marketFixture struct {
	env     *testEnv
	seller  session
	buyer   session
	product domain.Product
}

func newMarketFixture(t *testing.T) *marketFixture {
	env := newTestEnv(t)
	f := &marketFixture{env: env, seller: env.register("seller"), buyer: env.register("buyer")}
	status := env.call(http.MethodPost, "/products", f.seller.Token, map[string]any{
		"title": "Bamboo toothbrush", "price_cents": 1250, "stock": 2,
	}, &f.product)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "usd", f.product.Currency)
	return f
}

func (f *marketFixture) stock(t *testing.T) int {
	var p domain.Product
	require.Equal(t, http.StatusOK, f.env.call(http.MethodGet, "/products/"+f.product.ID, "", nil, &p))
	return p.Stock
}

func (f *marketFixture) order(t *testing.T, qty int) domain.Order {
	var o domain.Order
	status := f.env.call(http.MethodPost, "/orders", f.buyer.Token, map[string]any{"product_id": f.product.ID, "quantity": qty}, &o)
	require.Equal(t, http.StatusCreated, status)
	return o
}

func TestOrders_StockAndCancel(t *testing.T) {
	f := newMarketFixture(t)
	env := f.env

	order := f.order(t, 2)
	assert.Equal(t, int64(2500), order.TotalCents)
	assert.Equal(t, domain.OrderPending, order.OrderStatus)
	assert.Equal(t, 0, f.stock(t))

	var errResp errorResponse
	status := env.call(http.MethodPost, "/orders", f.buyer.Token, map[string]any{"product_id": f.product.ID, "quantity": 1}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient stock", errResp.Error)

	status = env.call(http.MethodPatch, "/orders/"+order.ID, f.buyer.Token, map[string]string{"payment_status": "completed"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.call(http.MethodPatch, "/orders/"+order.ID, f.buyer.Token, map[string]string{"order_status": "shipped"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var cancelled domain.Order
	status = env.call(http.MethodPatch, "/orders/"+order.ID, f.buyer.Token, map[string]string{"order_status": "cancelled"}, &cancelled)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.OrderCancelled, cancelled.OrderStatus)
	assert.Equal(t, 2, f.stock(t))

	var sellerOrders []domain.Order
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/orders?role=seller", f.seller.Token, nil, &sellerOrders))
	assert.Len(t, sellerOrders, 1)
	assert.Equal(t, http.StatusBadRequest, env.call(http.MethodGet, "/orders?role=admin", f.seller.Token, nil, nil))
}

func TestOrders_SellerStatusAndAccess(t *testing.T) {
	f := newMarketFixture(t)
	env := f.env
	outsider := env.register("outsider")
	order := f.order(t, 1)

	assert.Equal(t, http.StatusForbidden, env.call(http.MethodGet, "/orders/"+order.ID, outsider.Token, nil, nil))
	assert.Equal(t, http.StatusForbidden,
		env.call(http.MethodPatch, "/orders/"+order.ID, outsider.Token, map[string]string{"order_status": "shipped"}, nil))

	var shipped domain.Order
	require.Equal(t, http.StatusOK,
		env.call(http.MethodPatch, "/orders/"+order.ID, f.seller.Token, map[string]string{"order_status": "shipped"}, &shipped))
	assert.Equal(t, domain.OrderShipped, shipped.OrderStatus)
	assert.Equal(t, domain.PaymentPending, shipped.PaymentStatus)

	assert.Equal(t, http.StatusBadRequest, env.call(http.MethodPost, "/orders", f.seller.Token,
		map[string]any{"product_id": f.product.ID, "quantity": 1}, nil))
}

func signedEvent(t *testing.T, eventID, eventType, orderID string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2023-10-16",
		"type": %q,
		"data": {"object": {"id": "pi_test", "object": "payment_intent", "metadata": {"order_id": %q}}}
	}`, eventID, eventType, orderID))
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func (e *testEnv) postWebhook(payload []byte, signature string, out any) int {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/webhooks/stripe", bytes.NewReader(payload))
	require.NoError(e.t, err)
	req.Header.Set("Stripe-Signature", signature)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStripeWebhook(t *testing.T) {
	f := newMarketFixture(t)
	env := f.env
	order := f.order(t, 1)

	payload, sig := signedEvent(t, "evt_1", domain.EventPaymentSucceeded, order.ID)
	var ack map[string]bool
	require.Equal(t, http.StatusOK, env.postWebhook(payload, sig, &ack))
	assert.True(t, ack["received"])
	assert.False(t, ack["duplicate"])

	var stored domain.Order
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/orders/"+order.ID, f.buyer.Token, nil, &stored))
	assert.Equal(t, domain.PaymentCompleted, stored.PaymentStatus)

	require.Equal(t, http.StatusOK, env.postWebhook(payload, sig, &ack))
	assert.True(t, ack["duplicate"])

	// Неверная подпись не меняет заказ
	failed, _ := signedEvent(t, "evt_2", domain.EventPaymentFailed, order.ID)
	assert.Equal(t, http.StatusBadRequest, env.postWebhook(failed, "t=1,v1=deadbeef", nil))
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/orders/"+order.ID, f.buyer.Token, nil, &stored))
	assert.Equal(t, domain.PaymentCompleted, stored.PaymentStatus)

	unknown, sig := signedEvent(t, "evt_3", domain.EventPaymentSucceeded, "missing-order")
	require.Equal(t, http.StatusOK, env.postWebhook(unknown, sig, &ack))
	assert.True(t, ack["ignored"])
}

func TestWishlist_PublishesEvents(t *testing.T) {
	f := newMarketFixture(t)
	env := f.env

	require.Equal(t, http.StatusNoContent, env.call(http.MethodPost, "/wishlist/"+f.product.ID, f.buyer.Token, nil, nil))
	assert.Equal(t, http.StatusConflict, env.call(http.MethodPost, "/wishlist/"+f.product.ID, f.buyer.Token, nil, nil))

	var items []domain.Product
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/wishlist", f.buyer.Token, nil, &items))
	require.Len(t, items, 1)

	require.Equal(t, http.StatusNoContent, env.call(http.MethodDelete, "/wishlist/"+f.product.ID, f.buyer.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(http.MethodDelete, "/wishlist/"+f.product.ID, f.buyer.Token, nil, nil))
}

func TestProducts_SellerOnly(t *testing.T) {
	f := newMarketFixture(t)
	env := f.env

	status := env.call(http.MethodPatch, "/products/"+f.product.ID, f.buyer.Token, map[string]int{"stock": 10}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var updated domain.Product
	status = env.call(http.MethodPatch, "/products/"+f.product.ID, f.seller.Token, map[string]int{"stock": 10}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10, updated.Stock)
	assert.Equal(t, "Bamboo toothbrush", updated.Title)

	require.Equal(t, http.StatusNoContent, env.call(http.MethodDelete, "/products/"+f.product.ID, f.seller.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(http.MethodGet, "/products/"+f.product.ID, f.buyer.Token, nil, nil))
	assert.Equal(t, http.StatusOK, env.call(http.MethodGet, "/products/"+f.product.ID, f.seller.Token, nil, nil))

	var listed []domain.Product
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/products", "", nil, &listed))
	assert.Empty(t, listed)
}

func TestProducts_PatchKeepsSoldStock(t *testing.T) {
	f := newMarketFixture(t)
	env := f.env
	f.order(t, 1)

	var updated domain.Product
	status := env.call(http.MethodPatch, "/products/"+f.product.ID, f.seller.Token, map[string]string{"title": "Bamboo toothbrush, soft"}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bamboo toothbrush, soft", updated.Title)
	assert.Equal(t, 1, updated.Stock)

	require.Equal(t, http.StatusNoContent, env.call(http.MethodDelete, "/products/"+f.product.ID, f.seller.Token, nil, nil))
	var got domain.Product
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/products/"+f.product.ID, f.seller.Token, nil, &got))
	assert.False(t, got.IsActive)
	assert.Equal(t, 1, got.Stock)
}

func TestTasks_AdminAndCompletion(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	body := map[string]any{"title": "Pick up litter", "points": 25}

	assert.Equal(t, http.StatusForbidden, env.call(http.MethodPost, "/admin/tasks", alice.Token, body, nil))

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/admin/tasks", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set(auth.AdminKeyHeader, adminKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var task domain.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tasks []domain.Task
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/tasks", "", nil, &tasks))
	require.Len(t, tasks, 1)

	require.Equal(t, http.StatusCreated, env.call(http.MethodPost, "/tasks/"+task.ID+"/complete", alice.Token, nil, nil))
	assert.Equal(t, http.StatusConflict, env.call(http.MethodPost, "/tasks/"+task.ID+"/complete", alice.Token, nil, nil))

	var me domain.User
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/users/me", alice.Token, nil, &me))
	assert.Equal(t, 25, me.Points)
}

func TestAnnotateText(t *testing.T) {
	env := newTestEnv(t)
	var resp struct {
		Spans []struct {
			Kind  string `json:"kind"`
			Value string `json:"value"`
		} `json:"spans"`
	}
	status := env.call(http.MethodPost, "/text/annotate", "", map[string]string{"text": "hi @alice see https://eco.example.org #green"}, &resp)
	require.Equal(t, http.StatusOK, status)

	var kinds []string
	for _, s := range resp.Spans {
		if s.Kind != "text" {
			kinds = append(kinds, s.Kind+":"+s.Value)
		}
	}
	assert.Equal(t, []string{"mention:alice", "link:https://eco.example.org", "hashtag:green"}, kinds)
}

func TestErrorStatus(t *testing.T) {
	cases := map[error]int{
		domain.Invalidf("bad"):      http.StatusBadRequest,
		auth.ErrBadCredentials:      http.StatusUnauthorized,
		domain.Forbidden("no"):      http.StatusForbidden,
		domain.NotFound("post"):     http.StatusNotFound,
		domain.ErrInsufficientStock: http.StatusConflict,
		io.ErrUnexpectedEOF:         http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	writeError(rec, req, fmt.Errorf("dial tcp: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error)
}
