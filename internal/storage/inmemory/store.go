package inmemory

import (
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
)

type pairKey struct{ a, b string }

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu sync.RWMutex

	users           map[string]*domain.User
	usersByEmail    map[string]string
	usersByUsername map[string]string
	sessions        map[string]*domain.Session

	posts       map[string]*domain.Post
	postsByTag  map[string][]string // map[tag][]postID
	comments    map[string]*domain.Comment
	likes       map[pairKey]*domain.Like // ключ {postID, userID}
	reposts     map[pairKey]*domain.Repost
	collections map[string]*domain.Collection
	bookmarks   map[pairKey]*domain.Bookmark // ключ {userID, postID}
	follows     map[pairKey]*domain.Follow   // ключ {followerID, followeeID}

	notifications map[string]*domain.Notification
	conversations map[string]*domain.Conversation
	convByPair    map[pairKey]string
	messages      map[string][]*domain.Message // map[conversationID]

	invites       map[string]*domain.Invite // ключ - код
	products      map[string]*domain.Product
	orders        map[string]*domain.Order
	webhookEvents map[string]*domain.WebhookEvent
	wishlist      map[pairKey]*domain.WishlistItem
	tasks         map[string]*domain.Task
	completions   map[pairKey]*domain.TaskCompletion

	now  func() time.Time
	last time.Time
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:           make(map[string]*domain.User),
		usersByEmail:    make(map[string]string),
		usersByUsername: make(map[string]string),
		sessions:        make(map[string]*domain.Session),
		posts:           make(map[string]*domain.Post),
		postsByTag:      make(map[string][]string),
		comments:        make(map[string]*domain.Comment),
		likes:           make(map[pairKey]*domain.Like),
		reposts:         make(map[pairKey]*domain.Repost),
		collections:     make(map[string]*domain.Collection),
		bookmarks:       make(map[pairKey]*domain.Bookmark),
		follows:         make(map[pairKey]*domain.Follow),
		notifications:   make(map[string]*domain.Notification),
		conversations:   make(map[string]*domain.Conversation),
		convByPair:      make(map[pairKey]string),
		messages:        make(map[string][]*domain.Message),
		invites:         make(map[string]*domain.Invite),
		products:        make(map[string]*domain.Product),
		orders:          make(map[string]*domain.Order),
		webhookEvents:   make(map[string]*domain.WebhookEvent),
		wishlist:        make(map[pairKey]*domain.WishlistItem),
		tasks:           make(map[string]*domain.Task),
		completions:     make(map[pairKey]*domain.TaskCompletion),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// tick возвращает монотонно возрастающее время, чтобы сортировка по
// времени создания была стабильной даже при одинаковых метках.
// Вызывать под s.mu.Lock.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

// paginate сортирует items функцией less и вырезает страницу.
func paginate[T any](items []T, page storage.Page, less func(a, b T) bool) []T {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	start, end := page.Window(len(items))
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
