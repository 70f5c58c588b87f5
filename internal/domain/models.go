package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

const (
	MaxPostLength    = 5000
	MaxCommentLength = 2000
	MaxMediaPerPost  = 4
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// User представляет пользователя платформы.
type User struct {
	ID             string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email          string    `json:"email,omitempty" gorm:"type:varchar(255);not null;uniqueIndex"`
	Username       string    `json:"username" gorm:"type:varchar(30);not null;uniqueIndex"`
	PasswordHash   string    `json:"-" gorm:"type:varchar(255);not null"`
	DisplayName    string    `json:"display_name" gorm:"type:varchar(100)"`
	Bio            string    `json:"bio" gorm:"type:varchar(500)"`
	AvatarURL      string    `json:"avatar_url" gorm:"type:text"`
	Points         int       `json:"points" gorm:"not null;default:0"`
	FollowersCount int       `json:"followers_count" gorm:"not null;default:0"`
	FollowingCount int       `json:"following_count" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

// UserSummary - короткое представление автора для ответов API.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// Public возвращает копию без приватных полей.
func (u *User) Public() *User {
	c := *u
	c.Email = ""
	return &c
}

func (u *User) Validate() error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return Invalidf("a valid email is required")
	}
	if !usernamePattern.MatchString(u.Username) {
		return Invalidf("username must be 3-30 characters of a-z, 0-9 or _")
	}
	if utf8.RuneCountInString(u.DisplayName) > 100 {
		return Invalidf("display name is too long")
	}
	if utf8.RuneCountInString(u.Bio) > 500 {
		return Invalidf("bio is too long")
	}
	return nil
}

// Session - серверная сессия, на которую ссылается cookie.
type Session struct {
	ID        string     `gorm:"type:varchar(36);primaryKey"`
	UserID    string     `gorm:"type:varchar(36);not null;index"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

// Active сообщает, действительна ли сессия на момент now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// LinkPreview - метаданные превью ссылки, прикрепленной к посту.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Post представляет пост в системе.
type Post struct {
	ID            string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	AuthorID      string                      `json:"author_id" gorm:"type:varchar(36);not null;index"`
	Content       string                      `json:"content" gorm:"type:text;not null"`
	MediaURLs     datatypes.JSONSlice[string] `json:"media_urls"`
	LinkPreview   *LinkPreview                `json:"link_preview,omitempty" gorm:"type:text;serializer:json"`
	Hashtags      datatypes.JSONSlice[string] `json:"hashtags"`
	Mentions      datatypes.JSONSlice[string] `json:"mentions"`
	LikesCount    int                         `json:"likes_count" gorm:"not null;default:0"`
	CommentsCount int                         `json:"comments_count" gorm:"not null;default:0"`
	RepostsCount  int                         `json:"reposts_count" gorm:"not null;default:0"`
	CreatedAt     time.Time                   `json:"created_at" gorm:"not null;index"`
	UpdatedAt     time.Time                   `json:"updated_at" gorm:"not null"`
	Author        *UserSummary                `json:"author,omitempty" gorm:"-"`
}

func (p *Post) Validate() error {
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" && len(p.MediaURLs) == 0 {
		return Invalidf("post content cannot be empty")
	}
	if utf8.RuneCountInString(p.Content) > MaxPostLength {
		return Invalidf("post content is too long")
	}
	if len(p.MediaURLs) > MaxMediaPerPost {
		return Invalidf("a post can have at most %d media items", MaxMediaPerPost)
	}
	if p.LinkPreview != nil && strings.TrimSpace(p.LinkPreview.URL) == "" {
		return Invalidf("link preview url is required")
	}
	return nil
}

// PostHashtag индексирует посты по хэштегам.
type PostHashtag struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey"`
	Tag       string    `gorm:"type:varchar(100);primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID    string       `json:"post_id" gorm:"type:varchar(36);not null;index"`
	ParentID  *string      `json:"parent_id,omitempty" gorm:"type:varchar(36);index"`
	AuthorID  string       `json:"author_id" gorm:"type:varchar(36);not null"`
	Content   string       `json:"content" gorm:"type:varchar(2000);not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	Author    *UserSummary `json:"author,omitempty" gorm:"-"`
}

func (c *Comment) Validate() error {
	if utf8.RuneCountInString(c.Content) > MaxCommentLength {
		return Invalidf("comment content is too long")
	}
	if strings.TrimSpace(c.Content) == "" {
		return Invalidf("comment content cannot be empty")
	}
	return nil
}

// Like - отметка "нравится". Пара (post, user) уникальна.
type Like struct {
	PostID    string    `json:"post_id" gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// Repost - репост с необязательной цитатой.
type Repost struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_repost_post_user"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_repost_post_user"`
	Quote     string    `json:"quote,omitempty" gorm:"type:varchar(1000)"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// Collection - именованная группа закладок пользователя.
type Collection struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID      string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_collection_user_name"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_collection_user_name"`
	Description string    `json:"description" gorm:"type:varchar(500)"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null"`
}

func (c *Collection) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalidf("collection name is required")
	}
	if utf8.RuneCountInString(c.Name) > 100 {
		return Invalidf("collection name is too long")
	}
	if utf8.RuneCountInString(c.Description) > 500 {
		return Invalidf("collection description is too long")
	}
	return nil
}

// Bookmark - закладка на пост, опционально в коллекции.
type Bookmark struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID       string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_bookmark_user_post"`
	PostID       string    `json:"post_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_bookmark_user_post"`
	CollectionID *string   `json:"collection_id" gorm:"type:varchar(36);index"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	Post         *Post     `json:"post,omitempty" gorm:"-"`
}

// Follow - подписка follower -> followee.
type Follow struct {
	FollowerID string    `json:"follower_id" gorm:"type:varchar(36);primaryKey"`
	FolloweeID string    `json:"followee_id" gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

// Notification - уведомление для пользователя UserID от ActorID.
type Notification struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	ActorID   string    `json:"actor_id" gorm:"type:varchar(36)"`
	Type      string    `json:"type" gorm:"type:varchar(30);not null"`
	EntityID  string    `json:"entity_id" gorm:"type:varchar(36)"`
	Message   string    `json:"message" gorm:"type:varchar(500)"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
}

const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationRepost  = "repost"
	NotificationFollow  = "follow"
	NotificationMention = "mention"
	NotificationMessage = "message"
	NotificationOrder   = "order"
	NotificationInvite  = "invite"
)

// Task - экологическое задание, за выполнение которого начисляются баллы.
type Task struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Points      int       `json:"points" gorm:"not null"`
	CreatedBy   string    `json:"created_by" gorm:"type:varchar(100)"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
}

func (t *Task) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return Invalidf("task title is required")
	}
	if t.Points < 1 || t.Points > 1000 {
		return Invalidf("task points must be between 1 and 1000")
	}
	return nil
}

// TaskCompletion фиксирует выполнение задания пользователем (один раз).
type TaskCompletion struct {
	TaskID        string    `json:"task_id" gorm:"type:varchar(36);primaryKey"`
	UserID        string    `json:"user_id" gorm:"type:varchar(36);primaryKey"`
	PointsAwarded int       `json:"points_awarded" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
}
