package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID *dataloader.Loader
}

// NewLoaders создает лоадеры, живущие в пределах одного запроса.
func NewLoaders(store storage.Users) *Loaders {
	// Батч-функция: один запрос к хранилищу на все накопленные ключи
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()
		users, err := store.GetUsersByIDs(ctx, ids)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: users[id]}
		}
		return results
	}

	return &Loaders{
		UserByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Users) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// Users загружает пользователей по id. Отсутствующие пользователи
// в результат не попадают.
func (l *Loaders) Users(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	if len(ids) == 0 {
		return map[string]*domain.User{}, nil
	}
	values, errs := l.UserByID.LoadMany(ctx, dataloader.NewKeysFromStrings(ids))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	users := make(map[string]*domain.User, len(ids))
	for i, v := range values {
		if u, ok := v.(*domain.User); ok && u != nil {
			users[ids[i]] = u
		}
	}
	return users, nil
}
