package storage

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize подставляет значения по умолчанию и ограничивает лимит.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Window возвращает границы среза длины n для страницы.
func (p Page) Window(n int) (start, end int) {
	p = p.Normalize()
	start = p.Offset
	if start > n {
		start = n
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
