package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds limit/offset pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Offset int
}

// Page describes the window that was actually served.
type Page struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	NextOffset *int `json:"next_offset,omitempty"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Normalize clamps both fields into range.
func (p Params) Normalize() Params {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: NormalizeLimit(p.Limit), Offset: offset}
}

// Trim cuts a buffered result set (fetched with LimitWithBuffer) down to the
// page size and reports the next offset when more rows exist.
func Trim[T any](rows []T, params Params) ([]T, Page) {
	params = params.Normalize()
	page := Page{Limit: params.Limit, Offset: params.Offset}
	if len(rows) > params.Limit {
		rows = rows[:params.Limit]
		next := params.Offset + params.Limit
		page.NextOffset = &next
	}
	return rows, page
}
