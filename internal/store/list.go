package store

import "strings"

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// ListOptions drives the read endpoints. Limit 0 means "everything" and is only used internally.
type ListOptions struct {
	Page     int
	Limit    int
	Sort     string // column, validated by each repository
	Desc     bool
	Status   string
	Search   string
	ParentID uint // purchase order id for receipts, ...
	LowStock *int // inventory: quantity <= value
}

func (o ListOptions) Offset() int {
	if o.Page <= 1 || o.Limit <= 0 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// SortColumn returns o.Sort if it is in allowed, otherwise def.
func (o ListOptions) SortColumn(allowed []string, def string) string {
	s := strings.ToLower(strings.TrimSpace(o.Sort))
	for _, a := range allowed {
		if a == s {
			return a
		}
	}
	return def
}

// Window applies offset/limit to n rows held in memory.
func (o ListOptions) Window(n int) (int, int) {
	start := o.Offset()
	if start > n {
		start = n
	}
	end := n
	if o.Limit > 0 && start+o.Limit < n {
		end = start + o.Limit
	}
	return start, end
}
