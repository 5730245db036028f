package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect describes the backend-specific parts of the task store.
type Dialect struct {
	// Name is used in logs and as the goose dialect.
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// MapError translates driver errors into store and domain errors.
	MapError func(err error) error
}

// DollarPlaceholder renders $1, $2, ...
func DollarPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// QuestionPlaceholder renders ? for every parameter.
func QuestionPlaceholder(int) string {
	return "?"
}

// bind replaces each ? in query with the dialect's placeholder.
// Queries in this package never contain a literal ?.
func (d Dialect) bind(query string) string {
	if d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) mapError(err error) error {
	if err == nil || d.MapError == nil {
		return err
	}
	return d.MapError(err)
}
