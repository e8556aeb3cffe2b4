package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Dialect captures the differences between the supported SQL servers.
type Dialect struct {
	Name string
	// Returning is true when INSERT ... RETURNING is available
	Returning bool
	numbered  bool
	unique    func(error) bool
}

var (
	Postgres = Dialect{
		Name:      "postgres",
		Returning: true,
		numbered:  true,
		unique: func(err error) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && pqErr.Code == "23505"
		},
	}

	MySQL = Dialect{
		Name: "mysql",
		unique: func(err error) bool {
			var myErr *mysql.MySQLError
			return errors.As(err, &myErr) && myErr.Number == 1062
		},
	}
)

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case Postgres.Name:
		return Postgres, nil
	case MySQL.Name:
		return MySQL, nil
	default:
		return Dialect{}, errors.New("unsupported sql dialect: " + driver)
	}
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func (d Dialect) IsUniqueViolation(err error) bool {
	return err != nil && d.unique != nil && d.unique(err)
}
