package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
)

// Postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextRepr     = "22P02" // malformed uuid
)

// dbError maps driver errors to the core ones: missing rows and dangling references to notFound,
// unique violations to core.ErrConflict (with the constraint name).
func dbError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return errors.WithMessage(core.ErrConflict, pqErr.Constraint)
		case foreignKeyViolation, invalidTextRepr:
			return notFound
		}
	}
	return err
}

// affected returns notFound if res did not touch any row.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// where accumulates the conditions of a query, numbering the placeholders.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, its "?" standing for arg.
func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders orderings on the columns of table, dropping the fields not in columns.
// Nulls sort last whatever the direction.
func orderBy(table string, orderings []core.DBOrdering, columns ...string) string {
	clauses := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		for _, col := range columns {
			if ord.Field == col {
				clauses = append(clauses, table+"."+ord.String()+" NULLS LAST")
				break
			}
		}
	}
	return strings.Join(clauses, ", ")
}
