package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
)

var (
	orderingParam = "ordering"

	yearOrderingFields = []string{"name", "start_date", "end_date", "created_at"}
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the "?ordering=-start_date,name" query param, dropping the fields not in allowed.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrderings(ctx.QueryParam(orderingParam), allowed...)
}

// bind binds the query params (`query` tags) and JSON body of the request to dest.
func bind(ctx echo.Context, dest interface{}, what string) error {
	if err := ctx.Bind(dest); err != nil {
		return errors.Wrap(err, "binding to "+what)
	}
	return nil
}
