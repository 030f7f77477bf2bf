package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
)

func TestDBError(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{name: "nil", err: nil, wantKind: nil},
		{name: "no rows", err: errors.Wrap(sql.ErrNoRows, "getting year"), wantKind: academic.ErrNotFound},
		{name: "unique violation", err: &pq.Error{Code: uniqueViolation, Constraint: "academic_year_name_key"}, wantKind: core.ErrConflict},
		{name: "dangling reference", err: &pq.Error{Code: foreignKeyViolation}, wantKind: academic.ErrNotFound},
		{name: "malformed id", err: &pq.Error{Code: invalidTextRepr}, wantKind: academic.ErrNotFound},
		{name: "other", err: boom, wantKind: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dbError(tt.err, academic.ErrNotFound)
			if tt.wantKind == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantKind), "err = %v; want %v", err, tt.wantKind)
		})
	}

	err := dbError(&pq.Error{Code: uniqueViolation, Constraint: "unique_roll_per_class_year"}, academic.ErrNotFound)
	assert.True(t, core.IsRetryable(err))
	assert.Contains(t, err.Error(), "unique_roll_per_class_year")
}

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add("e.student_id = ?", "s1")
	w.add("e.id = ANY(?::uuid[])", pq.Array([]string{"e1"}))
	w.add("lower(c.name) = lower(?)", "class 4")
	assert.Equal(t, " WHERE e.student_id = $1 AND e.id = ANY($2::uuid[]) AND lower(c.name) = lower($3)", w.String())
	assert.Len(t, w.args, 3)
}

func TestYearOrder(t *testing.T) {
	tests := []struct {
		name      string
		orderings []core.DBOrdering
		want      string
	}{
		{name: "default", want: "y.start_date DESC NULLS LAST, y.created_at DESC NULLS LAST, y.id"},
		{
			name:      "ascending name",
			orderings: core.ParseOrderings("name"),
			want:      "y.name ASC NULLS LAST, y.id",
		},
		{
			name:      "unknown fields dropped",
			orderings: core.ParseOrderings("-end_date,password"),
			want:      "y.end_date DESC NULLS LAST, y.id",
		},
		{
			name:      "only unknown fields",
			orderings: []core.DBOrdering{{Field: "1; DROP TABLE academic_year"}},
			want:      "y.start_date DESC NULLS LAST, y.created_at DESC NULLS LAST, y.id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, yearOrder(tt.orderings))
		})
	}
}

func TestEnrollmentWhere(t *testing.T) {
	w := enrollmentWhere(academic.EnrollmentFilter{ClassLevelID: "c1", Status: academic.StatusCurrent})
	assert.Equal(t, " WHERE e.class_level_id = $1 AND e.status = $2", w.String())
	assert.Equal(t, []interface{}{"c1", academic.StatusCurrent}, w.args)

	assert.Equal(t, "", enrollmentWhere(academic.EnrollmentFilter{}).String())
}
