package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSelect(t *testing.T) {
	tests := []struct {
		name       string
		build      func() *QueryBuilder
		wantSQL    string
		wantParams Params
	}{
		{
			name: "wildcard",
			build: func() *QueryBuilder {
				return New(nil).Table("users")
			},
			wantSQL:    "SELECT * FROM users",
			wantParams: Params{},
		},
		{
			name: "where in with order and limit",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").
					WhereIn("status", []any{"paid", "shipped"}).
					OrderBy("created_at", "DESC").
					Limit(10)
			},
			wantSQL:    "SELECT * FROM orders WHERE status IN (:status, :status_1) ORDER BY created_at DESC LIMIT 10",
			wantParams: Params{"status": "paid", "status_1": "shipped"},
		},
		{
			name: "repeated column gets suffixed names",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").
					Where("status", "open", "!=").
					WhereIn("status", []any{"paid", "shipped"})
			},
			wantSQL:    "SELECT * FROM orders WHERE status != :status AND status IN (:status_1, :status_2)",
			wantParams: Params{"status": "open", "status_1": "paid", "status_2": "shipped"},
		},
		{
			name: "distinct projection and qualified column",
			build: func() *QueryBuilder {
				return New(nil).Table("users").
					Distinct().
					Select("users.email").
					Where("users.email", "a@b.com", "like")
			},
			wantSQL:    "SELECT DISTINCT users.email FROM users WHERE users.email LIKE :users_email",
			wantParams: Params{"users_email": "a@b.com"},
		},
		{
			name: "null checks and between",
			build: func() *QueryBuilder {
				return New(nil).Table("events").
					WhereNull("deleted_at").
					WhereNotNull("published_at").
					WhereBetween("score", 10, 20)
			},
			wantSQL:    "SELECT * FROM events WHERE deleted_at IS NULL AND published_at IS NOT NULL AND score BETWEEN :score AND :score_1",
			wantParams: Params{"score": 10, "score_1": 20},
		},
		{
			name: "where not",
			build: func() *QueryBuilder {
				return New(nil).Table("users").WhereNot("role", "admin")
			},
			wantSQL:    "SELECT * FROM users WHERE NOT (role = :role)",
			wantParams: Params{"role": "admin"},
		},
		{
			name: "empty where in matches nothing",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").WhereIn("id", nil)
			},
			wantSQL:    "SELECT * FROM orders WHERE 1 = 0",
			wantParams: Params{},
		},
		{
			name: "empty where not in adds no restriction",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").WhereNotIn("id", []any{})
			},
			wantSQL:    "SELECT * FROM orders",
			wantParams: Params{},
		},
		{
			name: "where not in",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").WhereNotIn("id", []any{1, 2})
			},
			wantSQL:    "SELECT * FROM orders WHERE id NOT IN (:id, :id_1)",
			wantParams: Params{"id": 1, "id_1": 2},
		},
		{
			name: "joins",
			build: func() *QueryBuilder {
				return New(nil).Table("users").
					Select("users.id", "orders.total").
					Join("orders", "orders.user_id", "=", "users.id").
					LeftJoin("profiles", "profiles.user_id", "", "users.id")
			},
			wantSQL:    "SELECT users.id, orders.total FROM users INNER JOIN orders ON orders.user_id = users.id LEFT JOIN profiles ON profiles.user_id = users.id",
			wantParams: Params{},
		},
		{
			name: "raw join shares the parameter namespace",
			build: func() *QueryBuilder {
				return New(nil).Table("users").
					JoinRaw(RightJoin, "orders", "orders.user_id = users.id AND orders.status = :status", Params{"status": "paid"}).
					Where("status", "active")
			},
			wantSQL:    "SELECT * FROM users RIGHT JOIN orders ON orders.user_id = users.id AND orders.status = :status WHERE status = :status_1",
			wantParams: Params{"status": "paid", "status_1": "active"},
		},
		{
			name: "group by and having",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").
					Select("status", "COUNT(*) AS n").
					GroupBy("status").
					Having("COUNT(*)", 5, ">")
			},
			wantSQL:    "SELECT status, COUNT(*) AS n FROM orders GROUP BY status HAVING COUNT(*) > :COUNT",
			wantParams: Params{"COUNT": 5},
		},
		{
			name: "having raw",
			build: func() *QueryBuilder {
				return New(nil).Table("orders").
					Select("user_id").
					GroupBy("user_id").
					HavingRaw("SUM(total) >= :min", Params{":min": 100})
			},
			wantSQL:    "SELECT user_id FROM orders GROUP BY user_id HAVING SUM(total) >= :min",
			wantParams: Params{"min": 100},
		},
		{
			name: "offset without limit is dropped",
			build: func() *QueryBuilder {
				return New(nil).Table("users").Offset(5)
			},
			wantSQL:    "SELECT * FROM users",
			wantParams: Params{},
		},
		{
			name: "paginate",
			build: func() *QueryBuilder {
				return New(nil).Table("users").OrderBy("id", "asc").Paginate(3, 20)
			},
			wantSQL:    "SELECT * FROM users ORDER BY id ASC LIMIT 20 OFFSET 40",
			wantParams: Params{},
		},
		{
			name: "unknown direction falls back to ascending",
			build: func() *QueryBuilder {
				return New(nil).Table("users").OrderBy("name", "sideways").OrderByDesc("id")
			},
			wantSQL:    "SELECT * FROM users ORDER BY name ASC, id DESC",
			wantParams: Params{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.build().Compile()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantParams, stmt.Params)
		})
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	b := New(nil).Table("orders").
		Where("status", "open").
		WhereIn("status", []any{"a", "b"}).
		WhereRaw("total > :status", Params{"status": 3})

	first, err := b.Compile()
	require.NoError(t, err)
	second, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "SELECT * FROM orders WHERE status = :status AND status IN (:status_1, :status_2) AND total > :status_3", first.SQL)
}

func TestCompileRawFragments(t *testing.T) {
	t.Run("colliding names are renamed", func(t *testing.T) {
		stmt, err := New(nil).Table("users").
			Where("id", 1).
			WhereRaw("(id > :id OR nickname = ':id')", Params{":id": 5}).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM users WHERE id = :id AND (id > :id_1 OR nickname = ':id')", stmt.SQL)
		assert.Equal(t, Params{"id": 1, "id_1": 5}, stmt.Params)
	})

	t.Run("repeated placeholder binds once", func(t *testing.T) {
		stmt, err := New(nil).Table("users").
			WhereRaw("(first_name = :q OR last_name = :q)", Params{"q": "ann", "unused": 1}).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM users WHERE (first_name = :q OR last_name = :q)", stmt.SQL)
		assert.Equal(t, Params{"q": "ann"}, stmt.Params)
	})

	t.Run("missing binding", func(t *testing.T) {
		_, err := New(nil).Table("users").WhereRaw("age > :age", nil).Compile()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, ErrUnboundParameter)
	})

	t.Run("casts are not placeholders", func(t *testing.T) {
		stmt, err := New(nil).Table("users").WhereRaw("created_at::date = :day", Params{"day": "2024-01-01"}).Compile()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM users WHERE created_at::date = :day", stmt.SQL)
	})
}

func TestCompileUnions(t *testing.T) {
	archived := New(nil).Table("archived_orders").Select("id").Where("status", "paid")
	b := New(nil).Table("orders").Select("id").Where("status", "open").Union(archived)

	archived.Where("total", 10)

	stmt, err := b.Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM orders WHERE status = :status UNION SELECT id FROM archived_orders WHERE status = :status_1", stmt.SQL)
	assert.Equal(t, Params{"status": "open", "status_1": "paid"}, stmt.Params)

	all, err := New(nil).Table("a").UnionAll(New(nil).Table("b")).Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM a UNION ALL SELECT * FROM b", all.SQL)

	_, err = New(nil).Table("a").Union(New(nil)).Compile()
	assert.ErrorIs(t, err, ErrMissingTable)
}

func TestCompileCount(t *testing.T) {
	b := New(nil).Table("users").
		Select("id", "email").
		Join("teams", "teams.id", "=", "users.team_id").
		Where("active", true).
		OrderBy("email", "asc")

	stmt, err := b.CompileCount()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS aggregate FROM users INNER JOIN teams ON teams.id = users.team_id WHERE active = :active", stmt.SQL)
	assert.Equal(t, Params{"active": true}, stmt.Params)

	sel, err := b.Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, email FROM users INNER JOIN teams ON teams.id = users.team_id WHERE active = :active ORDER BY email ASC", sel.SQL)

	grouped, err := New(nil).Table("orders").Select("status").GroupBy("status").CompileCount()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS aggregate FROM (SELECT status FROM orders GROUP BY status) AS aggregate_table", grouped.SQL)

	limited, err := New(nil).Table("orders").Limit(5).CompileCount()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS aggregate FROM (SELECT * FROM orders LIMIT 5) AS aggregate_table", limited.SQL)

	distinct, err := New(nil).Table("users").Distinct().Select("email").CompileCount()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS aggregate FROM (SELECT DISTINCT email FROM users) AS aggregate_table", distinct.SQL)
}

func TestCompileExists(t *testing.T) {
	b := New(nil).Table("users").Where("id", 7).Limit(50)

	stmt, err := b.CompileExists()
	require.NoError(t, err)
	assert.Equal(t, "SELECT EXISTS(SELECT * FROM users WHERE id = :id LIMIT 1) AS result", stmt.SQL)

	sel, err := b.Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id = :id LIMIT 50", sel.SQL)

	unioned, err := New(nil).Table("a").Union(New(nil).Table("b")).CompileExists()
	require.NoError(t, err)
	assert.Equal(t, "SELECT EXISTS(SELECT * FROM a UNION SELECT * FROM b) AS result", unioned.SQL)
}

func TestCompileInsert(t *testing.T) {
	stmt, err := New(nil).Table("users").CompileInsert(Data{"name": "Ann", "email": "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (email, name) VALUES (:email, :name)", stmt.SQL)
	assert.Equal(t, Params{"email": "ann@example.com", "name": "Ann"}, stmt.Params)

	batch, err := New(nil).Table("t").CompileInsertBatch([]Data{{"a": 1, "b": 2}, {"a": 3}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES (:a, :b), (:a_1, :b_1)", batch.SQL)
	assert.Equal(t, Params{"a": 1, "b": 2, "a_1": 3, "b_1": nil}, batch.Params)

	_, err = New(nil).Table("t").CompileInsert(Data{})
	assert.ErrorIs(t, err, ErrEmptyData)

	_, err = New(nil).Table("t").CompileInsertBatch(nil)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestCompileUpdateAndDelete(t *testing.T) {
	stmt, err := New(nil).Table("orders").Where("status", "open").CompileUpdate(Data{"status": "closed", "note": nil})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE orders SET note = :note, status = :status WHERE status = :status_1", stmt.SQL)
	assert.Equal(t, Params{"note": nil, "status": "closed", "status_1": "open"}, stmt.Params)

	del, err := New(nil).Table("t").Where("id", 5).CompileDelete()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM t WHERE id = :id", del.SQL)
	assert.Equal(t, Params{"id": 5}, del.Params)

	_, err = New(nil).Table("t").CompileUpdate(Data{"x": 1})
	assert.ErrorIs(t, err, ErrMissingWhere)

	_, err = New(nil).Table("t").CompileDelete()
	assert.ErrorIs(t, err, ErrMissingWhere)

	_, err = New(nil).Table("t").WhereNotIn("id", nil).CompileDelete()
	assert.ErrorIs(t, err, ErrMissingWhere)

	_, err = New(nil).Table("t").Where("id", 1).CompileUpdate(nil)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestMutationsRefuseSelectOnlyClauses(t *testing.T) {
	tests := []struct {
		name  string
		build func() *QueryBuilder
	}{
		{"distinct", func() *QueryBuilder { return New(nil).Table("jobs").Distinct() }},
		{"join", func() *QueryBuilder { return New(nil).Table("jobs").Join("users", "users.id", "=", "jobs.user_id") }},
		{"raw join", func() *QueryBuilder { return New(nil).Table("jobs").JoinRaw(LeftJoin, "users", "users.id = jobs.user_id", nil) }},
		{"group by", func() *QueryBuilder { return New(nil).Table("jobs").GroupBy("status") }},
		{"having", func() *QueryBuilder { return New(nil).Table("jobs").Having("status", "queued") }},
		{"order by", func() *QueryBuilder { return New(nil).Table("jobs").OrderBy("id", "ASC") }},
		{"limit", func() *QueryBuilder { return New(nil).Table("jobs").Limit(1) }},
		{"offset", func() *QueryBuilder { return New(nil).Table("jobs").Offset(5) }},
		{"union", func() *QueryBuilder { return New(nil).Table("jobs").Union(New(nil).Table("archived_jobs")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Where("status", "queued").CompileDelete()
			assert.ErrorIs(t, err, ErrUnsupportedClause)
			assert.ErrorIs(t, err, ErrConfiguration)

			_, err = tt.build().Where("status", "queued").CompileUpdate(Data{"status": "done"})
			assert.ErrorIs(t, err, ErrUnsupportedClause)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestCompileConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *QueryBuilder
		want  error
	}{
		{"missing table", func() *QueryBuilder { return New(nil) }, ErrMissingTable},
		{"operator not allowed", func() *QueryBuilder { return New(nil).Table("t").Where("id", 1, "; DROP TABLE t") }, ErrInvalidOperator},
		{"join operator not allowed", func() *QueryBuilder { return New(nil).Table("t").Join("u", "u.id", "OR 1=1", "t.id") }, ErrInvalidOperator},
		{"join without columns", func() *QueryBuilder { return New(nil).Table("t").Join("u", "", "=", "t.id") }, ErrInvalidJoin},
		{"raw join of unknown kind", func() *QueryBuilder { return New(nil).Table("t").JoinRaw("CROSS", "u", "1 = 1", nil) }, ErrInvalidJoin},
		{"negative limit", func() *QueryBuilder { return New(nil).Table("t").Limit(-1) }, ErrInvalidLimit},
		{"negative offset", func() *QueryBuilder { return New(nil).Table("t").Offset(-3) }, ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrConfiguration)

			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	base := New(nil).Table("users").Where("active", true).Limit(10)
	clone := base.Clone().Where("role", "admin").Limit(1)

	baseStmt, err := base.Compile()
	require.NoError(t, err)
	cloneStmt, err := clone.Compile()
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM users WHERE active = :active LIMIT 10", baseStmt.SQL)
	assert.Equal(t, "SELECT * FROM users WHERE active = :active AND role = :role LIMIT 1", cloneStmt.SQL)
}

func TestParamBase(t *testing.T) {
	cases := map[string]string{
		"email":        "email",
		"users.email":  "users_email",
		"created_at":   "created_at",
		"COUNT(*)":     "COUNT",
		"__x__":        "x",
		"1st":          "p1st",
		"*":            "p",
		"a  .  b":      "a_b",
		"LOWER(email)": "LOWER_email",
	}
	for in, want := range cases {
		assert.Equal(t, want, paramBase(in), in)
	}
}
