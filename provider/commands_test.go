/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package provider

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/sync/errgroup"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
	Qty  int    `bun:"qty,notnull"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, filepath.Join(t.TempDir(), "provider.db"))
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*widget)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func seed(t *testing.T, db *bun.DB, widgets ...*widget) {
	t.Helper()
	p := New(BunConnectionFactory(db))
	defer func() { require.NoError(t, p.Close()) }()
	for _, w := range widgets {
		ok, err := p.Insert(context.Background(), w)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, p.Commit())
}

func countWidgets(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*widget)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCommittedWorkIsVisibleAfterClose(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := New(BunConnectionFactory(db))

	ok, err := p.Insert(ctx, &widget{Name: "bolt", Qty: 3})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, p.Commit())
	require.NoError(t, p.Close())

	assert.Equal(t, 1, countWidgets(t, db))
	assert.ErrorIs(t, p.Commit(), ErrProviderClosed)
}

func TestUncommittedWorkIsRolledBackOnClose(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := New(BunConnectionFactory(db))

	_, err := p.Insert(ctx, &widget{Name: "bolt", Qty: 3})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.Equal(t, TxRolledBack, p.State())
	assert.Equal(t, 0, countWidgets(t, db))
}

func TestCommandsShareOneTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := New(BunConnectionFactory(db))
	defer p.Close()

	_, err := p.Insert(ctx, &widget{Name: "bolt", Qty: 3})
	require.NoError(t, err)

	var n int
	found, err := p.ExecuteScalar(ctx, &n, "SELECT COUNT(*) FROM widgets")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, n, "uncommitted insert must be visible inside the same transaction")

	require.NoError(t, p.Rollback())
	assert.Equal(t, 0, countWidgets(t, db))
}

func TestGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, &widget{Name: "bolt", Qty: 3}, &widget{Name: "nut", Qty: 7})

	p := New(BunConnectionFactory(db))
	defer p.Close()

	var id int64
	require.NoError(t, p.QuerySingle(ctx, &id, "SELECT id FROM widgets WHERE name = ?", "nut"))

	w := new(widget)
	found, err := p.Get(ctx, w, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "nut", w.Name)
	assert.Equal(t, 7, w.Qty)

	missing := new(widget)
	found, err = p.Get(ctx, missing, id+100)
	require.NoError(t, err)
	assert.False(t, found)
}

type stock struct {
	bun.BaseModel `bun:"table:stock"`

	WidgetID int64  `bun:"widget_id,pk"`
	Bin      string `bun:"bin,pk"`
	Qty      int    `bun:"qty"`
}

func TestGetRejectsCompositeKey(t *testing.T) {
	db := newTestDB(t)
	p := New(BunConnectionFactory(db))
	defer p.Close()

	found, err := p.Get(context.Background(), new(stock), int64(1))
	assert.ErrorIs(t, err, ErrCompositeKey)
	assert.False(t, found)
}

func TestGetAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, &widget{Name: "bolt", Qty: 3}, &widget{Name: "nut", Qty: 7}, &widget{Name: "washer", Qty: 1})

	p := New(BunConnectionFactory(db))
	defer p.Close()

	var all []*widget
	require.NoError(t, p.GetAll(ctx, &all, Timeout(time.Second)))
	assert.Len(t, all, 3)
}

func TestQueryVariants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, &widget{Name: "bolt", Qty: 3}, &widget{Name: "nut", Qty: 7}, &widget{Name: "washer", Qty: 1})

	p := New(BunConnectionFactory(db))
	defer p.Close()

	var rows []widget
	require.NoError(t, p.Query(ctx, &rows, "SELECT * FROM widgets WHERE qty > ? ORDER BY qty", 2, Timeout(time.Second)))
	require.Len(t, rows, 2)
	assert.Equal(t, "bolt", rows[0].Name)

	var first widget
	require.NoError(t, p.QueryFirst(ctx, &first, "SELECT * FROM widgets ORDER BY qty DESC"))
	assert.Equal(t, "nut", first.Name)

	var none widget
	assert.ErrorIs(t, p.QueryFirst(ctx, &none, "SELECT * FROM widgets WHERE qty > ?", 100), sql.ErrNoRows)

	found, err := p.QueryFirstOrDefault(ctx, &none, "SELECT * FROM widgets WHERE qty > ?", 100)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, none.Name)

	var single *widget
	require.NoError(t, p.QuerySingle(ctx, &single, "SELECT * FROM widgets WHERE name = ?", "washer"))
	require.NotNil(t, single)
	assert.Equal(t, 1, single.Qty)

	var many widget
	assert.ErrorIs(t, p.QuerySingle(ctx, &many, "SELECT * FROM widgets"), ErrMultipleRows)
	_, err = p.QuerySingleOrDefault(ctx, &many, "SELECT * FROM widgets")
	assert.ErrorIs(t, err, ErrMultipleRows)

	found, err = p.QuerySingleOrDefault(ctx, &many, "SELECT * FROM widgets WHERE name = ?", "gear")
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, p.QuerySingle(ctx, &many, "SELECT * FROM widgets WHERE name = ?", "gear"), sql.ErrNoRows)
}

func TestExecuteAndMutations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, &widget{Name: "bolt", Qty: 3}, &widget{Name: "nut", Qty: 7})

	p := New(BunConnectionFactory(db), WithCommandTimeout(5*time.Second))

	n, err := p.Execute(ctx, "UPDATE widgets SET qty = qty + ?", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var bolt widget
	require.NoError(t, p.QuerySingle(ctx, &bolt, "SELECT * FROM widgets WHERE name = ?", "bolt"))
	assert.Equal(t, 4, bolt.Qty)

	bolt.Qty = 10
	ok, err := p.Update(ctx, &bolt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Delete(ctx, &bolt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Delete(ctx, &bolt)
	require.NoError(t, err)
	assert.False(t, ok, "deleting a missing row reports false")

	ok, err = p.DeleteAll(ctx, (*widget)(nil))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.DeleteAll(ctx, (*widget)(nil))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Commit())
	require.NoError(t, p.Close())
	assert.Equal(t, 0, countWidgets(t, db))
}

func TestInvalidDestination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := New(BunConnectionFactory(db))
	defer p.Close()

	var rows []widget
	assert.ErrorIs(t, p.Query(ctx, rows, "SELECT * FROM widgets"), ErrInvalidDestination)
	_, err := p.QueryFirstOrDefault(ctx, widget{}, "SELECT * FROM widgets")
	assert.ErrorIs(t, err, ErrInvalidDestination)
	_, err = p.Get(ctx, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestStoredProcedureUnsupportedOnSQLite(t *testing.T) {
	db := newTestDB(t)
	p := New(BunConnectionFactory(db))
	defer p.Close()

	_, err := p.Execute(context.Background(), "refresh_widgets", 1, StoredProcedure())
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestSplitArgsStripsOptions(t *testing.T) {
	c, params := splitArgs([]any{1, Timeout(2 * time.Second), "a", StoredProcedure()})
	assert.Equal(t, []any{1, "a"}, params)
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, CommandStoredProcedure, c.kind)
}

func TestRenderStoredProcedure(t *testing.T) {
	c := newCommand([]CommandOption{StoredProcedure()})

	q, err := c.render(pgdialect.New(), "refresh_widgets", 2)
	require.NoError(t, err)
	assert.Equal(t, "CALL refresh_widgets(?, ?)", q)

	q, err = c.render(pgdialect.New(), "vacuum_widgets", 0)
	require.NoError(t, err)
	assert.Equal(t, "CALL vacuum_widgets()", q)

	q, err = command{}.render(sqlitedialect.New(), "SELECT 1", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)
}

func TestQualifiedTableName(t *testing.T) {
	db := newTestDB(t)
	p := New(BunConnectionFactory(db))
	defer p.Close()

	name, err := p.QualifiedTableName((*widget)(nil))
	require.NoError(t, err)
	assert.Equal(t, `"widgets"`, name)
	assert.Equal(t, TxNone, p.State(), "resolving a table name must not begin a transaction")

	_, err = p.QualifiedTableName(42)
	assert.Error(t, err)
}

func TestIndependentProvidersRunConcurrently(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, &widget{Name: "bolt", Qty: 3}, &widget{Name: "nut", Qty: 7})

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			p := New(BunConnectionFactory(db))
			defer p.Close()
			var total int
			if _, err := p.ExecuteScalar(ctx, &total, "SELECT SUM(qty) FROM widgets"); err != nil {
				return err
			}
			if total != 10 {
				return assert.AnError
			}
			return p.Commit()
		})
	}
	require.NoError(t, g.Wait())
}

const slowCount = `WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c WHERE x < 1000000000)
SELECT count(*) FROM c`

func TestCommandTimeoutLeavesTransactionUsable(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		args []any
	}{
		{"per command", nil, []any{Timeout(20 * time.Millisecond)}},
		{"provider default", []Option{WithCommandTimeout(20 * time.Millisecond)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			seed(t, db, &widget{Name: "bolt", Qty: 3})

			p := New(BunConnectionFactory(db), tt.opts...)
			defer p.Close()

			var n int64
			_, err := p.ExecuteScalar(ctx, &n, slowCount, tt.args...)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Equal(t, TxActive, p.State())

			affected, err := p.Execute(ctx, "UPDATE widgets SET qty = ? WHERE name = ?", 9, "bolt", Timeout(5*time.Second))
			require.NoError(t, err)
			assert.Equal(t, int64(1), affected)
			require.NoError(t, p.Commit())

			var bolt widget
			require.NoError(t, db.NewSelect().Model(&bolt).Where("name = ?", "bolt").Scan(ctx))
			assert.Equal(t, 9, bolt.Qty)
		})
	}
}
