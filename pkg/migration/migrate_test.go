package migration

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// newTestDB はテスト用のインメモリSQLiteデータベースを生成する。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("マイグレーションがバージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/000002_add_note.up.sql": {
				Data: []byte("ALTER TABLE items ADD COLUMN note TEXT"),
			},
			"migrations/000001_create_items.up.sql": {
				Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY)"),
			},
		}

		db := newTestDB(t)
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}

		// 000002は000001が作ったテーブルに依存するため、順序が崩れると失敗する
		if _, err := db.Exec("INSERT INTO items (id, note) VALUES (1, 'hello')"); err != nil {
			t.Errorf("マイグレーション後のテーブルが使用できない: %v", err)
		}
	})

	t.Run("適用済みのマイグレーションが再実行されないこと", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/000001_create_items.up.sql": {
				Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY)"),
			},
		}

		db := newTestDB(t)
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("1回目のRun()でエラーが発生: %v", err)
		}
		// CREATE TABLEにIF NOT EXISTSがないため、再実行されれば失敗する
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Errorf("2回目のRun()でエラーが発生: %v", err)
		}
	})

	t.Run("不正なSQLで適用が失敗しバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/000001_broken.up.sql": {
				Data: []byte("NOT A VALID SQL STATEMENT"),
			},
		}

		db := newTestDB(t)
		if err := Run(db, fsys, "migrations"); err == nil {
			t.Fatal("不正なSQLのRun()が成功した")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン記録の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("失敗したマイグレーションのバージョンが記録された: count=%d", count)
		}
	})

	t.Run("重複するバージョンでエラーとなること", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/000001_first.up.sql": {
				Data: []byte("CREATE TABLE a (id INTEGER)"),
			},
			"migrations/000001_second.up.sql": {
				Data: []byte("CREATE TABLE b (id INTEGER)"),
			},
		}

		db := newTestDB(t)
		if err := Run(db, fsys, "migrations"); err == nil {
			t.Error("重複バージョンのRun()が成功した")
		}
	})

	t.Run("up.sql以外のファイルが無視されること", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/000001_create_items.up.sql": {
				Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY)"),
			},
			"migrations/000001_create_items.down.sql": {
				Data: []byte("DROP TABLE items"),
			},
			"migrations/README.md": {
				Data: []byte("migration notes"),
			},
		}

		db := newTestDB(t)
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Errorf("Run()でエラーが発生: %v", err)
		}
	})
}
