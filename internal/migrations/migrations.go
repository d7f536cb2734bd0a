// Package migrations holds the schema of the persistent result cache.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	ocp_fs "github.com/illusionfield/scssc/internal/fs"
)

var compileResults = createSQLTable("compile_results").
	TextPrimaryKeyColumn("root").
	TextNonNullColumn("hash").
	BlobNonNullColumn("entry").
	IntegerNonNullColumn("size").
	IntegerNonNullColumn("updated_at")

// Migrations returns the numbered up migrations, oldest first.
func Migrations() fs.FS {
	return ocp_fs.MapFS(map[string]string{
		"001_compile_results.up.sql":     compileResults.SQL(),
		"002_compile_results_lru.up.sql": "CREATE INDEX IF NOT EXISTS compile_results_updated_at ON compile_results (updated_at);",
	})
}

// Up brings the schema of db to the latest version.
func Up(db *sql.DB) error {
	src, err := iofs.New(Migrations(), ".")
	if err != nil {
		return err
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

type sqlDataType string

const (
	sqlInteger sqlDataType = "INTEGER"
	sqlText    sqlDataType = "TEXT"
	sqlBlob    sqlDataType = "BLOB"
)

type sqlColumn struct {
	Name       string
	Type       sqlDataType
	PrimaryKey bool
	NotNull    bool
}

func (c sqlColumn) SQL() string {
	parts := []string{c.Name, string(c.Type)}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

type sqlTable struct {
	name    string
	columns []sqlColumn
}

func createSQLTable(name string) *sqlTable {
	return &sqlTable{name: name}
}

func (t *sqlTable) TextPrimaryKeyColumn(name string) *sqlTable {
	t.columns = append(t.columns, sqlColumn{Name: name, Type: sqlText, PrimaryKey: true})
	return t
}

func (t *sqlTable) TextNonNullColumn(name string) *sqlTable {
	t.columns = append(t.columns, sqlColumn{Name: name, Type: sqlText, NotNull: true})
	return t
}

func (t *sqlTable) IntegerNonNullColumn(name string) *sqlTable {
	t.columns = append(t.columns, sqlColumn{Name: name, Type: sqlInteger, NotNull: true})
	return t
}

func (t *sqlTable) BlobNonNullColumn(name string) *sqlTable {
	t.columns = append(t.columns, sqlColumn{Name: name, Type: sqlBlob, NotNull: true})
	return t
}

func (t *sqlTable) SQL() string {
	c := make([]string, len(t.columns))
	for i := range t.columns {
		c[i] = t.columns[i].SQL()
	}

	// NOTE: Constraint names are ours so later migrations can refer to them.
	for _, col := range t.columns {
		if col.PrimaryKey {
			c = append(c, fmt.Sprintf("CONSTRAINT %[1]s_%[2]s_pkey PRIMARY KEY (%[2]s)", t.name, col.Name))
		}
	}
	return `CREATE TABLE IF NOT EXISTS ` + t.name + ` (` + strings.Join(c, ", ") + `);`
}
