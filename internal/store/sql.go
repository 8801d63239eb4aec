package store

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// createTableSQL builds the idempotent DDL statement for an entity.
func createTableSQL(ent Entity) string {
	defs := make([]string, len(ent.Columns))
	for i, c := range ent.Columns {
		def := fmt.Sprintf("%s %s", c.Name, c.Type)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{ent.Name}.Sanitize(), strings.Join(defs, ", "))
}

// upsertSQL builds a single parameterized multi-row upsert statement.
// Values are always bound as parameters, never interpolated.
func upsertSQL(ent Entity, rowCount int, policy ConflictPolicy) string {
	cols := ent.ColumnNames()
	colList := strings.Join(cols, ", ")

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		pgx.Identifier{ent.Name}.Sanitize(), colList)

	arg := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", arg)
			arg++
		}
		sb.WriteByte(')')
	}

	switch policy {
	case KeepExisting:
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO NOTHING", ent.Key())
	default:
		excluded := make([]string, len(cols))
		for i, c := range cols {
			excluded[i] = "EXCLUDED." + c
		}
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO UPDATE SET (%s) = (%s)",
			ent.Key(), colList, strings.Join(excluded, ", "))
	}

	return sb.String()
}

// allRowsSQL builds the full-scan query, ordered by the entity's time column.
func allRowsSQL(ent Entity, desc bool) string {
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		joinColumns(ent), pgx.Identifier{ent.Name}.Sanitize(), ent.TimeColumn)
	if desc {
		sql += " DESC"
	}
	return sql
}

// latestRowsSQL builds the most-recent-rows query. The inner DESC LIMIT form
// selects the newest rows; with asc set it is re-wrapped so those same rows
// come back in chronological order.
func latestRowsSQL(ent Entity, asc bool) string {
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC LIMIT $1",
		joinColumns(ent), pgx.Identifier{ent.Name}.Sanitize(), ent.TimeColumn)
	if asc {
		sql = fmt.Sprintf("SELECT * FROM (%s) AS latest ORDER BY %s ASC", sql, ent.TimeColumn)
	}
	return sql
}

// rowsInRangeSQL builds the inclusive time-window query, chronological.
func rowsInRangeSQL(ent Entity) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s BETWEEN $1 AND $2 ORDER BY %s ASC",
		joinColumns(ent), pgx.Identifier{ent.Name}.Sanitize(), ent.TimeColumn, ent.TimeColumn)
}

func joinColumns(ent Entity) string {
	return strings.Join(ent.ColumnNames(), ", ")
}

// flattenRows lays row values out in statement parameter order.
func flattenRows(rows [][]any) []any {
	if len(rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		args = append(args, row...)
	}
	return args
}
