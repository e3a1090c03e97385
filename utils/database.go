package utils

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// DatabaseInfo summarises the application's SQLite file.
type DatabaseInfo struct {
	Path      string
	Size      int64
	Tables    int
	Integrity string
}

func (i DatabaseInfo) Healthy() bool {
	return i.Integrity == "ok"
}

// InspectDatabase opens path read-only and reports its table count and the
// result of PRAGMA quick_check. The file is never modified.
func InspectDatabase(ctx context.Context, path string) (DatabaseInfo, error) {
	info := DatabaseInfo{Path: path}
	st, err := os.Stat(path)
	if err != nil {
		return info, err
	}
	info.Size = st.Size()

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return info, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&info.Integrity); err != nil {
		return info, fmt.Errorf("integrity check: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table'").Scan(&info.Tables); err != nil {
		return info, fmt.Errorf("count tables: %w", err)
	}
	return info, nil
}
