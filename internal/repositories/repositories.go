package repositories

import (
	"database/sql"
	"fmt"
)

// affected returns the rows touched by result, failing with notFound when none were.
func affected(result sql.Result, notFound error) (int64, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 && notFound != nil {
		return 0, notFound
	}
	return rows, nil
}

// nullable maps "" to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
