package postgres

import (
	"database/sql"
	"errors"
	"strings"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isStalePreparedStatement reports the errors a transaction-pooling proxy
// produces when an unnamed statement was prepared on another backend. The
// statement is safe to run again.
func isStalePreparedStatement(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "unnamed prepared statement does not exist") || strings.Contains(text, "(26000)") {
		return true
	}
	return strings.Contains(text, "bind message supplies") && strings.Contains(text, "prepared statement")
}
