package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors returned by every repository method.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrDataTooLong       = errors.New("data too long for column")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MySQL server error numbers.
const (
	mysqlDupEntry    = 1062
	mysqlDataTooLong = 1406
)

// ParseDBError maps MySQL and SQLite constraint failures onto the sentinels.
// Other errors pass through unchanged.
func ParseDBError(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDupEntry:
			sentinel = ErrDuplicateKey
		case mysqlDataTooLong:
			sentinel = ErrDataTooLong
		}
	} else {
		// modernc sqlite only exposes constraint kinds through the message.
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"),
			strings.Contains(msg, "PRIMARY KEY constraint failed"):
			sentinel = ErrDuplicateKey
		case strings.Contains(msg, "too long"):
			sentinel = ErrDataTooLong
		}
	}
	if sentinel == nil {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
