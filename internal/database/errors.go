package database

import "errors"

var (
	// ErrRunNotFound is returned when a rank run does not exist.
	ErrRunNotFound = errors.New("rank run not found")

	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")
)
