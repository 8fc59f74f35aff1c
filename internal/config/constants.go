package config

import "time"

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./clubhouse.db"

	// DefaultSessionTTL is how long a session stays valid after login or signup.
	DefaultSessionTTL = time.Hour
)
