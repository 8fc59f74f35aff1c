// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # SQLite connection setup and migrations
//	├── users/           # Account lookup and creation (gorm)
//	├── audit/           # Audit event persistence (gorm)
//	└── postgres/        # pgx implementations of the same stores plus SQL migrations
//
// Sessions are not stored here; see internal/sessions, which shares the
// SQLite connection through SQLDB.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./clubhouse.db", logger)
//
//	usersRepo := users.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
//	user, err := usersRepo.FindByEmail(ctx, "ann@example.com")
//
// # Interface Implementations
//
//   - users.Repository, postgres.UserRepository: implement auth.UserStore
//   - audit.Repository, postgres.AuditRepository: implement audit.Repository
//
// Each repository carries a compile-time interface check.
package database
