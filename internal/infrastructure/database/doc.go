// Package database provides SQLite connectivity for the pairgen
// operation history.
//
// This package manages:
//   - Opening the database file (directory created on demand)
//   - WAL mode and busy timeout pragmas
//   - Forward-only schema migrations embedded in the binary
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to 0600; it never stores pairing
//     record payloads, only operation outcomes
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
