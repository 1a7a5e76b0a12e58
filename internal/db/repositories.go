package db

// Repositories provides access to all database repositories
type Repositories struct {
	Sessions *SessionRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Sessions: NewSessionRepository(db),
	}
}
