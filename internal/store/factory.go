package store

import "pulsehq.app/pulse/core/db"

// Stores bundles all store implementations over one pool.
type Stores struct {
	Features     FeatureStore
	Groups       GroupStore
	Issues       IssueStore
	Changes      ChangeStore
	Sessions     SessionStore
	CodeMappings CodeMappingStore
	Embeddings   *EmbeddingStore
}

func NewStores(database *db.DB) *Stores {
	pool := database.Pool()
	return &Stores{
		Features:     NewFeatureStore(pool),
		Groups:       NewGroupStore(database),
		Issues:       NewIssueStore(pool),
		Changes:      NewChangeStore(pool),
		Sessions:     NewSessionStore(pool),
		CodeMappings: NewCodeMappingStore(pool),
		Embeddings:   NewEmbeddingStore(pool),
	}
}
