package store

// Repositories bundles every repository over one shared database handle.
type Repositories struct {
	Items ItemRepository
	Links LinkRepository
	Tasks TaskRepository
	Keys  KeyRepository
}

func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Items: NewVaultItemRepository(db),
		Links: NewPublicLinkRepository(db),
		Tasks: NewRotationTaskRepository(db),
		Keys:  NewMasterKeyRepository(db),
	}
}
