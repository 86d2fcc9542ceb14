package domain

// HierarchySource says where level/parent assignments are authoritative.
type HierarchySource string

const (
	// HierarchySourceBackend means the record store carries level and parent_id columns.
	HierarchySourceBackend HierarchySource = "backend"
	// HierarchySourceLocal means assignments live in the local assignment store.
	HierarchySourceLocal HierarchySource = "local"
)
