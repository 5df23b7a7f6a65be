package domain

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileChange represents a change event from a watched input directory.
type FileChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Path is the affected file.
	Path string
}
