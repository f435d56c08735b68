package ports

// SourceResolver expands source patterns into concrete files.
//
//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go
type SourceResolver interface {
	// ResolveSources expands the glob patterns (`**` allowed) relative to root.
	// Matches keep the order of the patterns and are sorted within each
	// pattern; duplicates are dropped. A pattern that matches nothing fails
	// with domain.ErrNoSources.
	ResolveSources(patterns []string, root string) ([]string, error)
}
