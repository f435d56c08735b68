package ports

// Hasher defines the interface for computing content fingerprints.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeFileHash computes the hash of a single file's content.
	ComputeFileHash(path string) (uint64, error)

	// Fingerprint hashes a file, or every file below a directory.
	// It reports false when the path does not exist.
	Fingerprint(path string) (uint64, bool, error)
}

// OutputCache remembers the last seen fingerprint of each output path.
type OutputCache interface {
	// Changed fingerprints path and reports whether it differs from the
	// previous call for the same path. A missing path never counts as changed.
	Changed(path string) (bool, error)
}
