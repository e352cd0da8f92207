package fsops

// Deleter is the seam between the sweeper and the filesystem.
// Remove takes one artifact file, RemoveAll takes the output directory.
// Tests substitute a fake to script failures and to prove dry-run
// never reaches the filesystem.
type Deleter interface {
	Remove(path string) error
	RemoveAll(path string) error
}
