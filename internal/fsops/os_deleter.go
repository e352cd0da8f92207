package fsops

import "os"

// OSDeleter is the production Deleter; it deletes for real via the os package.
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}

func (OSDeleter) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
