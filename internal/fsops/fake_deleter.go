package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions.
// FailOn can script a per-path error to exercise partial-failure paths.
type FakeDeleter struct {
	Calls  []string
	FailOn map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	if err, ok := f.FailOn[path]; ok {
		return err
	}
	return nil
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	if err, ok := f.FailOn[path]; ok {
		return err
	}
	return nil
}
