package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls and forwards them to Next when set
type FakeDeleter struct {
	Calls []string
	Next  Deleter
	Err   error // Returned from every call when non-nil
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	return f.forward(path, false)
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	return f.forward(path, true)
}

func (f *FakeDeleter) forward(path string, all bool) error {
	if f.Err != nil {
		return f.Err
	}
	if f.Next == nil {
		return nil
	}
	if all {
		return f.Next.RemoveAll(path)
	}
	return f.Next.Remove(path)
}
