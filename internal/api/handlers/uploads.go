package handlers

import "os"

// tempFile wraps a downloaded object-storage file so its Close also
// removes the scratch copy once the caller is done parsing it.
type tempFile struct {
	path string
	f    *os.File
}

func (t *tempFile) Read(p []byte) (int, error) {
	if t.f == nil {
		f, err := os.Open(t.path)
		if err != nil {
			return 0, err
		}
		t.f = f
	}
	return t.f.Read(p)
}

func (t *tempFile) Close() error {
	if t.f != nil {
		t.f.Close()
	}
	return os.Remove(t.path)
}
