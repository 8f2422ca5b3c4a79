//go:build !windows

package registry

type unsupportedReader struct{}

// NewSystemReader returns a Reader that always fails off Windows.
func NewSystemReader() Reader { return unsupportedReader{} }

func (unsupportedReader) Values(string) (map[string]string, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedReader) Subkeys(string) ([]string, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedReader) DeleteTree(string) error {
	return ErrUnsupportedPlatform
}
