//go:build !windows

package svcctl

type unsupportedOpener struct{}

// NewSystemOpener returns an Opener that always fails off Windows.
func NewSystemOpener() Opener { return unsupportedOpener{} }

func (unsupportedOpener) Open(string, Access) (Service, error) {
	return nil, ErrUnsupportedPlatform
}
