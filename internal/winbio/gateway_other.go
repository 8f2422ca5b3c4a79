//go:build !windows || !(amd64 || arm64)

package winbio

// NewSystemGateway reports ErrUnsupportedPlatform outside 64-bit Windows.
func NewSystemGateway() (Gateway, error) {
	return nil, ErrUnsupportedPlatform
}
