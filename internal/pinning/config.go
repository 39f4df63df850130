// Package pinning is a thin client for the Pinata IPFS pinning service.
//
// It validates content, forwards it to the service and returns content
// identifiers together with gateway URLs. It holds no mutable state: a Client
// can be shared by any number of goroutines.
package pinning

import "strings"

const (
	DefaultGateway = "gateway.pinata.cloud"
	DefaultAPIURL  = "https://api.pinata.cloud"

	pinFilePath = "/pinning/pinFileToIPFS"
	pinJSONPath = "/pinning/pinJSONToIPFS"
)

// Config is read once at startup and never changes afterwards.
type Config struct {
	// JWT is the bearer credential. Only uploads need it.
	JWT string
	// Gateway is the host used for retrieval URLs, without scheme.
	Gateway string
	// APIURL is the pinning API base URL.
	APIURL string
}

func (c Config) withDefaults() Config {
	if c.Gateway == "" {
		c.Gateway = DefaultGateway
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return c
}

// HasCredential reports whether uploads can be attempted.
func (c Config) HasCredential() bool {
	return c.JWT != ""
}

// ResolveURL builds the retrieval URL for a content identifier.
// No network access is involved.
func ResolveURL(gateway, cid string) string {
	return "https://" + gateway + "/ipfs/" + cid
}
