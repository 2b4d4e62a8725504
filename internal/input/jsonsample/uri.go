package jsonsample

import "net/url"

// hasHost keeps bare "scheme:opaque" strings such as "note:1" from being
// detected as URIs.
func hasHost(v any) bool {
	u, ok := v.(*url.URL)
	return ok && u.Host != ""
}
