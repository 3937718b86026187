// Package garmin speaks the Garmin Connect web contract: the SSO login
// handshake (Authenticator), the paginated activity search (Catalog) and the
// per-format download endpoints. Revisions of that contract are Protocol
// implementations chosen by name, so the sequencing code never changes when
// an endpoint path or payload shape does.
package garmin
