// Package ephemeris supplies today's solar events (sunrise, sunset, twilight
// boundaries) for a coordinate, converted to the local time zone.
//
// Records come from an HTTP provider (api.sunrise-sunset.org by default) and
// are cached durably. A cached record younger than the max age (24h) is used
// without any network access; when a refresh fails, the last stored record is
// reused whatever its age. Only "no stored record and the fetch failed" is an
// error, and callers treat it as fatal.
package ephemeris
