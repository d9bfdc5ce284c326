// Package registry groups Ferry's registry protocol client packages and
// defines the error and identification values they share.
//
// The auth subpackage obtains and caches bearer challenges per registry host,
// the resolver subpackage turns tags into per-architecture digests, and the
// helpers subpackage provides address and digest utilities.
package registry
