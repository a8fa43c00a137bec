// Package dedupe provides a TTL-bounded cache of recently seen keys,
// used to detect redelivered events within a configurable window.
package dedupe
