// Package swappable provides a hot-reloadable singleton that is replaced
// wholesale by atomic swap.
//
// It offers:
// - a Singleton holding exactly one current instance, read without locks
// - reloads that build and validate a candidate before publishing it
// - optional hooks to configure a candidate before validation
// - counted leases so retired instances release resources after the last reader
// - a name-keyed Registry for process-wide singletons
package swappable
