// Package reload provides experimental reload triggers for swappable singletons.
//
// Trigger is the core type and performs:
// 1. serialize reload attempts so publishes happen in trigger order
// 2. coalesce concurrent attempts that share a key
// 3. tag every attempt with an id for logs
//
// Watch, Schedule and Handler fire a Trigger on file changes, on a cron
// schedule and over HTTP. Start wires watch and schedule from a YAML Config.
//
// This package is EXPERIMENTAL and its API may change before v1.
package reload
