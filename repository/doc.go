// Package repository provides generic, model-scoped repositories that run on a
// shared transactional provider: read-only query helpers, key lookup, and
// insert/update/delete with transient-state based add-or-update.
package repository
