// Package database provides connection management, configuration, logging,
// query hooks, health checks and driver error classification built on top of
// Bun, and hands out transactional providers on the managed pool.
package database
