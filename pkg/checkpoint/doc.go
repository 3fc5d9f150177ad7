// Package checkpoint persists resumable crawl state.
//
// A Checkpoint records the mode-specific cursor (search keyword and
// page, creator page, homefeed cursor) plus per-item progress, so an
// interrupted session picks up where it stopped instead of refetching
// finished work. Two Store backends are provided: one JSON file per
// checkpoint with atomic replace-on-write, and a single SQLite
// database for setups that prefer queryable history.
package checkpoint
