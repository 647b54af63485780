// Package tracker holds the pure calculations behind bills, budgets and goals.
//
// Every function takes fully loaded records plus the current time and returns
// derived values. Nothing here touches storage or keeps state, so callers may
// recompute freely whenever their input set changes.
package tracker
