// Package service implements the task lifecycle on top of a store.TaskStore.
//
// TaskService owns the rules the stores do not know about: a new task is
// Active only when no other task is, at most one task is Active at any time,
// and finishing the Active task promotes the oldest Upcoming one. Mutations
// are serialized by a mutex so those checks and the writes that follow them
// cannot interleave.
package service
