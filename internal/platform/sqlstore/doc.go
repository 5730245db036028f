// Package sqlstore implements store.TaskStore over database/sql.
//
// The SQL is shared between backends; a Dialect supplies what differs
// between them: placeholder syntax and driver error translation. The
// postgres and sqlite packages build on it.
package sqlstore
