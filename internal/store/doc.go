// Package store defines the task repository contract implemented by the
// memory, file and SQL backends, plus helpers the SQL backends share.
package store
