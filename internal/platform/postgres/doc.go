// Package postgres stores tasks in PostgreSQL through the pgx database/sql
// driver. Schema migrations are embedded and applied with goose; driver
// errors are mapped onto the store and domain sentinels by MapError.
package postgres
