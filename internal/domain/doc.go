// Package domain defines the task record, its status lifecycle and the
// ordering rules shared by the server and the client.
package domain
