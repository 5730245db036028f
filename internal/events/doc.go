// Package events carries task change notifications from the service layer
// to interested components without coupling them together.
//
// The service emits a TaskEvent after every successful write. Handlers
// registered on the emitter decide what to do with it: the API's websocket
// hub forwards it to connected clients and the logging handler records it.
package events
