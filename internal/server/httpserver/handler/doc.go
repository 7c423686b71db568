// Package handler provides HTTP request handlers for bookcache.
//
// Entry endpoints map onto the storage manager operations:
//
//	PUT    /v1/entries/{key}        store
//	GET    /v1/entries/{key}        retrieve
//	DELETE /v1/entries/{key}        remove
//	DELETE /v1/entries              clear all
//	GET    /v1/stats                per-tier statistics
//	POST   /v1/maintenance/purge    remove expired and corrupt entries
//
// All JSON responses share the Response envelope.
package handler
