// Package main provides the entry point for bookcache-cli.
//
// Usage:
//
//	bookcache-cli -c /etc/bookcache/bookcache.yaml put -t book book:1 '{"title":"Dune"}'
//	bookcache-cli -s localhost:5080 get book:1
//	bookcache-cli -s localhost:5080 -o yaml stats
//
// Opening a badger directory locally requires the server to be stopped;
// use --server against a running instance.
package main
