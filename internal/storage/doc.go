// Package storage archives verified documents to external object storage.
package storage
