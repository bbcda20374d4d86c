// Package platform defines the data model and adapter contracts for the
// chat platform and the archival storage backend, plus the error taxonomy
// shared by every engine that talks to them.
package platform
