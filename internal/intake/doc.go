// ABOUTME: Document intake pipeline for restricted uploads.
// ABOUTME: Classifies, archives, and grants channel access per upload event.

// Package intake implements the document intake pipeline. Each upload to
// the intake channel produces two racing platform events, a file-shared
// notification and a chat message; the pipeline handles both streams
// independently and relies on idempotent transitions plus a dedupe guard
// rather than ordering or locks.
//
// A qualifying upload moves through a fixed sequence of states: the file
// is classified against the configured document signature, downloaded,
// removed from the platform, routed to its project channel by filename,
// verified against the previous submission by byte size, archived to
// external storage, and finally the uploader is granted access to the
// routed channel. Every reachable branch ends with an ephemeral
// notification to the uploader.
package intake
