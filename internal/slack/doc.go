// Package slack implements the platform adapter contracts over the Slack
// Web API, with shared rate limiting, transient-error retries, and benign
// reject classification.
package slack
