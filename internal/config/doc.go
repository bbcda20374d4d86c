// Package config handles configuration loading for wardroom.
//
// Configuration is loaded from a YAML file with environment variable
// expansion (${VAR_NAME}) and Go duration syntax for intervals:
//
//	server:
//	  http_addr: "0.0.0.0:3000"
//	slack:
//	  access_token: "${WARDROOM_SLACK_ACCESS_TOKEN}"
//	  bot_token: "${WARDROOM_SLACK_BOT_TOKEN}"
//	  signing_secret: "${WARDROOM_SLACK_SIGNING_SECRET}"
//	limiter:
//	  min_interval: "2s"
//	intake:
//	  channel_id: "C0NDAINTAKE"
//	  admins: ["U0ADMIN1", "U0ADMIN2"]
//	  filetype: "pdf"
//	  name_separator: "-"
//	  channel_prefix: "dd-"
//	  ack_message_delete: false
//	storage:
//	  dropbox_token: "${WARDROOM_DROPBOX_TOKEN}"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Load() validates required fields and rejects malformed durations.
package config
