// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// freestuff-bridge bridges FreeStuff API webhooks into Matrix. It
// registers with a homeserver as an application service, auto-joins
// rooms it is invited to, and announces free game drops to every
// joined room.
//
// Configuration comes from environment variables, overridable with
// flags:
//
//	HOMESERVER_URL            base URL of the Matrix homeserver (required)
//	APPSERVICE_REGISTRATION   path to the appservice registration YAML
//	                          (required; generated on first run)
//	WEBHOOK_ADDR              listen address (default 0.0.0.0:3000)
//	WEBHOOK_PATH              webhook endpoint path (default /)
//	WEBHOOK_SECRET            shared secret for webhook events (optional)
//	FREESTUFF_METRICS_LISTEN  Prometheus metrics listen address
//	                          (optional; metrics disabled when unset)
package main
