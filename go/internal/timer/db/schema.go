package db

import _ "embed"

// Schema creates the timers table, the action log and the change trigger.
//
//go:embed schema.sql
var Schema string
