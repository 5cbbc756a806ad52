package sats

// Field names that mark a single-field product as a platform special type.
const (
	IdentityField     = "__identity__"
	ConnectionIDField = "__connection_id__"
	TimestampField    = "__timestamp_micros_since_unix_epoch__"
	TimeDurationField = "__time_duration_micros__"
)

// Well-known metadata keys written on Arrow schemas produced by this package.
const (
	MetaModule        = "sats.module"
	MetaTable         = "sats.table"
	MetaPrimaryKey    = "sats.primary_key"
	MetaType          = "sats.type"
	MetaFormatVersion = "sats.format_version"

	FormatVersion = "1"
)
