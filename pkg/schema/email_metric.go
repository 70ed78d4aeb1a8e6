package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const EmailMetricEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.notifications",
	"name": "email_metric_event",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "kind", "type": "string"},
		{"name": "channel", "type": "string"},
		{"name": "recipient", "type": "string"},
		{"name": "order_id", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "attempt", "type": "int"},
		{"name": "error", "type": "string", "default": ""},
		{"name": "created_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

const EmailStatsSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.notifications",
	"name": "email_stats",
	"fields": [
		{"name": "kind", "type": "string"},
		{"name": "sent", "type": "long"},
		{"name": "failed", "type": "long"},
		{"name": "retry", "type": "long"}
	]
}`

type (
	EmailMetricEventV1 struct {
		ID        string    `avro:"id"`
		Kind      string    `avro:"kind"`
		Channel   string    `avro:"channel"`
		Recipient string    `avro:"recipient"`
		OrderID   string    `avro:"order_id"`
		Status    string    `avro:"status"`
		Attempt   int       `avro:"attempt"`
		Error     string    `avro:"error"`
		CreatedAt time.Time `avro:"created_at"`
	}

	// EmailStatsV1 is the running delivery counter of one notification kind.
	EmailStatsV1 struct {
		Kind   string `avro:"kind"`
		Sent   int64  `avro:"sent"`
		Failed int64  `avro:"failed"`
		Retry  int64  `avro:"retry"`
	}
)

func EmailMetricEventV1Avro() avro.Schema {
	return avro.MustParse(EmailMetricEventSchemaTextV1)
}

func EmailStatsV1Avro() avro.Schema {
	return avro.MustParse(EmailStatsSchemaTextV1)
}
