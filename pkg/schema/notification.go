package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const NotificationSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.notifications",
	"name": "notification",
	"fields": [
		{"name": "kind", "type": "string"},
		{"name": "order_id", "type": "string"},
		{"name": "order_number", "type": "string"},
		{"name": "recipient", "type": "string"},
		{"name": "phone", "type": "string"},
		{"name": "customer_name", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "total", "type": "string"},
		{"name": "attempt", "type": "int"},
		{"name": "created_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

// NotificationV1 is a notification request for one order event.
// Money is carried as a decimal string.
type NotificationV1 struct {
	Kind         string    `avro:"kind"`
	OrderID      string    `avro:"order_id"`
	OrderNumber  string    `avro:"order_number"`
	Recipient    string    `avro:"recipient"`
	Phone        string    `avro:"phone"`
	CustomerName string    `avro:"customer_name"`
	Status       string    `avro:"status"`
	Total        string    `avro:"total"`
	Attempt      int       `avro:"attempt"`
	CreatedAt    time.Time `avro:"created_at"`
}

func NotificationV1Avro() avro.Schema {
	return avro.MustParse(NotificationSchemaTextV1)
}
