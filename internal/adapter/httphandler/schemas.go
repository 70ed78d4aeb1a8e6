package httphandler

import "github.com/xeipuuv/gojsonschema"

const schemaMoney = `{"type": ["string", "number"], "pattern": "^[0-9]+(\\.[0-9]{1,2})?$", "minimum": 0}`

const schemaCheckout = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["items", "contact", "shipping_address"],
  "properties": {
    "cart_id": { "type": "string" },
    "email": { "type": "string", "maxLength": 254 },
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["slug", "price", "quantity"],
        "properties": {
          "slug": { "type": "string", "minLength": 1 },
          "price": ` + schemaMoney + `,
          "quantity": { "type": "integer" }
        },
        "additionalProperties": false
      }
    },
    "contact": {
      "type": "object",
      "required": ["first_name"],
      "properties": {
        "first_name": { "type": "string" },
        "last_name": { "type": "string" },
        "email": { "type": "string", "maxLength": 254 },
        "phone": { "type": "string", "maxLength": 32 }
      },
      "additionalProperties": false
    },
    "shipping_address": {
      "type": "object",
      "required": ["line1", "city", "country"],
      "properties": {
        "line1": { "type": "string" },
        "line2": { "type": "string" },
        "city": { "type": "string" },
        "state": { "type": "string" },
        "postal_code": { "type": "string" },
        "country": { "type": "string" }
      },
      "additionalProperties": false
    },
    "notes": { "type": "string", "maxLength": 2000 }
  },
  "additionalProperties": false
}`

const schemaCartItem = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["slug", "quantity"],
  "properties": {
    "slug": { "type": "string", "minLength": 1 },
    "quantity": { "type": "integer", "minimum": 0 }
  },
  "additionalProperties": false
}`

const schemaProduct = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["slug", "name", "price", "category_id"],
  "properties": {
    "slug": { "type": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$" },
    "name": { "type": "string", "minLength": 1 },
    "description": { "type": "string" },
    "price": ` + schemaMoney + `,
    "stock": { "type": "integer", "minimum": 0 },
    "status": { "enum": ["ACTIVE", "INACTIVE"] },
    "features": { "type": "array", "items": { "type": "string" } },
    "image_url": { "type": "string" },
    "category_id": { "type": "string", "format": "uuid" }
  },
  "additionalProperties": false
}`

const schemaCategory = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["slug", "name"],
  "properties": {
    "slug": { "type": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$" },
    "name": { "type": "string", "minLength": 1 },
    "description": { "type": "string" },
    "image_url": { "type": "string" }
  },
  "additionalProperties": false
}`

const schemaStatus = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": { "type": "string", "minLength": 1 }
  },
  "additionalProperties": false
}`

const schemaRole = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["role"],
  "properties": {
    "role": { "type": "string", "minLength": 1 }
  },
  "additionalProperties": false
}`

const schemaUserEvent = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "data"],
  "properties": {
    "type": { "type": "string" },
    "data": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 }
      }
    }
  }
}`

var (
	checkoutLoader  = gojsonschema.NewStringLoader(schemaCheckout)
	cartItemLoader  = gojsonschema.NewStringLoader(schemaCartItem)
	productLoader   = gojsonschema.NewStringLoader(schemaProduct)
	categoryLoader  = gojsonschema.NewStringLoader(schemaCategory)
	statusLoader    = gojsonschema.NewStringLoader(schemaStatus)
	roleLoader      = gojsonschema.NewStringLoader(schemaRole)
	userEventLoader = gojsonschema.NewStringLoader(schemaUserEvent)
)
