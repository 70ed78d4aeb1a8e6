package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

var (
	ErrTooFewOpts = errors.New("too few options")
)

type Serde interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// A serde frames Avro payloads with the schema registry wire header.
type serde struct {
	avroSchema avro.Schema
	srSerde    *sr.Serde
}

func (s serde) Encode(v any) ([]byte, error) {
	return s.srSerde.Encode(v)
}

func (s serde) Decode(data []byte, v any) error {
	return s.srSerde.Decode(data, v)
}

func (s serde) encodeFn(v any) ([]byte, error) {
	return avro.Marshal(s.avroSchema, v)
}

func (s serde) decodeFn(data []byte, v any) error {
	return avro.Unmarshal(s.avroSchema, data, v)
}

type Opt func(*serdeOpts) error

type serdeOpts struct {
	subject string
	si      SchemaIdentifier
}

func SubjectOpt(subject string) Opt {
	return func(so *serdeOpts) error {
		if subject == "" {
			return errors.New("subject is empty string")
		}
		so.subject = subject
		return nil
	}
}

func SchemaIdentifierOpt(si SchemaIdentifier) Opt {
	return func(so *serdeOpts) error {
		if si == nil {
			return errors.New("schema identifier is nil")
		}
		so.si = si
		return nil
	}
}

type serdeDef struct {
	op      string
	text    string
	example any
}

var (
	notificationV1Def = serdeDef{
		"NewSerdeNotificationV1", NotificationSchemaTextV1, NotificationV1{},
	}
	emailMetricEventV1Def = serdeDef{
		"NewSerdeEmailMetricEventV1", EmailMetricEventSchemaTextV1, EmailMetricEventV1{},
	}
	emailStatsV1Def = serdeDef{
		"NewSerdeEmailStatsV1", EmailStatsSchemaTextV1, EmailStatsV1{},
	}
)

// NewSerdeNotificationV1 requires [SubjectOpt] and [SchemaIdentifierOpt].
func NewSerdeNotificationV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde(ctx, notificationV1Def, opts)
}

func NewSerdeEmailMetricEventV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde(ctx, emailMetricEventV1Def, opts)
}

func NewSerdeEmailStatsV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde(ctx, emailStatsV1Def, opts)
}

func (so *serdeOpts) apply(opts []Opt) error {
	for _, o := range opts {
		if err := o(so); err != nil {
			return err
		}
	}
	if so.subject == "" || so.si == nil {
		return ErrTooFewOpts
	}
	return nil
}

func newSerde(ctx context.Context, def serdeDef, opts []Opt) (Serde, error) {
	var so serdeOpts
	if err := so.apply(opts); err != nil {
		return serde{}, fmt.Errorf("%s: %w", def.op, err)
	}

	avroSchema, err := avro.Parse(def.text)
	if err != nil {
		return serde{}, fmt.Errorf("%s: %w", def.op, err)
	}

	id, err := so.si.DetermineID(ctx, so.subject, def.text)
	if err != nil {
		return serde{}, fmt.Errorf("%s: subject %q: %w", def.op, so.subject, err)
	}

	s := serde{avroSchema: avroSchema, srSerde: new(sr.Serde)}
	s.srSerde.Register(
		id,
		def.example,
		sr.EncodeFn(s.encodeFn),
		sr.DecodeFn(s.decodeFn),
	)
	return s, nil
}
