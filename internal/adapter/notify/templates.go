package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/niksmo/storefront/internal/core/domain"
)

type message struct {
	Subject string
	Body    string
}

type templates struct {
	subject *template.Template
	body    *template.Template
}

var funcs = template.FuncMap{
	"name":   customerName,
	"status": statusLabel,
}

var byKind = map[domain.NotificationKind]templates{
	domain.KindOrderConfirmation: {
		subject: parse(`Order {{.OrderNumber}} received`),
		body: parse(`Hi {{name .CustomerName}},

Thank you for your order {{.OrderNumber}}.
Total: {{.Total.StringFixed 2}}

We will let you know when it ships.
`),
	},
	domain.KindStatusUpdate: {
		subject: parse(`Order {{.OrderNumber}} is now {{status .Status}}`),
		body: parse(`Hi {{name .CustomerName}},

Your order {{.OrderNumber}} is now {{status .Status}}.
`),
	},
}

func parse(text string) *template.Template {
	return template.Must(template.New("").Funcs(funcs).Parse(text))
}

func render(kind domain.NotificationKind, n domain.Notification) (message, error) {
	t, ok := byKind[kind]
	if !ok {
		return message{}, fmt.Errorf("no template for kind %q", kind)
	}

	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, n); err != nil {
		return message{}, err
	}
	if err := t.body.Execute(&bb, n); err != nil {
		return message{}, err
	}
	return message{Subject: sb.String(), Body: bb.String()}, nil
}

func customerName(s string) string {
	if s == "" {
		return "there"
	}
	return s
}

func statusLabel(s domain.OrderStatus) string {
	switch s {
	case domain.OrderPending:
		return "pending"
	case domain.OrderProcessing:
		return "being prepared"
	case domain.OrderShipped:
		return "on its way"
	case domain.OrderDelivered:
		return "delivered"
	case domain.OrderCancelled:
		return "cancelled"
	}
	return string(s)
}
