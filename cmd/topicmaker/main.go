package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/pkg/sigctx"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

const (
	partitions        = 3
	replicationFactor = 3
	deletePolicy      = "delete"
	compactPolicy     = "compact"
)

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()

	cl := createClient(cfg)
	defer cl.Close()

	statsTable := toGroupTable(cfg.Broker.Consumers.EmailStatsGroup)

	printStart(
		cfg.Broker.Topics.Notifications,
		cfg.Broker.Topics.EmailMetricEvents,
		statsTable,
	)
	defer printComplete(time.Now())

	// regular topics
	err := makeTopics(
		sigCtx, cl, deletePolicy,
		cfg.Broker.Topics.Notifications,
		cfg.Broker.Topics.EmailMetricEvents,
	)
	if err != nil {
		printFail(err)
		return
	}

	// group table topics
	err = makeTopics(sigCtx, cl, compactPolicy, statsTable)
	if err != nil {
		printFail(err)
		return
	}
}

func createClient(cfg config.Config) *kadm.Client {
	b := cfg.Broker
	opts := []kgo.Opt{kgo.SeedBrokers(b.SeedBrokers...)}

	if b.TLS.Enabled() {
		tlsConfig, err := adapter.MakeTLSConfig(b.TLS.CA, b.TLS.Cert, b.TLS.Key)
		if err != nil {
			panic(err)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}
	if b.SASL.User != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: b.SASL.User,
			Pass: b.SASL.Pass,
		}.AsMechanism()))
	}

	cl, err := kadm.NewOptClient(opts...)
	if err != nil {
		panic(err) // develop mistake
	}
	return cl
}

func makeTopics(
	ctx context.Context, cl *kadm.Client, cleanupPolicy string, topics ...string,
) error {
	var (
		minISR = "1"
	)

	config := map[string]*string{
		"cleanup.policy":      &cleanupPolicy,
		"min.insync.replicas": &minISR,
	}

	responses, err := cl.CreateTopics(
		ctx,
		partitions,
		replicationFactor,
		config,
		topics...,
	)

	if err != nil {
		return err
	}

	var errs []error
	for _, res := range responses.Sorted() {
		err := res.Err
		if err != nil {
			if errors.Is(res.Err, kerr.TopicAlreadyExists) {
				fmt.Printf("topic: %q already exists\n", res.Topic)
			} else {
				errs = append(errs, err)
			}
			continue
		}
		fmt.Printf("topic: %q successfully created\n", res.Topic)
	}

	return errors.Join(errs...)
}

func printStart(topics ...string) {
	fmt.Println("initializing topics...")
	for _, t := range topics {
		fmt.Printf("\t- %q\n", t)
	}
	fmt.Println()
}

func printComplete(start time.Time) {
	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

func printFail(err error) {
	fmt.Printf("failed to create topics: \n%s\n", err)
}

func toGroupTable(group string) string {
	return string(goka.GroupTable(goka.Group(group)))
}
