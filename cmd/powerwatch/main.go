package main

import (
	"context"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/nergy-se/powersampler/pkg/mqtt"
	"github.com/sirupsen/logrus"
)

// powerwatch runs a broker and logs every reading published to it.
func main() {
	address := flag.String("addr", ":1883", "listen address")
	filter := flag.String("filter", "power/+/power", "topic filter")
	flag.Parse()

	// Create signals channel to run server until interrupted
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wg := &sync.WaitGroup{}
	server, err := mqtt.Start(ctx, wg, *address)
	if err != nil {
		logrus.Fatal(err)
	}

	err = mqtt.SubscribeReadings(server, *filter, 1, func(topic string, r power.Reading) {
		logrus.WithFields(logrus.Fields{
			"topic": topic,
			"power": r.Power,
			"seq":   r.Seq,
			"time":  r.Time,
		}).Info("reading")
	})
	if err != nil {
		logrus.Fatal(err)
	}

	wg.Wait()
}
