/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main is a morph service.  Visualization hosts send their
// specs and signal values (over a WebSocket or stdin), and the
// service sends back transitions to apply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/engine"
	"github.com/Comcast/morphs/interpreters"
	"github.com/Comcast/morphs/sio"
	"github.com/Comcast/morphs/storage/bolt"
	"github.com/Comcast/morphs/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {

	var (
		coupling   = flag.String("io", "ws", `IO protocol: "std" or "ws"`)
		morphDir   = flag.String("morphs", "morphs", "Directory of morph files")
		watch      = flag.Bool("watch", true, "Reload morphs when their files change")
		evaluator  = flag.String("evaluator", "goja", "Expression evaluator")
		dbFilename = flag.String("db", "keyframes.db", `Keyframe database ("" for memory only)`)
		frame      = flag.Duration("frame", sio.DefaultFrameInterval, "Frame interval")
		progress   = flag.Bool("progress", false, "Emit progress events")
		httpAddr   = flag.String("http", "localhost:8080", `HTTP service for WebSockets and /metrics ("" for none)`)

		mqttBroker   = flag.String("mqtt-broker", "", "MQTT broker for mqtt signals (e.g. tcp://localhost)")
		mqttPort     = flag.Int("mqtt-port", 1883, "MQTT broker port")
		mqttClientId = flag.String("mqtt-client-id", "", "MQTT client id")
		mqttUser     = flag.String("mqtt-user", "", "MQTT username")
		mqttPassword = flag.String("mqtt-password", "", "MQTT password")

		wait      = flag.Duration("wait", time.Second, "Wait this long before shutting down after input EOF")
		haltOnEOF = flag.Bool("halt-on-eof", false, "Stop on input EOF")
		verbose   = flag.Bool("v", false, "Verbose")
		help      = flag.Bool("h", false, "Get usage")
	)

	flag.Parse()

	if *help {
		flag.PrintDefaults()

		{
			fmt.Fprintf(os.Stderr, "\n-io ws (default):\n\n")
			_, fs := NewWebSocketCouplings(nil)
			fs.PrintDefaults()
		}

		{
			fmt.Fprintf(os.Stderr, "\n-io std:\n\n")
			_, fs := NewStdCouplings(nil)
			fs.PrintDefaults()
		}

		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	eval, have := interpreters.Find(*evaluator)
	if !have {
		log.Fatalf("unknown evaluator %q", *evaluator)
	}

	e := engine.NewEngine(eval)
	e.Ctx = ctx
	e.Debug = *verbose
	if *verbose {
		util.Logging = true
	}

	metrics := sio.NewMetrics(prometheus.DefaultRegisterer)
	metrics.Instrument(e)

	if err := registerProviders(e, *verbose); err != nil {
		log.Fatal(err)
	}

	if *mqttBroker != "" {
		o := sio.DefaultMQTTOptions()
		o.Broker = *mqttBroker
		o.Port = *mqttPort
		o.ClientId = *mqttClientId
		o.UserName = *mqttUser
		o.Password = *mqttPassword
		o.Reconnect = true
		client, err := NewMQTTSignals(e, o)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Disconnect(100)
	}

	var (
		cio sio.Couplings
		ws  *WebSocketCouplings
		std *sio.Stdio
	)
	switch *coupling {
	case "std":
		std, _ = NewStdCouplings(flag.Args())
		cio = std
	case "ws":
		ws, _ = NewWebSocketCouplings(flag.Args())
		ws.Verbose = *verbose
		cio = ws
	default:
		log.Fatalf("unknown io: '%s'", *coupling)
	}

	switch {
	case std != nil && std.Store != nil:
		e.Store = std.Store
	case *dbFilename != "":
		db, err := bolt.NewStorage(*dbFilename)
		if err != nil {
			log.Fatal(err)
		}
		db.Debug = *verbose
		if err = db.Open(); err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		e.Store = db
	}

	if err := cio.Start(ctx); err != nil {
		log.Fatal(err)
	}

	conf := &sio.SessionConf{
		FrameInterval:  *frame,
		Progress:       *progress,
		HaltOnInputEOF: *haltOnEOF,
	}

	s, err := sio.NewSession(ctx, conf, e, cio)
	if err != nil {
		log.Fatal(err)
	}
	s.Verbose = *verbose
	s.Metrics = metrics

	morphs, errs := core.ReadMorphDir(*morphDir)
	for _, err := range errs {
		log.Printf("ERROR reading morphs: %s", err)
	}
	for _, err := range s.Load(morphs) {
		log.Printf("ERROR loading morphs: %s", err)
	}
	log.Printf("loaded %d morph(s) from %s", len(morphs), *morphDir)

	if *watch {
		w, err := s.WatchMorphs(ctx, *morphDir)
		if err != nil {
			log.Printf("ERROR not watching %s: %s", *morphDir, err)
		} else {
			defer w.Stop()
		}
	}

	if std != nil {
		go func() {
			select {
			case <-ctx.Done():
			case <-std.InputEOF:
				log.Printf("input EOF (waiting %v)", *wait)
				time.Sleep(*wait)
				cancel()
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.Loop(gctx)
		cancel()
		return err
	})

	if *httpAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "\"pong\"\n")
		})
		if ws != nil {
			mux.Handle(ws.Path, ws)
		}

		server := &http.Server{
			Addr:    *httpAddr,
			Handler: mux,
		}

		g.Go(func() error {
			log.Printf("listening on %s", *httpAddr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdown, done := context.WithTimeout(context.Background(), *wait)
			defer done()
			return server.Shutdown(shutdown)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("ERROR %s", err)
	}

	if err = cio.Stop(context.Background()); err != nil {
		log.Printf("error from io.Stop: %v", err)
	}
}

func E(err error, args ...interface{}) error {
	log.Printf("error %s: %v", err, args)
	return err
}

// NewMQTTSignals connects to a broker and registers the "mqtt" signal
// provider.
func NewMQTTSignals(e *engine.Engine, o *sio.MQTTOptions) (mqtt.Client, error) {
	client, err := sio.NewMQTTClient(o)
	if err != nil {
		return nil, err
	}
	if t := client.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	e.Signals.Register("mqtt", &sio.MQTTProvider{
		Client:     client,
		SubTimeout: 10 * time.Second,
	})
	return client, nil
}

// registerProviders adds the "http" and "cron" signal sources.
func registerProviders(e *engine.Engine, verbose bool) error {
	hp, err := sio.NewHTTPProvider()
	if err != nil {
		return err
	}
	hp.Debug = verbose
	e.Signals.Register("http", hp)
	e.Signals.Register("cron", &sio.CronProvider{})
	return nil
}
