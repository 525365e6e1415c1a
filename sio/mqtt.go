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

package sio

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/signal"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient is the part of mqtt.Client that MQTTProvider uses.
type MQTTClient interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// MQTTProvider makes "mqtt" signals.  The signal's target is a topic
// (optionally TOPIC:QOS), and each message's payload becomes the
// signal's value.
//
// Parameters: "qos", "property" (a path into a JSON payload).
type MQTTProvider struct {
	Client MQTTClient

	// SubTimeout bounds the wait for a subscription to be
	// acknowledged.  Zero means don't wait.
	SubTimeout time.Duration
}

func (p *MQTTProvider) Make(env *signal.Env, spec *core.SignalSpec) (*signal.Signal, error) {
	if spec.Target == "" {
		return nil, &core.BadMorph{Reason: `mqtt signal "` + spec.Name + `" has no topic`}
	}
	topic, qos := parseTopic(spec.Target)
	if s := spec.Param("qos", ""); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || 2 < n {
			return nil, &core.BadMorph{Reason: fmt.Sprintf(`mqtt signal "%s" has bad qos "%s"`, spec.Name, s)}
		}
		qos = byte(n)
	}
	initial, err := core.Of(spec.Value)
	if err != nil {
		return nil, err
	}
	path := core.SplitPath(spec.Param("property", ""))

	return signal.New(spec.Name, func(emit func(core.Value)) func() {
		if spec.Value != nil {
			emit(initial)
		}
		handler := func(_ mqtt.Client, m mqtt.Message) {
			v, err := payloadValue(m.Payload(), path)
			if err != nil {
				log.Printf("warning: mqtt signal %s: %s", spec.Name, err)
				return
			}
			env.Scheduler.Post(func() {
				emit(v)
			})
		}
		t := p.Client.Subscribe(topic, qos, handler)
		if 0 < p.SubTimeout {
			if t.WaitTimeout(p.SubTimeout) && t.Error() != nil {
				log.Printf("warning: mqtt signal %s subscription to %s: %s", spec.Name, topic, t.Error())
			}
		}
		return func() {
			p.Client.Unsubscribe(topic)
		}
	}), nil
}

// MQTTOptions follow mosquitto_sub command line args.
type MQTTOptions struct {
	Broker    string
	Port      int
	ClientId  string
	KeepAlive int
	UserName  string
	Password  string
	Reconnect bool
	Clean     bool

	CertFilename string
	KeyFilename  string
	Insecure     bool
	CAFilename   string
	CAPath       string
}

func DefaultMQTTOptions() *MQTTOptions {
	return &MQTTOptions{
		Broker:    "tcp://localhost",
		Port:      1883,
		KeepAlive: 10,
		Clean:     true,
	}
}

// NewMQTTClient makes (but does not connect) a client.
func NewMQTTClient(o *MQTTOptions) (mqtt.Client, error) {
	mqtt.ERROR = log.New(os.Stderr, "mqtt.error", 0)

	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("%s:%d", o.Broker, o.Port))
	opts.SetClientID(o.ClientId)
	opts.SetKeepAlive(time.Second * time.Duration(o.KeepAlive))

	opts.Username = o.UserName
	opts.Password = o.Password
	opts.AutoReconnect = o.Reconnect
	opts.CleanSession = o.Clean

	var rootCAs *x509.CertPool
	if o.CAPath != "" {
		if rootCAs, _ = x509.SystemCertPool(); rootCAs == nil {
			rootCAs = x509.NewCertPool()
			log.Printf("Including system CA certs")
		}
		caPath := o.CAPath
		if !strings.HasSuffix(caPath, "/") {
			caPath += "/"
		}
		filename := caPath + o.CAFilename
		certs, err := ioutil.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("couldn't read '%s': %w", filename, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			log.Println("No certs appended, using system certs only")
		}
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: o.Insecure,
	}
	if rootCAs != nil {
		tlsConf.RootCAs = rootCAs
	}
	if o.KeyFilename != "" {
		cert, err := tls.LoadX509KeyPair(o.CertFilename, o.KeyFilename)
		if err != nil {
			return nil, err
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	opts.SetTLSConfig(tlsConf)

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %s", err)
	}

	return mqtt.NewClient(opts), nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
