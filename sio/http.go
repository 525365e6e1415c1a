package sio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/signal"

	"golang.org/x/net/publicsuffix"
)

// DefaultPollInterval is how often an "http" signal polls when its
// declaration doesn't say.
var DefaultPollInterval = 5 * time.Second

type Jar struct {
	*cookiejar.Jar
	Kookies []*http.Cookie `json:"cookies"`
}

func NewJar() (*Jar, error) {
	cookieJar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{Jar: cookieJar}, nil
}

func (j *Jar) AddCookies(cs []*http.Cookie) {
	if j.Kookies == nil {
		j.Kookies = make([]*http.Cookie, 0, 2*len(cs))
	}
	j.Kookies = append(j.Kookies, cs...)
}

// HTTPRequest is something I should quit re-implementing over and
// over.
type HTTPRequest struct {
	Method    string      `json:"method,omitempty"`
	URL       string      `json:"url"`
	Body      string      `json:"body,omitempty"`
	Headers   http.Header `json:"headers,omitempty"`
	CookieJar *Jar        `json:"jar,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

type HTTPResponse struct {
	StatusCode int         `json:"statusCode"`
	Status     string      `json:"status"`
	Error      error       `json:"error,omitempty"`
	Headers    http.Header `json:"headers,omitempty"`
	Body       string      `json:"body,omitempty"`
}

func (r *HTTPRequest) logf(format string, args ...interface{}) {
	if r.Debug {
		log.Printf(format, args...)
	}
}

// Do is the low-level, synchronous method to make the request and
// call the handler with the result.
func (r *HTTPRequest) Do(ctx context.Context, handler func(context.Context, *HTTPResponse) error) error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return err
	}

	method := r.Method
	if method == "" {
		method = "GET"
	}

	var body *bytes.Reader
	if r.Body != "" {
		body = bytes.NewReader([]byte(r.Body))
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if body != nil {
		req.Body = ioutil.NopCloser(body)
		req.ContentLength = int64(body.Len())
	}
	for k, vs := range r.Headers {
		req.Header[k] = vs
	}

	// http.Client does cookie jars, but http.Clients cache
	// connections, so we don't want one per request.  Instead we
	// use the jar by hand.
	if r.CookieJar != nil {
		for i, cookie := range r.CookieJar.Cookies(u) {
			r.logf("adding cookie %d: %#v", i, cookie)
			req.AddCookie(cookie)
		}
	}

	result := &HTTPResponse{}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		r.logf("HTTPRequest.Do Do error %v", err)
		result.Error = err
		return handler(ctx, result)
	}
	defer resp.Body.Close()

	result.Headers = resp.Header
	result.Status = resp.Status
	result.StatusCode = resp.StatusCode

	bs, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		r.logf("HTTPRequest.Do ReadAll error %v", err)
		result.Error = err
		return handler(ctx, result)
	}
	result.Body = string(bs)

	if r.CookieJar != nil {
		r.logf("HTTPRequest.Do updating cookies")
		r.CookieJar.SetCookies(u, resp.Cookies())
		r.CookieJar.AddCookies(resp.Cookies())
	}

	return handler(ctx, result)
}

// HTTPProvider makes "http" signals, which poll a URL (the signal's
// target) and emit the response body parsed as JSON.
//
// Parameters: "interval" (a duration like "2s"), "property" (a path
// into the parsed body), "method".
type HTTPProvider struct {
	// Jar is shared by all of the provider's signals.
	Jar *Jar

	Debug bool
}

func NewHTTPProvider() (*HTTPProvider, error) {
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}
	return &HTTPProvider{
		Jar: jar,
	}, nil
}

func (p *HTTPProvider) Make(env *signal.Env, spec *core.SignalSpec) (*signal.Signal, error) {
	if spec.Target == "" {
		return nil, &core.BadMorph{Reason: `http signal "` + spec.Name + `" has no target`}
	}
	interval := DefaultPollInterval
	if s := spec.Param("interval", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, &core.BadMorph{Reason: fmt.Sprintf(`http signal "%s" has bad interval "%s"`, spec.Name, s)}
		}
		interval = d
	}

	var (
		path = core.SplitPath(spec.Param("property", ""))
		req  = &HTTPRequest{
			Method:    spec.Param("method", "GET"),
			URL:       spec.Target,
			CookieJar: p.Jar,
			Debug:     p.Debug,
		}
	)

	return signal.New(spec.Name, func(emit func(core.Value)) func() {
		ctx, cancel := context.WithCancel(env.Ctx)
		go func() {
			var (
				last core.Value
				has  bool
				t    = time.NewTicker(interval)
			)
			defer t.Stop()
			for {
				v, err := p.poll(ctx, req, path)
				switch {
				case err != nil:
					if ctx.Err() == nil {
						log.Printf("warning: http signal %s: %s", spec.Name, err)
					}
				case !has || !last.Equal(v):
					last, has = v, true
					env.Scheduler.Post(func() {
						emit(v)
					})
				}
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
			}
		}()
		return cancel
	}), nil
}

func (p *HTTPProvider) poll(ctx context.Context, req *HTTPRequest, path []string) (core.Value, error) {
	var v core.Value
	err := req.Do(ctx, func(ctx context.Context, resp *HTTPResponse) error {
		if resp.Error != nil {
			return resp.Error
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s from %s", resp.Status, req.URL)
		}
		x, err := payloadValue([]byte(resp.Body), path)
		if err != nil {
			return err
		}
		v = x
		return nil
	})
	return v, err
}

// payloadValue parses a message body as JSON (falling back to the
// body as a string) and extracts the value at the path.
func payloadValue(bs []byte, path []string) (core.Value, error) {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		x = string(bs)
	}
	if 0 < len(path) {
		y, have := core.GetPath(x, path)
		if !have {
			return core.Value{}, nil
		}
		x = y
	}
	return core.Of(x)
}
