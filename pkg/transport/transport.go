// Package transport defines the request/response contract the datastore dispatches
// through, and an implementation on top of net/http.
package transport

import (
	"context"
	"fmt"
	"net/http"
)

// Supported request methods
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodPatch  = http.MethodPatch
	MethodDelete = http.MethodDelete
)

// IsSupportedMethod reports whether the datastore can dispatch the method
func IsSupportedMethod(method string) bool {
	switch method {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// Request is one outgoing call
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is what the transport returns for any status it does not treat as failure
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the resolved URL after redirects
	URL string
}

// NotModified reports a 304 response
func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Location returns the Location header
func (r *Response) Location() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Location")
}

// ETag returns the ETag header
func (r *Response) ETag() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("ETag")
}

// Transport issues requests
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Transport interface
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// StatusError is returned for non-2xx responses other than 304
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// RequestOptions are headers and query parameters attached to a request
type RequestOptions struct {
	Params  map[string]string
	Headers map[string]string
}

// Clone returns a deep copy; nil yields an empty value
func (o *RequestOptions) Clone() *RequestOptions {
	clone := &RequestOptions{
		Params:  make(map[string]string),
		Headers: make(map[string]string),
	}
	if o == nil {
		return clone
	}
	for k, v := range o.Params {
		clone.Params[k] = v
	}
	for k, v := range o.Headers {
		clone.Headers[k] = v
	}
	return clone
}

// Merge layers the given options over o, later tiers winning, and returns a new value
func (o *RequestOptions) Merge(tiers ...*RequestOptions) *RequestOptions {
	merged := o.Clone()
	for _, tier := range tiers {
		if tier == nil {
			continue
		}
		for k, v := range tier.Params {
			merged.Params[k] = v
		}
		for k, v := range tier.Headers {
			merged.Headers[k] = v
		}
	}
	return merged
}

// SetHeader sets a header, allocating the map when needed
func (o *RequestOptions) SetHeader(key, value string) {
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	o.Headers[key] = value
}

// HTTPHeader converts the option headers into an http.Header
func (o *RequestOptions) HTTPHeader() http.Header {
	header := make(http.Header)
	if o == nil {
		return header
	}
	for k, v := range o.Headers {
		header.Set(k, v)
	}
	return header
}
