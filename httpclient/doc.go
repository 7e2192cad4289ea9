/*
Package httpclient traces outgoing HTTP client calls with opentracing.

Transport is an http.RoundTripper decorator. When the request context
carries an active span it starts a child "http-client" span, optionally
propagates the trace and span ids to the remote peer through request
headers, and follows the exchange until the response body reaches EOF, is
closed, or fails. Exactly one of those terminal events finishes the span.
Requests without an active span pass through untouched.

	client, err := httpclient.WrapClient(http.DefaultClient, tracer, httpclient.Config{
		RemoteTracing:  true,
		RecordResponse: true,
	})
	...
	resp, err := client.Do(req.WithContext(opentracing.ContextWithSpan(ctx, parent)))

Span tags follow the names below (http.method, http.status_code, ...). A
request that never reached a response is tagged http.status_code=-1 with an
http.error_code such as ECONNREFUSED.
*/
package httpclient
