// Package mhttpd is a small embeddable HTTP/1.1 server library modeled
// on libmicrohttpd: bind a TCP socket, dispatch every request to an
// application-supplied handler, and let the host decide routing and
// business logic. It provides connection acceptance, HTTP/1.0 and
// HTTP/1.1 wire parsing, pipelined request processing, response
// serialization, and four interchangeable execution models.
//
//	env := mhttpd.DefaultEnvironment()
//	d, err := mhttpd.StartDaemon(env, mhttpd.Options{
//		BindAddress: ":8080",
//		Mode:        mhttpd.ThreadPerConnection,
//		DefaultHandler: mhttpd.HandlerFunc(func(conn *mhttpd.Connection) mhttpd.Action {
//			resp := mhttpd.CreateResponseFromBuffer([]byte("hello"), mhttpd.MakeInternalCopy)
//			mhttpd.QueueResponse(conn, 200, resp)
//			return mhttpd.Continue
//		}),
//	})
//	if err != nil {
//		// handle err
//	}
//	defer d.StopDaemon()
//
// HTTP/2, HTTP/3, a routing DSL, a templating layer, and fair scheduling
// between connections are explicitly out of scope; see spec.md §1.
package mhttpd
