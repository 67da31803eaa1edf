package main

import (
	"bytes"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/lumenhttp/mhttpd"
)

// negotiateEncoding picks the best content-coding this handler can
// produce for the client's Accept-Encoding header. Preferring br over
// gzip mirrors what most reverse proxies in front of a libmicrohttpd-
// style origin do when both are available.
func negotiateEncoding(acceptEncoding string) string {
	switch {
	case strings.Contains(acceptEncoding, "br"):
		return "br"
	case strings.Contains(acceptEncoding, "gzip"):
		return "gzip"
	default:
		return ""
	}
}

// compressResponse builds a from_callback Response (spec §4.3) that
// serves payload pre-compressed under encoding. The whole payload is
// compressed once into memory rather than streamed chunk-by-chunk: the
// demo payload is small and bounded, so a PullCallback that hands out
// slices of an already-compressed buffer is enough to exercise both
// compression libraries through the real callback-sourced response path
// without the added complexity of a streaming pipe.
func compressResponse(payload []byte, encoding string) (*mhttpd.Response, error) {
	var buf bytes.Buffer
	switch encoding {
	case "br":
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "gzip":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return mhttpd.CreateResponseFromBuffer(payload, mhttpd.MakeInternalCopy), nil
	}

	compressed := buf.Bytes()
	resp := mhttpd.CreateResponseFromCallback(&mhttpd.PullCallback{
		SizeHint:  mhttpd.Known(int64(len(compressed))),
		BlockSize: 4096,
		Fetch: func(pos int64, out []byte) (int, mhttpd.FetchResult) {
			if pos >= int64(len(compressed)) {
				return 0, mhttpd.FetchError
			}
			n := copy(out, compressed[pos:])
			return n, mhttpd.FetchResult(n)
		},
	})
	if err := resp.AddHeader("Content-Encoding", encoding); err != nil {
		return nil, err
	}
	return resp, nil
}
