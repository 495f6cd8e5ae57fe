package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/library-lifecycle/internal/config"
)

// captureWriter copies the response body while forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// ResponseCache stores successful GET responses of catalog routes. Entries
// live in Redis when a client is configured and in a process-local
// expirable LRU otherwise. Any successful write through Invalidate bumps a
// generation number that is part of every key, so stale pages are never
// served after a book or author changes.
type ResponseCache struct {
	cfg   config.CacheConfig
	rdb   *redis.Client
	local *expirable.LRU[string, []byte]
	gen   atomic.Int64
	log   zerolog.Logger
}

// NewResponseCache returns a cache over rdb, or over a local LRU when rdb
// is nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	rc := &ResponseCache{cfg: cfg, rdb: rdb, log: log}
	if rdb == nil {
		size := cfg.LocalEntries
		if size <= 0 {
			size = 1024
		}
		rc.local = expirable.NewLRU[string, []byte](size, nil, cfg.TTL)
	}
	return rc
}

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

func (rc *ResponseCache) generation(ctx context.Context) string {
	if rc.rdb != nil {
		n, err := rc.rdb.Get(ctx, rc.genKey()).Int64()
		if err != nil && err != redis.Nil {
			rc.log.Warn().Err(err).Msg("cache generation lookup failed")
		}
		return strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(rc.gen.Load(), 10)
}

func (rc *ResponseCache) keyFor(c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "route":
		tail = "route:" + c.Path()
	case "method_route_query":
		tail = "method:" + r.Method + ":route:" + c.Path() + ":q:" + r.URL.RawQuery
	default: // route_query
		tail = "route:" + c.Path() + ":q:" + r.URL.RawQuery
	}
	tail += ":path:" + r.URL.Path + ":g:" + rc.generation(r.Context())
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

func (rc *ResponseCache) get(ctx context.Context, key string) ([]byte, bool) {
	if rc.rdb != nil {
		bs, err := rc.rdb.Get(ctx, key).Bytes()
		return bs, err == nil
	}
	return rc.local.Get(key)
}

func (rc *ResponseCache) set(key string, payload []byte) {
	if rc.rdb != nil {
		if err := rc.rdb.SetEx(context.Background(), key, payload, rc.cfg.TTL).Err(); err != nil {
			rc.log.Warn().Err(err).Msg("cache store failed")
		}
		return
	}
	rc.local.Add(key, payload)
}

// Purge drops every cached page by moving to a new generation.
func (rc *ResponseCache) Purge(ctx context.Context) {
	if rc.rdb != nil {
		if err := rc.rdb.Incr(ctx, rc.genKey()).Err(); err != nil {
			rc.log.Warn().Err(err).Msg("cache purge failed")
		}
		return
	}
	rc.gen.Add(1)
	rc.local.Purge()
}

// encodePayload packs [4 bytes status][4 bytes headerLen][headerJSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := jsoniter.ConfigFastest.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := jsoniter.ConfigFastest.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// Middleware serves cached responses and records 200 responses on a miss.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.cfg.Enabled {
		return passthrough
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := rc.keyFor(c)

			if bs, ok := rc.get(c.Request().Context(), key); ok {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				rc.set(key, payload)
			}
			return nil
		}
	}
}

// Invalidate purges the cache after a successful (2xx) write.
func (rc *ResponseCache) Invalidate() echo.MiddlewareFunc {
	if !rc.cfg.Enabled {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil && c.Response().Status >= 200 && c.Response().Status < 300 {
				rc.Purge(c.Request().Context())
			}
			return err
		}
	}
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
