// Package breach checks passwords against the Have I Been Pwned range API.
// Only the first five hex characters of the password's SHA-1 leave the
// process.
package breach

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultEndpoint = "https://api.pwnedpasswords.com/range/"
	DefaultTimeout  = 3 * time.Second
)

type HIBP struct {
	client    *fasthttp.Client
	endpoint  string
	timeout   time.Duration
	threshold int
}

type Option func(*HIBP)

func WithEndpoint(endpoint string) Option {
	return func(h *HIBP) {
		if endpoint != "" {
			h.endpoint = endpoint
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(h *HIBP) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithThreshold sets how many sightings make a password breached.
func WithThreshold(n int) Option {
	return func(h *HIBP) {
		if n > 0 {
			h.threshold = n
		}
	}
}

func NewHIBP(opts ...Option) *HIBP {
	h := &HIBP{
		client:    &fasthttp.Client{Name: "streamguard"},
		endpoint:  DefaultEndpoint,
		timeout:   DefaultTimeout,
		threshold: 1,
	}
	for _, opt := range opts {
		opt(h)
	}
	if !strings.HasSuffix(h.endpoint, "/") {
		h.endpoint += "/"
	}
	return h
}

func (h *HIBP) Breached(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:5], digest[5:]

	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.endpoint + prefix)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Add-Padding", "true")
	if err := h.client.DoTimeout(req, resp, timeout); err != nil {
		return false, fmt.Errorf("breach range %s: %w", prefix, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return false, fmt.Errorf("breach range %s: unexpected status %d", prefix, code)
	}
	count, err := sightings(resp.Body(), suffix)
	if err != nil {
		return false, err
	}
	return count >= h.threshold, nil
}

// sightings finds suffix in a range body of SUFFIX:COUNT lines. Padding
// entries carry a count of zero.
func sightings(body []byte, suffix string) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		hashPart, countPart, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(hashPart, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(countPart))
		if err != nil {
			return 0, fmt.Errorf("breach range: bad count %q", countPart)
		}
		return n, nil
	}
	return 0, scanner.Err()
}
