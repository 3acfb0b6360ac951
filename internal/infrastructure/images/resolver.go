package images

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Resolver derives CDN-style image URL candidates from a barcode and
// validates candidates with lightweight existence checks. Checks for all
// candidates run fully in parallel; the first confirmed image wins and
// slower in-flight checks are simply ignored.
type Resolver struct {
	httpClient   *http.Client
	imageBase    string
	checkTimeout time.Duration
	logger       *zap.Logger
}

// NewResolver creates an image resolver. checkTimeout bounds each
// individual existence check so one slow host never blocks a resolution.
func NewResolver(imageBase string, checkTimeout time.Duration, logger *zap.Logger) *Resolver {
	if checkTimeout <= 0 {
		checkTimeout = 3 * time.Second
	}
	return &Resolver{
		httpClient:   &http.Client{Timeout: checkTimeout},
		imageBase:    strings.TrimRight(imageBase, "/"),
		checkTimeout: checkTimeout,
		logger:       logger,
	}
}

// BestImage merges derived CDN candidates with the given ones, checks them
// all in parallel, and returns the first URL confirmed to serve an image
// content type, or "" when none validate.
func (r *Resolver) BestImage(ctx context.Context, barcode string, candidates ...string) string {
	urls := dedupe(append(r.DeriveCandidates(barcode), candidates...))
	if len(urls) == 0 {
		return ""
	}

	results := make(chan string, len(urls))
	for _, u := range urls {
		go func(u string) {
			if r.checkImage(ctx, u) {
				results <- u
			} else {
				results <- ""
			}
		}(u)
	}

	for range urls {
		if u := <-results; u != "" {
			return u
		}
	}
	return ""
}

// DeriveCandidates builds predictable Open Food Facts CDN paths from a
// numeric barcode without any network call. 8-digit barcodes map to a flat
// directory; longer ones split into 3/3/3/rest segments. Synthetic or
// non-numeric barcodes derive nothing.
func (r *Resolver) DeriveCandidates(barcode string) []string {
	path, ok := cdnPath(barcode)
	if !ok {
		return nil
	}
	return []string{
		fmt.Sprintf("%s/%s/front_en.400.jpg", r.imageBase, path),
		fmt.Sprintf("%s/%s/1.400.jpg", r.imageBase, path),
	}
}

func cdnPath(barcode string) (string, bool) {
	if !isNumeric(barcode) {
		return "", false
	}
	switch {
	case len(barcode) == 8:
		return barcode, true
	case len(barcode) >= 9:
		segments := []string{barcode[0:3], barcode[3:6], barcode[6:9]}
		if rest := barcode[9:]; rest != "" {
			segments = append(segments, rest)
		}
		return strings.Join(segments, "/"), true
	default:
		return "", false
	}
}

// checkImage issues a HEAD request under the per-check time budget and
// confirms the response is an image content type.
func (r *Resolver) checkImage(ctx context.Context, url string) bool {
	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("image check failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK &&
		strings.HasPrefix(resp.Header.Get("Content-Type"), "image/")
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
