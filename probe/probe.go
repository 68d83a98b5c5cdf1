package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Checker runs one availability check against a Service.
type Checker struct {
	client *http.Client
}

// New returns a Checker whose requests are bounded by timeout.
func New(timeout time.Duration) *Checker {
	return &Checker{
		client: &http.Client{Timeout: timeout},
	}
}

// Check reports whether svc is up. Every failure, whatever its cause, is
// folded into a false verdict.
func (c *Checker) Check(ctx context.Context, svc Service) bool {
	started := time.Now()

	err := c.check(ctx, svc)

	logrus.WithFields(logrus.Fields{
		"service":  svc.Name,
		"url":      svc.URL,
		"mode":     svc.Mode(),
		"up":       err == nil,
		"duration": time.Since(started).Round(time.Millisecond),
	}).Debugf("Checked %s: %v", svc.Name, err)

	return err == nil
}

func (c *Checker) check(ctx context.Context, svc Service) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch svc.Mode() {
	case "keyword":
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if !strings.Contains(string(b), svc.Keyword) {
			return fmt.Errorf("keyword %q not in body", svc.Keyword)
		}
	case "status_code":
		if resp.StatusCode != svc.StatusCode {
			return fmt.Errorf("got status %d, want %d", resp.StatusCode, svc.StatusCode)
		}
	}

	return nil
}
