package zoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

var ErrNoSource = errors.New("file is missing and no download URL is configured")

// Fetcher downloads model weights and label files into a local directory on first use.
type Fetcher struct {
	Client  *http.Client
	Retries uint64

	// Progress, when set, gets a bar per download.
	Progress *mpb.Progress

	// MaxElapsed bounds the whole retry loop of one download.
	MaxElapsed time.Duration
}

func NewFetcher(retries uint64) *Fetcher {
	return &Fetcher{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: 60 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   60 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       60 * time.Second,
			},
		},
		Retries:    retries,
		MaxElapsed: 5 * time.Minute,
	}
}

// Fetch makes sure dest exists, downloading it from url when it does not.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return nil
	}
	if url == "" {
		return fmt.Errorf("%s: %w", dest, ErrNoSource)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	if f.MaxElapsed > 0 {
		b.MaxElapsedTime = f.MaxElapsed
	}

	slog.Info("Downloading", slog.String("url", url), slog.String("dest", dest))
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := f.download(ctx, url, dest)
		if err != nil && !isPermanent(err) {
			slog.Warn("Download failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, f.Retries), ctx))
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	return nil
}

func isPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	tmpPath := dest + ".tmp"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("download failed with status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create file: %w", err))
	}
	defer out.Close()

	var body io.Reader = resp.Body
	var bar *mpb.Bar
	if f.Progress != nil {
		bar = f.Progress.AddBar(max(resp.ContentLength, 0),
			mpb.PrependDecorators(
				decor.Name(filepath.Base(dest), decor.WC{W: 30, C: decor.DidentRight}),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.EwmaETA(decor.ET_STYLE_GO, 90),
				decor.Name(" ] "),
				decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
			),
		)
		proxy := bar.ProxyReader(resp.Body)
		defer proxy.Close()
		body = proxy
	}

	n, err := io.Copy(out, body)
	if err == nil && resp.ContentLength > 0 && n != resp.ContentLength {
		err = fmt.Errorf("download size mismatch: expected %d, got %d", resp.ContentLength, n)
	}
	if err == nil {
		err = out.Close()
	}
	if err != nil {
		if bar != nil {
			bar.Abort(true)
		}
		os.Remove(tmpPath)
		return err
	}
	if bar != nil {
		bar.SetTotal(-1, true)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to move file: %w", err))
	}
	return nil
}
