package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"agentcore/internal/faults"
)

// DownloadURL is the canonical resolve URL of a remote artifact.
func (r *Resolver) DownloadURL(ref Remote) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", strings.TrimRight(r.cfg.HubBaseURL, "/"), ref.RepositoryID, ref.Filename)
}

// download streams the remote artifact into a temp file in the store and
// commits it under key. A failed or cancelled transfer leaves nothing behind.
func (r *Resolver) download(ctx context.Context, ref Remote, key string) error {
	url := r.DownloadURL(ref)
	log := r.log.With().Str("url", url).Str("key", key).Logger()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return faults.DownloadFailed(0, err)
	}
	if r.cfg.HubToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.HubToken)
	}

	log.Info().Msg("downloading artifact")
	resp, err := r.client.Do(req)
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return faults.DownloadFailed(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		downloadsTotal.WithLabelValues("http_error").Inc()
		log.Warn().Int("status", resp.StatusCode).Msg("download rejected")
		return faults.DownloadFailed(resp.StatusCode, fmt.Errorf("GET %s: %s", url, resp.Status))
	}

	tmp, err := r.store.CreateTemp()
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	n, err := io.Copy(tmp, resp.Body)
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = fmt.Errorf("short body: got %d of %d bytes: %w", n, resp.ContentLength, io.ErrUnexpectedEOF)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		downloadsTotal.WithLabelValues("interrupted").Inc()
		log.Warn().Err(err).Int64("bytes", n).Msg("download interrupted")
		return faults.DownloadFailed(0, err)
	}
	if err := r.store.Commit(key, tmp.Name()); err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return err
	}

	downloadsTotal.WithLabelValues("ok").Inc()
	downloadBytes.Add(float64(n))
	downloadDuration.Observe(time.Since(start).Seconds())
	log.Info().Int64("bytes", n).Dur("dur", time.Since(start)).Msg("artifact downloaded")
	return nil
}
