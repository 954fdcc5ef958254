package providers

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/vanpelt/aura/internal/models"
)

// eventHandler turns one SSE data payload into a text delta. done ends the
// stream early.
type eventHandler func(data string) (text string, done bool, err error)

func openStream(ctx context.Context, httpClient *http.Client, provider models.Provider, req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{Provider: provider, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// scanEvents reads "data:" lines from body until the stream ends, handle
// says done, or ctx is cancelled.
func scanEvents(ctx context.Context, body io.Reader, handle eventHandler, out chan<- string) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		text, done, err := handle(data)
		if err != nil {
			return err
		}
		if text != "" {
			select {
			case out <- text:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return ctx.Err()
}
