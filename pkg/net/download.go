package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

var ErrorURLNotFound = errors.New("URL not found")

// IsRemote reports whether src is an http(s) URL rather than a local path.
func IsRemote(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func getResp(ctx context.Context, url, token string) (*http.Response, error) {
	var c *http.Client
	if token != "" {
		c = GetOAuthClient(ctx, token)
	} else {
		hc, err := GetHTTPClient()
		if err != nil {
			return nil, fmt.Errorf("error creating HTTP client: %w", err)
		}
		c = hc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	req.Header.Set("User-Agent", clientAgent)

	return c.Do(req) //nolint:gosec // URL comes from operator configuration
}

// Download saves the content of url to filepath. When token is not empty
// it is sent as a bearer token. The file only appears once the transfer
// completes.
func Download(ctx context.Context, url, filepath, token string) (retErr error) {
	resp, err := getResp(ctx, url, token)
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	tmp := filepath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("error creating file %s: %w", tmp, err)
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tmp, filepath); err != nil {
		return fmt.Errorf("error moving %s into place: %w", tmp, err)
	}

	return nil
}
