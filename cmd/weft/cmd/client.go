package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

func doRequest(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, fmt.Sprintf("%s%s", host, path), reader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if envKey := os.Getenv("WEFT_API_KEY"); envKey != "" {
		req.Header.Set("Authorization", "Bearer "+envKey)
	}
	if account != "" {
		req.Header.Set("X-Weft-Account", account)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return http.DefaultClient.Do(req)
}

// call performs the request and decodes the JSON response into out
// (skipped when out is nil). Non-2xx responses surface the server's error
// message and exit.
func call(method, path string, body, out any) {
	resp, err := doRequest(method, path, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			fmt.Fprintf(os.Stderr, "Error: %s (status %d)\n", apiErr.Error, resp.StatusCode)
		} else {
			fmt.Fprintf(os.Stderr, "Request failed with status %d\n", resp.StatusCode)
		}
		os.Exit(1)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
			os.Exit(1)
		}
	}
}
