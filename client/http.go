package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"Dauction/internal/types"
)

// callerHeader carries the caller identity of a mutating request.
const callerHeader = "X-Caller"

// APIError is a non-2xx response from the node.
type APIError struct {
	Status  int    // Status is the HTTP status code
	Class   string // Class is the failure taxonomy, e.g. "temporal"
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d (%s): %s", e.Status, e.Class, e.Message)
}

// httpGet performs a GET request and decodes the JSON response.
func (c *Client) httpGet(path string, result any) error {
	return c.do(http.MethodGet, path, nil, result)
}

// httpPostJSON performs a POST request with JSON body and decodes the JSON
// response. The request carries the client's caller identity.
func (c *Client) httpPostJSON(path string, body any, result any) error {
	return c.do(http.MethodPost, path, body, result)
}

func (c *Client) do(method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body:\n%w", err)
		}
		reader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s:\n%w", method, path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.caller != (types.Address{}) {
		req.Header.Set(callerHeader, c.caller.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", method, path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Class string `json:"class"`
	}

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Class = body.Class
		apiErr.Message = body.Error
	}

	return apiErr
}
