package doi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkp/pkplib/internal/db/controller/doiagency"
)

// ErrAgency is returned when the registration agency rejects a deposit.
var ErrAgency = errors.New("registration agency error")

// maxErrorBody bounds the part of an error response kept in messages.
const maxErrorBody = 512

// Item is one DOI in a deposit.
type Item struct {
	Doi           string   `json:"doi"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	DatePublished string   `json:"datePublished,omitempty"`
	Authors       []string `json:"authors,omitempty"`
}

// Result is the outcome for one deposited DOI.
type Result struct {
	Doi     string `json:"doi"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Registered reports whether the agency registered the DOI.
func (r Result) Registered() bool {
	return r.Status == "registered"
}

type depositRequest struct {
	Dois []Item `json:"dois"`
}

type depositResponse struct {
	Results []Result `json:"results"`
}

// Client deposits DOIs with a registration agency over HTTP.
type Client struct {
	settings doiagency.Settings
	http     *http.Client
}

// NewClient returns a client for the agency described by s. A nil hc uses a client with
// a one minute timeout.
func NewClient(s doiagency.Settings, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: time.Minute}
	}

	return &Client{settings: s, http: hc}
}

// Agency returns the host name of the agency, recorded with registered DOIs.
func (c *Client) Agency() string {
	u, err := url.Parse(c.settings.AgencyURL)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

// Deposit sends items and returns the result of each DOI.
func (c *Client) Deposit(ctx context.Context, items []Item) ([]Result, error) {
	body, err := json.Marshal(depositRequest{Dois: items})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.settings.AgencyURL, "/") + "/deposits"
	if c.settings.TestMode {
		endpoint += "?testMode=1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.settings.Username, c.settings.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("%w: %s: %s", ErrAgency, resp.Status, strings.TrimSpace(string(msg)))
	}

	var out depositResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode deposit response: %w", err)
	}

	return out.Results, nil
}
