package rpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/werf/cmondog/pkg/debug"
)

const (
	jobsPath     = "/v2/jobs/"
	statsPath    = "/v2/stat"
	clustersPath = "/v2/clusters/"
	authPath     = "/v2/auth"

	defaultRequestTimeout = 30 * time.Second

	// RequestBurst requests pass the limiter back to back, enough for a
	// whole run of immediate retries and a re-authentication.
	RequestBurst = 5
)

type ClientOptions struct {
	Controller        string
	RPCToken          string
	User              string
	Password          string
	InsecureTLS       bool
	RequestsPerSecond float64

	// HTTPClient replaces the default client; its cookie jar keeps the session.
	HTTPClient *http.Client
}

// Client talks to the controller over HTTP JSON RPC and implements Gateway
// and StatsGateway.
type Client struct {
	baseURL    string
	rpcToken   string
	user       string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(opts ClientOptions) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("unable to create cookie jar: %w", err)
		}

		httpClient = &http.Client{
			Jar:     jar,
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.InsecureTLS}, //nolint:gosec
			},
		}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.Controller, "/"),
		rpcToken:   opts.RPCToken,
		user:       opts.User,
		password:   opts.Password,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, RequestBurst),
	}, nil
}

// CanAuthenticate reports whether credentials are configured.
func (c *Client) CanAuthenticate() bool {
	return c.user != "" && c.password != ""
}

func (c *Client) JobSnapshot(ctx context.Context, jobID int) (*JobSnapshot, error) {
	data, err := c.call(ctx, jobsPath, map[string]interface{}{
		"operation": "getJobInstance",
		"job_id":    jobID,
	})
	if err != nil {
		return nil, err
	}

	return ParseJobSnapshot(data)
}

func (c *Client) JobLogBatch(ctx context.Context, jobID, limit, offset int) (*LogBatch, error) {
	data, err := c.call(ctx, jobsPath, map[string]interface{}{
		"operation": "getJobLog",
		"job_id":    jobID,
		"limit":     limit,
		"offset":    offset,
	})
	if err != nil {
		return nil, err
	}

	return ParseLogBatch(data)
}

func (c *Client) Stats(ctx context.Context, clusterID int, statName string) (*StatsReply, error) {
	data, err := c.call(ctx, statsPath, map[string]interface{}{
		"operation":  "getStats",
		"cluster_id": clusterID,
		"name":       statName,
	})
	if err != nil {
		return nil, err
	}

	return ParseStatsReply(data)
}

func (c *Client) Ping(ctx context.Context) (*PingReply, error) {
	data, err := c.call(ctx, clustersPath, map[string]interface{}{
		"operation": "ping",
	})
	if err != nil {
		return nil, err
	}

	return ParsePingReply(data)
}

// Authenticate opens a new session with the configured credentials.
func (c *Client) Authenticate(ctx context.Context) bool {
	if !c.CanAuthenticate() {
		debug.Printf("no credentials configured, can not authenticate\n")
		return false
	}

	data, err := c.call(ctx, authPath, map[string]interface{}{
		"operation": "authenticateWithPassword",
		"user_name": c.user,
		"password":  c.password,
	})
	if err != nil {
		debug.Printf("authentication request failed: %s\n", err)
		return false
	}

	var header replyHeader
	if err := decode(data, &header); err != nil {
		debug.Printf("authentication reply: %s\n", err)
		return false
	}

	return header.RequestStatus == RequestStatusOk
}

func (c *Client) call(ctx context.Context, path string, request map[string]interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.rpcToken != "" {
		request["token"] = c.rpcToken
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s request: %w", request["operation"], err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	debug.Printf("-> %s %s\n", path, request["operation"])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request to %s failed: %w", request["operation"], c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s reply: %w", request["operation"], err)
	}

	debug.Printf("<- %s %d %s\n", path, resp.StatusCode, data)

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("controller replied %s to %s", resp.Status, request["operation"])
	}

	return data, nil
}
