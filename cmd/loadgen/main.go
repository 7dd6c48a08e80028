// Package main implements loadgen, a small CLI that drives the orderflow
// API with concurrent traffic. It is the companion tool for exercising the
// admission limiter, the pipeline queue, and the notification path under
// load without standing up an external load-testing rig.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	addr        string
	users       int
	orders      int
	concurrency int
	timeout     time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate concurrent load against an orderflow server",
		Long: `loadgen creates users, places orders concurrently, and polls the
processing endpoint until the queue drains. Rejected requests (429, 503) are
counted separately from failures so limiter behavior is visible at a glance.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "http://localhost:8080", "base URL of the target server")
	cmd.Flags().IntVar(&opts.users, "users", 5, "number of users to create before placing orders")
	cmd.Flags().IntVar(&opts.orders, "orders", 50, "total number of orders to place")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent order producers")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")

	return cmd
}

// counters aggregates request outcomes across producers.
type counters struct {
	accepted atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

func run(ctx context.Context, opts *options) error {
	if opts.users < 1 {
		return fmt.Errorf("--users must be >= 1, got %d", opts.users)
	}
	if opts.concurrency < 1 {
		return fmt.Errorf("--concurrency must be >= 1, got %d", opts.concurrency)
	}

	client := &apiClient{
		base: opts.addr,
		http: &http.Client{Timeout: opts.timeout},
	}

	fmt.Printf("creating %d users against %s\n", opts.users, opts.addr)
	userIDs := make([]int64, 0, opts.users)
	for i := range opts.users {
		id, err := client.createUser(ctx, fmt.Sprintf("loadgen-user-%d", i), fmt.Sprintf("loadgen-%d@example.com", i))
		if err != nil {
			return fmt.Errorf("creating user %d: %w", i, err)
		}
		userIDs = append(userIDs, id)
	}

	fmt.Printf("placing %d orders with %d producers\n", opts.orders, opts.concurrency)
	start := time.Now()

	var stats counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)

	for i := range opts.orders {
		g.Go(func() error {
			userID := userIDs[rand.N(len(userIDs))]
			amount := 5.0 + rand.Float64()*95.0

			status, err := client.placeOrder(gctx, userID, fmt.Sprintf("product-%d", i), amount)
			switch {
			case err != nil:
				stats.failed.Add(1)
			case status == http.StatusAccepted:
				stats.accepted.Add(1)
			case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
				stats.rejected.Add(1)
			default:
				stats.failed.Add(1)
			}
			// Individual request failures are expected under load and
			// tallied, never fatal.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("placed %d orders in %s: %d accepted, %d rejected, %d failed\n",
		opts.orders, elapsed.Round(time.Millisecond),
		stats.accepted.Load(), stats.rejected.Load(), stats.failed.Load())

	if err := waitForDrain(ctx, client); err != nil {
		return err
	}

	return printDashboard(ctx, client)
}

// waitForDrain polls the processing endpoint until the pipeline reports an
// idle phase or two minutes pass.
func waitForDrain(ctx context.Context, client *apiClient) error {
	fmt.Println("waiting for pipeline to drain")

	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		state, err := client.processingState(ctx)
		if err != nil {
			return fmt.Errorf("polling processing state: %w", err)
		}
		if state.Phase == "idle" || state.Phase == "completed" || state.Phase == "error" {
			if state.Phase != "idle" {
				fmt.Printf("pipeline settled: phase=%s order=%d\n", state.Phase, state.OrderID)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("pipeline did not drain within 2m")
}

func printDashboard(ctx context.Context, client *apiClient) error {
	metrics, err := client.systemMetrics(ctx)
	if err != nil {
		return fmt.Errorf("fetching system metrics: %w", err)
	}

	fmt.Printf("server totals: users=%d orders=%d completed=%d failed=%d events=%d\n",
		metrics.UsersCreated, metrics.OrdersCreated, metrics.OrdersCompleted, metrics.OrdersFailed, metrics.EventsPublished)
	return nil
}

// apiClient is a thin JSON client for the orderflow API.
type apiClient struct {
	base string
	http *http.Client
}

type processingState struct {
	Phase    string `json:"phase"`
	OrderID  int64  `json:"order_id"`
	Progress int    `json:"progress"`
}

type systemMetrics struct {
	UsersCreated    int64 `json:"users_created"`
	OrdersCreated   int64 `json:"orders_created"`
	OrdersCompleted int64 `json:"orders_completed"`
	OrdersFailed    int64 `json:"orders_failed"`
	EventsPublished int64 `json:"events_published"`
}

func (c *apiClient) createUser(ctx context.Context, name, email string) (int64, error) {
	body := map[string]string{"name": name, "email": email}

	var created struct {
		ID int64 `json:"id"`
	}
	status, err := c.postJSON(ctx, "/api/v1/users", body, &created)
	if err != nil {
		return 0, err
	}
	if status != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %d", status)
	}
	return created.ID, nil
}

// placeOrder returns the HTTP status so the caller can distinguish
// admission rejections from transport failures.
func (c *apiClient) placeOrder(ctx context.Context, userID int64, product string, amount float64) (int, error) {
	body := map[string]any{
		"user_id":      userID,
		"product_name": product,
		"amount":       amount,
	}
	return c.postJSON(ctx, "/api/v1/orders", body, nil)
}

func (c *apiClient) processingState(ctx context.Context) (*processingState, error) {
	var state processingState
	if err := c.getJSON(ctx, "/api/v1/orders/processing", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *apiClient) systemMetrics(ctx context.Context) (*systemMetrics, error) {
	var metrics systemMetrics
	if err := c.getJSON(ctx, "/api/v1/metrics/system", &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
