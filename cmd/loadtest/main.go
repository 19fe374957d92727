// Command loadtest гоняет сценарии покупателя против REST API маркетплейса:
// корзина, оформление заказа и отмена заказа продавцом.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	idempotencyHeader = "Idempotency-Key"
	scenarioMethod    = "scenario"
	transportFailure  = "transport_error"
	defaultPassword   = "LoadTest#2024"
)

type loadMode string

const (
	modeCart           loadMode = "cart"
	modeCheckout       loadMode = "checkout"
	modeCheckoutCancel loadMode = "checkout-cancel"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	quantity    int
	price       float64
	stock       int
	emailTag    string
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

// record учитывает вызов; code содержит HTTP-статус или transportFailure.
func (c *collector) record(method string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, exists := c.methods[method]
	if !exists {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	if scenario := c.methods[scenarioMethod]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.SuccessScenarios = scenario.success
		result.FailedScenarios = scenario.failed
		result.ErrorRate = ratio(scenario.failed, scenario.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenario.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codes := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codes[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codes,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	return result
}

func parseConfig(args []string, stderr io.Writer) (config, error) {
	var (
		cfg       config
		modeValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.baseURL, "base-url", "http://localhost:8080", "REST API base URL")
	fs.IntVar(&cfg.total, "total", 200, "total scenarios in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 5m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent buyers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeCheckout), "load mode: cart | checkout | checkout-cancel")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "seller cancel probability in percent for checkout mode (0..100)")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity added to cart per scenario")
	fs.Float64Var(&cfg.price, "price", 10, "selling price of the load product")
	fs.IntVar(&cfg.stock, "stock", 1_000_000, "inventory of the load product")
	fs.StringVar(&cfg.emailTag, "email-tag", "load", "prefix for generated account emails")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	switch {
	case cfg.baseURL == "":
		return cfg, errors.New("base-url is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.cancelRate < 0 || cfg.cancelRate > 100:
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.price <= 0:
		return cfg, errors.New("price must be > 0")
	case cfg.stock <= 0:
		return cfg, errors.New("stock must be > 0")
	case strings.TrimSpace(cfg.emailTag) == "":
		return cfg, errors.New("email-tag is required")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCart:
		return modeCart, nil
	case modeCheckout:
		return modeCheckout, nil
	case modeCheckoutCancel:
		return modeCheckoutCancel, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := newHTTPClient(cfg.baseURL, &http.Client{Timeout: cfg.timeout})
	result, err := execute(context.Background(), cfg, client, time.Now)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test setup failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// execute регистрирует продавца с товаром и прогоняет сценарии покупателей.
func execute(ctx context.Context, cfg config, client apiClient, now func() time.Time) (report, error) {
	startedAt := now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	seller, err := client.Register(ctx, accountEmail(cfg.emailTag, runID, "seller"), "vendor")
	if err != nil {
		return report{}, fmt.Errorf("register seller: %w", err)
	}
	productID, err := client.CreateProduct(ctx, seller, productInput{
		Name:     "Load product " + runID,
		Price:    cfg.price,
		Quantity: cfg.stock,
	})
	if err != nil {
		return report{}, fmt.Errorf("create product: %w", err)
	}

	target := scenarioTarget{runID: runID, sellerToken: seller, productID: productID}
	jobs := make(chan int, cfg.concurrency*2)

	var g errgroup.Group
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		g.Go(func() error {
			w := &buyer{id: workerID}
			for index := range jobs {
				_ = runScenario(ctx, client, cfg, target, w, index, col)
			}
			return nil
		})
	}

	dispatchJobs(jobs, cfg)
	_ = g.Wait()

	return col.buildReport(startedAt, now().Sub(startedAt)), nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

type scenarioTarget struct {
	runID       string
	sellerToken string
	productID   string
}

// buyer регистрируется при первом сценарии воркера.
type buyer struct {
	id    int
	token string
}

func runScenario(ctx context.Context, client apiClient, cfg config, target scenarioTarget, b *buyer, index int, col *collector) (err error) {
	scenarioStart := time.Now()
	defer func() {
		code := "ok"
		if err != nil {
			code = "failed"
		}
		col.record(scenarioMethod, time.Since(scenarioStart), code, err == nil)
	}()

	if b.token == "" {
		token, regErr := timed(col, "Register", func() (string, error) {
			return client.Register(ctx, accountEmail(cfg.emailTag, target.runID, "buyer-"+strconv.Itoa(b.id)), "consumer")
		})
		if regErr != nil {
			return regErr
		}
		b.token = token
	}

	if _, err := timed(col, "AddToCart", func() (string, error) {
		return "", client.AddToCart(ctx, b.token, target.productID, cfg.quantity)
	}); err != nil {
		return err
	}
	if cfg.mode == modeCart {
		// корзину очищаем, чтобы следующий сценарий начинался с нуля
		_, err := timed(col, "ClearCart", func() (string, error) {
			return "", client.ClearCart(ctx, b.token)
		})
		return err
	}

	key := fmt.Sprintf("lt-order-%s-%d", target.runID, index)
	orderIDs, err := timedList(col, "PlaceOrder", func() ([]string, error) {
		return client.PlaceOrder(ctx, b.token, key)
	})
	if err != nil {
		return err
	}
	if len(orderIDs) == 0 {
		return errors.New("place order returned no orders")
	}

	if cfg.mode == modeCheckoutCancel || (cfg.mode == modeCheckout && shouldCancelScenario(index, cfg.cancelRate)) {
		for _, orderID := range orderIDs {
			if _, err := timed(col, "CancelOrder", func() (string, error) {
				return "", client.UpdateOrderStatus(ctx, target.sellerToken, orderID, "cancelled")
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func timed(col *collector, method string, fn func() (string, error)) (string, error) {
	start := time.Now()
	value, err := fn()
	col.record(method, time.Since(start), statusCode(err), err == nil)
	return value, err
}

func timedList(col *collector, method string, fn func() ([]string, error)) ([]string, error) {
	start := time.Now()
	values, err := fn()
	col.record(method, time.Since(start), statusCode(err), err == nil)
	return values, err
}

func accountEmail(tag, runID, role string) string {
	return fmt.Sprintf("%s-%s-%s@loadtest.local", tag, runID, role)
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

// apiClient описывает вызовы REST API нагрузочного сценария.
type apiClient interface {
	Register(ctx context.Context, email, userType string) (string, error)
	CreateProduct(ctx context.Context, token string, in productInput) (string, error)
	AddToCart(ctx context.Context, token, productID string, quantity int) error
	ClearCart(ctx context.Context, token string) error
	PlaceOrder(ctx context.Context, token, idempotencyKey string) ([]string, error)
	UpdateOrderStatus(ctx context.Context, token, orderID, status string) error
}

type productInput struct {
	Name     string
	Price    float64
	Quantity int
}

// statusError возвращается при неожиданном HTTP-статусе.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

func statusCode(err error) string {
	if err == nil {
		return "2xx"
	}
	var se *statusError
	if errors.As(err, &se) {
		return strconv.Itoa(se.Code)
	}
	return transportFailure
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

func newHTTPClient(baseURL string, client *http.Client) *httpClient {
	return &httpClient{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

func (c *httpClient) Register(ctx context.Context, email, userType string) (string, error) {
	var resp envelope
	err := c.do(ctx, http.MethodPost, "/api/users/register", "", nil, map[string]any{
		"email":    email,
		"password": defaultPassword,
		"name":     "Load " + userType,
		"userType": userType,
	}, http.StatusCreated, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("register response has no token")
	}
	return resp.Token, nil
}

func (c *httpClient) CreateProduct(ctx context.Context, token string, in productInput) (string, error) {
	var resp envelope
	err := c.do(ctx, http.MethodPost, "/api/products", token, nil, map[string]any{
		"name":        in.Name,
		"description": "generated by loadtest",
		"price":       map[string]any{"selling": in.Price},
		"inventory":   map[string]any{"quantity": in.Quantity},
	}, http.StatusCreated, &resp)
	if err != nil {
		return "", err
	}
	var product struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &product); err != nil {
		return "", fmt.Errorf("decode product: %w", err)
	}
	return product.ID, nil
}

func (c *httpClient) AddToCart(ctx context.Context, token, productID string, quantity int) error {
	return c.do(ctx, http.MethodPost, "/api/cart/add", token, nil, map[string]any{
		"productId": productID,
		"quantity":  quantity,
	}, http.StatusCreated, nil)
}

func (c *httpClient) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/clear", token, nil, nil, http.StatusOK, nil)
}

func (c *httpClient) PlaceOrder(ctx context.Context, token, idempotencyKey string) ([]string, error) {
	var resp envelope
	err := c.do(ctx, http.MethodPost, "/api/orders", token, map[string]string{idempotencyHeader: idempotencyKey}, map[string]any{
		"deliveryAddress": map[string]any{"street": "1 Load St", "city": "Bench", "state": "LT", "pincode": "000000"},
		"paymentMethod":   "online",
	}, http.StatusCreated, &resp)
	if err != nil {
		return nil, err
	}
	var placement struct {
		Orders []struct {
			ID string `json:"id"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(resp.Data, &placement); err != nil {
		return nil, fmt.Errorf("decode placement: %w", err)
	}
	ids := make([]string, 0, len(placement.Orders))
	for _, order := range placement.Orders {
		ids = append(ids, order.ID)
	}
	return ids, nil
}

func (c *httpClient) UpdateOrderStatus(ctx context.Context, token, orderID, status string) error {
	return c.do(ctx, http.MethodPut, "/api/orders/"+orderID+"/status", token, nil, map[string]any{"status": status}, http.StatusOK, nil)
}

func (c *httpClient) do(ctx context.Context, method, path, token string, headers map[string]string, body any, want int, out *envelope) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var decoded envelope
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return &statusError{Code: resp.StatusCode, Message: decoded.Message}
	}
	if out != nil {
		*out = decoded
	}
	return nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь к отчёту задаётся явно флагом -output.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name != scenarioMethod {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
