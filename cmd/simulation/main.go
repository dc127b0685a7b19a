package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Daddada866/TrenchBot/internal/auth"
	"github.com/Daddada866/TrenchBot/internal/command"
	"github.com/Daddada866/TrenchBot/internal/database"
	"github.com/Daddada866/TrenchBot/internal/engine"
	"github.com/Daddada866/TrenchBot/internal/ledger"
	"github.com/Daddada866/TrenchBot/internal/metrics"
	"github.com/Daddada866/TrenchBot/internal/pricing"
	"github.com/Daddada866/TrenchBot/internal/ratelimit"
	"github.com/Daddada866/TrenchBot/internal/snapshot"
	"github.com/Daddada866/TrenchBot/internal/types"
	"github.com/Daddada866/TrenchBot/pkg/middleware"
)

const (
	minOrders     = 15
	maxOrders     = 120
	numWorkers    = 5
	serverAddress = "http://localhost:8947"
	defaultPair   = "TRCH/ETH"
)

var (
	pairs = []string{"TRCH/ETH", "TRCH/USDC", "ETH/USDC"}
	sides = []types.OrderSide{types.SideBuy, types.SideSell}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the trading API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":      {name: "Authentication"},
			"place":     {name: "Place Order"},
			"cancel":    {name: "Cancel Order"},
			"price":     {name: "Get Price"},
			"set_price": {name: "Set Price"},
			"sweep":     {name: "Trigger Sweep"},
			"balance":   {name: "Get Balance"},
			"positions": {name: "Get Positions"},
			"snapshot":  {name: "Take Snapshot"},
		},
	}

	// Get auth token
	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// doJSON performs an authenticated JSON request and decodes the standard
// response envelope into out (which may be nil when the caller only cares
// about the status code)
func (sc *simulationClient) doJSON(method, path string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.New().String())

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	envelope := struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return nil
}

// placeOrder submits a new order to the API and returns the created order
func (sc *simulationClient) placeOrder(pair string, side types.OrderSide, kind types.OrderKind, amountQuote, priceLimit decimal.Decimal) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["place"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"pair":         pair,
		"side":         side,
		"kind":         kind,
		"amount_quote": amountQuote,
		"price_limit":  priceLimit,
	}

	var order types.Order
	if err := sc.doJSON("POST", "/api/v1/orders", payload, &order); err != nil {
		sc.stats["place"].failures++
		return nil, err
	}

	if order.OrderID == "" {
		sc.stats["place"].failures++
		return nil, fmt.Errorf("no order ID in response")
	}

	return &order, nil
}

// cancelOrder cancels a previously placed order
func (sc *simulationClient) cancelOrder(orderID string) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["cancel"].addDuration(time.Since(start))
	}()

	var order types.Order
	if err := sc.doJSON("DELETE", "/api/v1/orders/"+orderID, nil, &order); err != nil {
		sc.stats["cancel"].failures++
		return nil, err
	}

	return &order, nil
}

// getPrice fetches the current quote for a pair
func (sc *simulationClient) getPrice(pair string) (*types.PriceResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["price"].addDuration(time.Since(start))
	}()

	var price types.PriceResponse
	if err := sc.doJSON("GET", "/api/v1/price/"+pair, nil, &price); err != nil {
		sc.stats["price"].failures++
		return nil, err
	}

	return &price, nil
}

// setPrice moves the market through the internal price override route
func (sc *simulationClient) setPrice(pair string, price decimal.Decimal) error {
	start := time.Now()
	defer func() {
		sc.stats["set_price"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"pair":  pair,
		"price": price,
	}
	if err := sc.doJSON("POST", "/api/v1/internal/price", payload, nil); err != nil {
		sc.stats["set_price"].failures++
		return err
	}

	return nil
}

// triggerSweep runs one limit-order sweep pass through the internal route
func (sc *simulationClient) triggerSweep() (*types.SweepResult, error) {
	start := time.Now()
	defer func() {
		sc.stats["sweep"].addDuration(time.Since(start))
	}()

	var result types.SweepResult
	if err := sc.doJSON("POST", "/api/v1/internal/sweep", nil, &result); err != nil {
		sc.stats["sweep"].failures++
		return nil, err
	}

	return &result, nil
}

// getBalance fetches the simulated wallet balance for the authenticated user
func (sc *simulationClient) getBalance() (*types.Balance, error) {
	start := time.Now()
	defer func() {
		sc.stats["balance"].addDuration(time.Since(start))
	}()

	var balance types.Balance
	if err := sc.doJSON("GET", "/api/v1/balance", nil, &balance); err != nil {
		sc.stats["balance"].failures++
		return nil, err
	}

	return &balance, nil
}

// getPositions fetches the open positions for the authenticated user
func (sc *simulationClient) getPositions() ([]types.Position, error) {
	start := time.Now()
	defer func() {
		sc.stats["positions"].addDuration(time.Since(start))
	}()

	var positions []types.Position
	if err := sc.doJSON("GET", "/api/v1/positions", nil, &positions); err != nil {
		sc.stats["positions"].failures++
		return nil, err
	}

	return positions, nil
}

// takeSnapshot persists an engine snapshot through the internal route
func (sc *simulationClient) takeSnapshot() error {
	start := time.Now()
	defer func() {
		sc.stats["snapshot"].addDuration(time.Since(start))
	}()

	if err := sc.doJSON("POST", "/api/v1/internal/snapshot", nil, nil); err != nil {
		sc.stats["snapshot"].failures++
		return err
	}

	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the trading simulation
// It starts a local API server and simulates multiple concurrent trading clients
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	// Generate random number of orders to process
	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	// Channel to collect placed orders
	ordersChan := make(chan types.Order, targetOrders)
	var wg sync.WaitGroup

	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			placeOrdersHTTP(workerID, targetOrders/numWorkers, simClient, ordersChan)
		}(i)
	}

	// Wait for all orders to be placed
	wg.Wait()
	close(ordersChan)

	// Collect placed orders and track limit orders still waiting for a fill
	var placed []types.Order
	var pendingIDs []string
	for order := range ordersChan {
		placed = append(placed, order)
		if order.Status == types.StatusPending {
			pendingIDs = append(pendingIDs, order.OrderID)
		}
	}

	log.Info().
		Int("orders_placed", len(placed)).
		Int("pending_limits", len(pendingIDs)).
		Msg("All orders placed")

	// Collect statistics during processing
	stats := struct {
		TotalOrders     int
		FilledOrders    int
		PendingOrders   int
		CancelledOrders int
		SweepFills      int
		SweepSkips      int
		FailedCancels   int
		StartTime       time.Time
		Pairs           map[string]int
		Sides           map[string]int
	}{
		StartTime: time.Now(),
		Pairs:     make(map[string]int),
		Sides:     make(map[string]int),
	}

	stats.TotalOrders = len(placed)
	for _, order := range placed {
		stats.Pairs[order.Pair]++
		stats.Sides[string(order.Side)]++
		if order.Status == types.StatusFilled {
			stats.FilledOrders++
		}
	}

	// Swing the default pair price both ways so buy and sell limits can trigger,
	// sweeping after each move
	quote, err := simClient.getPrice(defaultPair)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch default pair price")
	}

	swings := []decimal.Decimal{
		quote.Price.Mul(decimal.NewFromInt(8)).Div(decimal.NewFromInt(10)).Truncate(0),
		quote.Price.Mul(decimal.NewFromInt(12)).Div(decimal.NewFromInt(10)).Truncate(0),
		quote.Price,
	}
	for _, price := range swings {
		if err := simClient.setPrice(defaultPair, price); err != nil {
			log.Error().Err(err).Msg("Failed to set price")
			continue
		}

		result, err := simClient.triggerSweep()
		if err != nil {
			log.Error().Err(err).Msg("Failed to trigger sweep")
			continue
		}
		stats.SweepFills += result.Filled
		stats.SweepSkips += result.Skipped
		log.Info().
			Str("price", price.String()).
			Int("filled", result.Filled).
			Int("skipped", result.Skipped).
			Int("pending", result.Pending).
			Msg("Sweep pass completed")
	}

	// Cancel whatever limit orders are still working
	for _, orderID := range pendingIDs {
		order, err := simClient.cancelOrder(orderID)
		if err != nil {
			// Already swept into a fill, most likely
			log.Debug().Err(err).Str("order_id", orderID).Msg("Cancel rejected")
			stats.FailedCancels++
			continue
		}
		stats.CancelledOrders++
		log.Info().
			Str("order_id", order.OrderID).
			Str("pair", order.Pair).
			Msg("Order cancelled")
	}
	stats.FilledOrders += stats.SweepFills
	stats.PendingOrders = len(pendingIDs) - stats.CancelledOrders - stats.SweepFills
	if stats.PendingOrders < 0 {
		stats.PendingOrders = 0
	}

	// Fetch the final wallet state
	balance, err := simClient.getBalance()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch balance")
	}
	positions, err := simClient.getPositions()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch positions")
	}

	// Persist a snapshot of the run
	if err := simClient.takeSnapshot(); err != nil {
		log.Error().Err(err).Msg("Failed to take snapshot")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🚀 TRADING SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Order Statistics
------------------
Total Orders:     %d
Filled:           %d
Cancelled:        %d
Still Pending:    %d
Sweep Fills:      %d
Sweep Skips:      %d
Failed Cancels:   %d
Duration:         %v

📈 Pair Distribution
--------------------
`, stats.TotalOrders, stats.FilledOrders, stats.CancelledOrders, stats.PendingOrders,
		stats.SweepFills, stats.SweepSkips, stats.FailedCancels,
		duration.Round(time.Millisecond))

	// Print pair distribution with simple ASCII bar chart
	maxPairCount := 0
	for _, count := range stats.Pairs {
		if count > maxPairCount {
			maxPairCount = count
		}
	}

	for pair, count := range stats.Pairs {
		barLength := int(float64(count) / float64(maxPairCount) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-10s: %s (%d)\n", pair, bar, count)
	}

	fmt.Println("\n📉 Side Distribution")
	fmt.Println("------------------")
	for side, count := range stats.Sides {
		barLength := int(float64(count) / float64(stats.TotalOrders) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-4s: %s (%d)\n", side, bar, count)
	}

	fmt.Println("\n💰 Final Wallet")
	fmt.Println("------------------")
	fmt.Printf("Quote: %s\n", balance.Quote)
	fmt.Printf("Base:  %s\n", balance.Base)
	for _, pos := range positions {
		fmt.Printf("%-10s %-4s size=%s entry=%s\n", pos.Pair, pos.Side, pos.Size, pos.EntryPrice)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	// Success rate calculation
	successRate := float64(stats.FilledOrders) / float64(stats.TotalOrders) * 100
	log.Info().
		Float64("fill_rate", successRate).
		Int("total_orders", stats.TotalOrders).
		Int("filled_orders", stats.FilledOrders).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// placeOrdersHTTP generates and submits random orders to the API
// Runs as a worker goroutine, sending placed orders to ordersChan
func placeOrdersHTTP(workerID, numOrders int, simClient *simulationClient, ordersChan chan<- types.Order) {
	for i := 0; i < numOrders; i++ {
		pair := pairs[rand.Intn(len(pairs))]
		side := sides[rand.Intn(len(sides))]
		amountQuote := types.Units(int64(rand.Intn(5) + 1))

		// Mostly market orders so the shared wallet keeps turning over,
		// with an occasional limit order for the sweep to work through
		kind := types.KindMarket
		priceLimit := decimal.Zero
		if rand.Intn(4) == 0 {
			kind = types.KindLimit
			quote, err := simClient.getPrice(pair)
			if err != nil {
				log.Error().Err(err).Str("pair", pair).Msg("Failed to fetch price")
				continue
			}
			// Limit within 10% of the current quote
			bps := int64(rand.Intn(2000) - 1000)
			offset := quote.Price.Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(10000)).Truncate(0)
			priceLimit = quote.Price.Add(offset)
		}

		order, err := simClient.placeOrder(pair, side, kind, amountQuote, priceLimit)
		if err != nil {
			log.Error().Err(err).
				Str("worker_id", fmt.Sprintf("%d", workerID)).
				Str("pair", pair).
				Msg("Failed to place order")
			continue
		}

		ordersChan <- *order
		log.Info().
			Str("worker_id", fmt.Sprintf("%d", workerID)).
			Str("order_id", order.OrderID).
			Str("pair", order.Pair).
			Str("side", string(order.Side)).
			Str("kind", string(order.Kind)).
			Str("amount_quote", order.AmountQuote.String()).
			Str("status", string(order.Status)).
			Msg("Order placed")

		// Random sleep between orders
		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// startServer initializes and starts the trading API server
// Sets up all required services, handlers and routes
func startServer() error {
	// Initialize snapshot database
	db, err := database.NewDatabase("trenchbot-simulation.db")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	authService := auth.NewService("trench-secret-key")
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	prices := pricing.NewSource()
	tradingEngine := engine.New(prices, ledger.New(), ratelimit.Unlimited{}, engine.DefaultConfig())
	dispatcher := command.NewDispatcher(tradingEngine, defaultPair, "")
	codec := snapshot.NewCodec(tradingEngine)
	store := snapshot.NewStore(db)

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	engineHandlers := engine.NewGinHandlers(tradingEngine)
	commandHandlers := command.NewGinHandlers(dispatcher)
	snapshotHandlers := snapshot.NewGinHandlers(codec, store)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	router.Use(middleware.RequestLogger())

	// Setup routes
	setupRoutes(router, registry, authService, authHandlers, engineHandlers, commandHandlers, snapshotHandlers)

	// Start the server
	return router.Run(":8947")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	registry *prometheus.Registry,
	authService *auth.Service,
	authHandlers *auth.GinHandlers,
	engineHandlers *engine.GinHandlers,
	commandHandlers *command.GinHandlers,
	snapshotHandlers *snapshot.GinHandlers,
) {
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// User routes
		user := v1.Group("")
		user.Use(middleware.JWTAuth(authService))
		{
			user.GET("/price/*pair", engineHandlers.GetPriceHandler())
			user.GET("/pairs", engineHandlers.ListPairsHandler())
			user.POST("/orders", engineHandlers.PlaceOrderHandler())
			user.GET("/orders", engineHandlers.ListOrdersHandler())
			user.DELETE("/orders/:order_id", engineHandlers.CancelOrderHandler())
			user.GET("/positions", engineHandlers.PositionsHandler())
			user.GET("/balance", engineHandlers.BalanceHandler())
			user.POST("/command", commandHandlers.DispatchHandler())
		}

		// Internal routes
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(authService))
		{
			internal.POST("/price", engineHandlers.SetPriceHandler())
			internal.POST("/sweep", engineHandlers.SweepHandler())
			internal.GET("/stats", engineHandlers.StatsHandler())
			internal.POST("/snapshot", snapshotHandlers.ExportHandler())
			internal.POST("/snapshot/restore", snapshotHandlers.RestoreHandler())
		}
	}
}
