package mealsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"meal-planner/internal/config"
	"meal-planner/internal/meal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShoppingItem is one line of the server computed shopping list.
type ShoppingItem struct {
	Ingredient string  `json:"ingredient"`
	Count      float64 `json:"count"`
}

// RoundedCount returns Count as a whole number of meals.
func (s ShoppingItem) RoundedCount() int {
	return int(math.Round(s.Count))
}

// Client is the set of operations the meals backend offers.
type Client interface {
	ListMeals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error)
	GetMeal(ctx context.Context, id meal.ID) (*meal.Meal, error)
	CreateMeal(ctx context.Context, m meal.Meal) (*meal.Meal, error)
	UpdateMeal(ctx context.Context, id meal.ID, m meal.Meal) (*meal.Meal, error)
	DeleteMeal(ctx context.Context, id meal.ID) error
	RandomMenu(ctx context.Context) (*meal.Menu, error)
	WeeklyPlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error)
	ShoppingList(ctx context.Context, ids []meal.ID) ([]ShoppingItem, error)
}

// Call describes one finished request, successful or not.
type Call struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Kind       Kind // zero on success and on unclassified failures
	Err        error
	Latency    time.Duration
}

// Outcome names the result of the call for logs and metrics.
func (c Call) Outcome() string {
	switch {
	case c.Kind != 0:
		return c.Kind.String()
	case c.Err != nil:
		return "error"
	default:
		return "ok"
	}
}

// Observer is notified after every call.
type Observer interface {
	ObserveCall(Call)
}

// HTTPClient talks to the meals backend over HTTP. It never retries and
// never caches.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer

	mu    sync.RWMutex
	token string
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithObserver registers an observer for finished calls.
func WithObserver(o Observer) Option {
	return func(c *HTTPClient) { c.observer = o }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// NewClient creates a new meals API client.
func NewClient(cfg *config.Config, logger *zap.Logger, opts ...Option) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &HTTPClient{
		baseURL:    cfg.APIURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("mealsapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token. An empty token stops sending the header.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ListMeals fetches all meals matching filter.
func (c *HTTPClient) ListMeals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error) {
	var meals []meal.Meal
	if err := c.do(ctx, "list meals", http.MethodGet, "/meals", filter.Values(), nil, &meals); err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []meal.Meal{}
	}
	return meals, nil
}

// GetMeal fetches a single meal.
func (c *HTTPClient) GetMeal(ctx context.Context, id meal.ID) (*meal.Meal, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var m meal.Meal
	if err := c.do(ctx, "get meal", http.MethodGet, mealPath(id), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMeal posts a new meal. Any id on m is ignored.
func (c *HTTPClient) CreateMeal(ctx context.Context, m meal.Meal) (*meal.Meal, error) {
	m.ID = ""
	var created meal.Meal
	if err := c.do(ctx, "create meal", http.MethodPost, "/meals", nil, m, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMeal replaces the meal stored under id.
func (c *HTTPClient) UpdateMeal(ctx context.Context, id meal.ID, m meal.Meal) (*meal.Meal, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	m.ID = id
	var updated meal.Meal
	if err := c.do(ctx, "update meal", http.MethodPut, mealPath(id), nil, m, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteMeal removes the meal stored under id.
func (c *HTTPClient) DeleteMeal(ctx context.Context, id meal.ID) error {
	if id == "" {
		return ErrMissingID
	}
	return c.do(ctx, "delete meal", http.MethodDelete, mealPath(id), nil, nil, nil)
}

// RandomMenu asks the backend for a random breakfast, lunch and dinner.
func (c *HTTPClient) RandomMenu(ctx context.Context) (*meal.Menu, error) {
	var menu meal.Menu
	if err := c.do(ctx, "random menu", http.MethodGet, "/random", nil, nil, &menu); err != nil {
		return nil, err
	}
	return &menu, nil
}

// WeeklyPlan asks the backend for a seven day plan.
func (c *HTTPClient) WeeklyPlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error) {
	plan := meal.WeeklyPlan{}
	if err := c.do(ctx, "weekly plan", http.MethodGet, "/weekly-plan", filter.Values(), nil, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ShoppingList asks the backend to aggregate the ingredients of ids.
func (c *HTTPClient) ShoppingList(ctx context.Context, ids []meal.ID) ([]ShoppingItem, error) {
	req := struct {
		MealIDs []meal.ID `json:"meal_ids"`
	}{MealIDs: ids}
	if req.MealIDs == nil {
		req.MealIDs = []meal.ID{}
	}

	var resp struct {
		Ingredients []ShoppingItem `json:"ingredients"`
	}
	if err := c.do(ctx, "shopping list", http.MethodPost, "/shopping-list", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []ShoppingItem{}
	}
	return resp.Ingredients, nil
}

func mealPath(id meal.ID) string {
	return "/meals/" + url.PathEscape(string(id))
}

// do performs one request and decodes a JSON response into out (when out is
// non-nil). Every failure leaving this function is classified.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	call := Call{Op: op, Method: method, Path: path}
	defer func() {
		call.Latency = time.Since(start)
		if c.observer != nil {
			c.observer.ObserveCall(call)
		}
	}()

	err := c.roundTrip(ctx, op, method, path, query, body, out, &call)
	call.Err = err
	if apiErr, ok := err.(*Error); ok {
		call.Kind = apiErr.Kind
		c.logger.Warn("meals api call failed",
			zap.String("op", op),
			zap.Stringer("kind", apiErr.Kind),
			zap.Int("status", apiErr.StatusCode),
			zap.Duration("latency", time.Since(start)),
		)
	}
	return err
}

func (c *HTTPClient) roundTrip(ctx context.Context, op, method, path string, query url.Values, body, out any, call *Call) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	c.logger.Debug("meals api request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.String("request_id", requestID),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(ctx, op, err)
	}
	defer resp.Body.Close()
	call.StatusCode = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(ctx, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:         op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Detail:     detailFromBody(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Op:         op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}
