package clipper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/meal"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrNoRecipe is returned when a page carries nothing that looks like a recipe.
var ErrNoRecipe = errors.New("no recipe found on page")

// DefaultCategory is used when the page does not say which meal it is for.
const DefaultCategory = meal.Dinner

// MealCreator stores a clipped meal.
type MealCreator interface {
	CreateMeal(ctx context.Context, m meal.Meal) (*meal.Meal, error)
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	creator    MealCreator
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClipper creates a new Clipper instance.
func NewClipper(creator MealCreator, logger *zap.Logger) *Clipper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clipper{
		creator:    creator,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("clipper"),
	}
}

// ClipURL fetches the URL, extracts the recipe and creates it as a meal.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*meal.Meal, error) {
	m, err := c.Extract(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := meal.Validate(m); err != nil {
		return nil, fmt.Errorf("clipped recipe is incomplete: %w", err)
	}

	created, err := c.creator.CreateMeal(ctx, m)
	if err != nil {
		return nil, err
	}
	c.logger.Info("recipe clipped", zap.String("url", url), zap.Stringer("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// Extract reads a recipe from the page at url without storing it.
func (c *Clipper) Extract(ctx context.Context, url string) (meal.Meal, error) {
	doc, err := c.fetch(ctx, url)
	if err != nil {
		return meal.Meal{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	if r, ok := findJSONLDRecipe(doc); ok {
		return meal.Normalize(r.toMeal()), nil
	}
	c.logger.Debug("no structured recipe data, falling back to markup", zap.String("url", url))

	m, ok := fromMarkup(doc)
	if !ok {
		return meal.Meal{}, ErrNoRecipe
	}
	return meal.Normalize(m), nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// fromMarkup uses the page title and ingredient list items.
func fromMarkup(doc *goquery.Document) (meal.Meal, bool) {
	doc.Find("script, style, nav, footer, iframe, .ads, #ads").Remove()

	name := cleanText(doc.Find("h1").First().Text())

	var ingredients []string
	doc.Find(`[class*="ingredient"] li, li[class*="ingredient"], [itemprop="recipeIngredient"]`).Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			ingredients = append(ingredients, text)
		}
	})

	if name == "" || len(ingredients) == 0 {
		return meal.Meal{}, false
	}
	return meal.Meal{
		Name:        name,
		Category:    DefaultCategory,
		Ingredients: strings.Join(ingredients, "\n"),
	}, true
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
