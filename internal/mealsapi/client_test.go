package mealsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"meal-planner/internal/config"
	"meal-planner/internal/meal"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &config.Config{APIURL: server.URL, RequestTimeout: 2 * time.Second}
	return NewClient(cfg, zap.NewNop(), opts...), server
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []Call
}

func (r *recordingObserver) ObserveCall(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func TestListMeals(t *testing.T) {
	t.Run("NoFilterSendsNoQuery", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/meals" {
				t.Errorf("Expected path '/meals', got '%s'", r.URL.Path)
			}
			if r.URL.RawQuery != "" {
				t.Errorf("Expected no query parameters, got '%s'", r.URL.RawQuery)
			}
			if r.Header.Get("X-Request-ID") == "" {
				t.Error("Expected an X-Request-ID header")
			}
			fmt.Fprintln(w, `[
				{"id": 1, "name": "Pancakes", "category": "breakfast", "ingredients": "flour, eggs"},
				{"id": 2, "name": "Soup", "category": "dinner", "ingredients": "water; salt", "calories": 120}
			]`)
		})

		meals, err := client.ListMeals(context.Background(), meal.Filter{DietType: meal.AllDiets, Search: " "})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(meals) != 2 {
			t.Fatalf("Expected 2 meals, got %d", len(meals))
		}
		if meals[1].ID != "2" || meals[1].Calories == nil || *meals[1].Calories != 120 {
			t.Errorf("Unexpected second meal: %+v", meals[1])
		}
	})

	t.Run("FilterParameters", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("search") != "soup" || q.Get("min_calories") != "100" || q.Get("diet_type") != "vegan" {
				t.Errorf("Unexpected query: %s", r.URL.RawQuery)
			}
			if _, ok := q["max_calories"]; ok {
				t.Error("Expected max_calories to be omitted")
			}
			fmt.Fprintln(w, `[]`)
		})

		meals, err := client.ListMeals(context.Background(), meal.Filter{Search: "soup", MinCalories: 100, DietType: "vegan"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if meals == nil || len(meals) != 0 {
			t.Errorf("Expected an empty non-nil slice, got %v", meals)
		}
	})
}

func TestMealCRUD(t *testing.T) {
	var lastMethod, lastPath, lastBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastMethod, lastPath, lastBody = r.Method, r.URL.Path, string(body)
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintln(w, `{"id": 9, "name": "Salad", "category": "lunch", "ingredients": "lettuce"}`)
		case http.MethodPut, http.MethodGet:
			fmt.Fprintln(w, `{"id": 9, "name": "Salad", "category": "lunch", "ingredients": "lettuce, tomato"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		created, err := client.CreateMeal(ctx, meal.Meal{ID: "stale", Name: "Salad", Category: meal.Lunch, Ingredients: "lettuce"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if created.ID != "9" {
			t.Errorf("Expected created id 9, got '%s'", created.ID)
		}
		if strings.Contains(lastBody, `"id"`) {
			t.Errorf("Expected create body without id, got %s", lastBody)
		}
	})

	t.Run("Get", func(t *testing.T) {
		m, err := client.GetMeal(ctx, "9")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if lastPath != "/meals/9" || m.Name != "Salad" {
			t.Errorf("Unexpected get: path=%s meal=%+v", lastPath, m)
		}
	})

	t.Run("Update", func(t *testing.T) {
		updated, err := client.UpdateMeal(ctx, "9", meal.Meal{Name: "Salad", Category: meal.Lunch, Ingredients: "lettuce, tomato"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if lastMethod != http.MethodPut || lastPath != "/meals/9" {
			t.Errorf("Expected PUT /meals/9, got %s %s", lastMethod, lastPath)
		}
		if updated.Ingredients != "lettuce, tomato" {
			t.Errorf("Unexpected updated meal: %+v", updated)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := client.DeleteMeal(ctx, "9"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if lastMethod != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", lastMethod)
		}
	})

	t.Run("MissingIDNeverCallsServer", func(t *testing.T) {
		lastMethod = ""
		if err := client.DeleteMeal(ctx, ""); !errors.Is(err, ErrMissingID) {
			t.Fatalf("Expected ErrMissingID, got %v", err)
		}
		if lastMethod != "" {
			t.Errorf("Expected no request, got %s", lastMethod)
		}
	})
}

func TestRandomMenuAndWeeklyPlan(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/random":
			fmt.Fprintln(w, `{"breakfast": {"id": 1, "name": "Oats"}, "dinner": {"id": 3, "name": "Stew"}}`)
		case "/weekly-plan":
			if r.URL.RawQuery != "max_calories=600" {
				t.Errorf("Expected only max_calories, got '%s'", r.URL.RawQuery)
			}
			fmt.Fprintln(w, `{"monday": {"lunch": {"id": 2, "name": "Wrap"}}, "tuesday": {}}`)
		}
	})
	ctx := context.Background()

	menu, err := client.RandomMenu(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if menu.Breakfast == nil || menu.Lunch != nil || menu.Dinner == nil {
		t.Errorf("Unexpected menu: %+v", menu)
	}

	plan, err := client.WeeklyPlan(ctx, meal.PlanFilter{DietType: "all", MaxCalories: 600})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if plan["monday"].Lunch == nil || plan["monday"].Lunch.Name != "Wrap" {
		t.Errorf("Unexpected plan: %+v", plan)
	}
}

func TestShoppingList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if string(req["meal_ids"]) != `[1,"abc"]` {
			t.Errorf("Expected meal_ids [1,\"abc\"], got %s", req["meal_ids"])
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got '%s'", r.Header.Get("Content-Type"))
		}
		fmt.Fprintln(w, `{"ingredients": [{"ingredient": "eggs", "count": 2}, {"ingredient": "flour", "count": 1.5}]}`)
	})

	items, err := client.ShoppingList(context.Background(), []meal.ID{"1", "abc"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 2 || items[0].RoundedCount() != 2 || items[1].Count != 1.5 {
		t.Errorf("Unexpected items: %+v", items)
	}
}

func TestServerErrors(t *testing.T) {
	t.Run("DetailString", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"detail": "Meal not found"}`)
		})

		_, err := client.GetMeal(context.Background(), "404")
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("Expected *Error, got %v", err)
		}
		if apiErr.Kind != KindServer || apiErr.StatusCode != http.StatusNotFound {
			t.Errorf("Unexpected error: %+v", apiErr)
		}
		if UserMessage(err) != "Meal not found" {
			t.Errorf("Expected server detail as message, got '%s'", UserMessage(err))
		}
	})

	t.Run("DetailList", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprintln(w, `{"detail": [{"loc": ["body", "name"], "msg": "field required"}]}`)
		})

		_, err := client.CreateMeal(context.Background(), meal.Meal{})
		if UserMessage(err) != "field required" {
			t.Errorf("Expected joined validation messages, got '%s'", UserMessage(err))
		}
	})

	t.Run("GenericMessage", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.ListMeals(context.Background(), meal.Filter{})
		if err == nil {
			t.Fatal("Expected an error for non-2xx status code, got nil")
		}
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) {
			t.Errorf("Server error must not look like a network failure: %v", err)
		}
		if !strings.Contains(UserMessage(err), "status 500") {
			t.Errorf("Expected generic message with status, got '%s'", UserMessage(err))
		}
	})

	t.Run("UndecodableBody", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `<html>maintenance</html>`)
		})

		_, err := client.RandomMenu(context.Background())
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Kind != KindServer || apiErr.Err == nil {
			t.Fatalf("Expected a server error wrapping the decode failure, got %v", err)
		}
	})
}

func TestTimeoutAndUnreachable(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		cfg := &config.Config{APIURL: server.URL, RequestTimeout: 50 * time.Millisecond}
		client := NewClient(cfg, zap.NewNop())

		_, err := client.ListMeals(context.Background(), meal.Filter{})
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("Expected ErrTimeout, got %v", err)
		}
		if errors.Is(err, ErrUnreachable) {
			t.Error("Timeout must not also match ErrUnreachable")
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		cfg := &config.Config{APIURL: url, RequestTimeout: time.Second}
		client := NewClient(cfg, zap.NewNop())

		_, err := client.ListMeals(context.Background(), meal.Filter{})
		if !errors.Is(err, ErrUnreachable) {
			t.Fatalf("Expected ErrUnreachable, got %v", err)
		}
		if errors.Is(err, ErrTimeout) {
			t.Error("Connection failure must not match ErrTimeout")
		}
	})

	t.Run("CallerCancellationPassesThrough", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.ListMeals(ctx, meal.Filter{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		var apiErr *Error
		if errors.As(err, &apiErr) {
			t.Errorf("Cancellation must not be classified, got %+v", apiErr)
		}
	})
}

func TestObserverAndToken(t *testing.T) {
	observer := &recordingObserver{}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cook@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprintf(w, `{"access_token": %q, "token_type": "bearer"}`, signed)
		case "/auth/register":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, `{"detail": "Email already registered"}`)
		default:
			authHeader = r.Header.Get("Authorization")
			fmt.Fprintln(w, `[]`)
		}
	}, WithObserver(observer))
	ctx := context.Background()

	if _, err := client.Login(ctx, "", "pw"); !errors.Is(err, ErrCredentialsRequired) {
		t.Fatalf("Expected ErrCredentialsRequired, got %v", err)
	}

	session, err := client.Login(ctx, "cook@example.com", "pw")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if session.Subject != "cook@example.com" || session.Expired(time.Now()) {
		t.Errorf("Unexpected session: %+v", session)
	}

	if _, err := client.ListMeals(ctx, meal.Filter{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if authHeader != "Bearer "+signed {
		t.Errorf("Expected bearer token header, got '%s'", authHeader)
	}

	_, err = client.Register(ctx, "cook@example.com", "pw")
	if UserMessage(err) != "Email already registered" {
		t.Errorf("Expected registration detail, got '%s'", UserMessage(err))
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.calls) != 3 {
		t.Fatalf("Expected 3 observed calls, got %d", len(observer.calls))
	}
	if observer.calls[1].Op != "list meals" || observer.calls[1].StatusCode != http.StatusOK {
		t.Errorf("Unexpected observed call: %+v", observer.calls[1])
	}
	if observer.calls[2].Kind != KindServer {
		t.Errorf("Expected failed register to be observed as server error, got %+v", observer.calls[2])
	}
}

func TestSessionFromOpaqueToken(t *testing.T) {
	s := SessionFromToken("not-a-jwt")
	if s.Token != "not-a-jwt" || !s.ExpiresAt.IsZero() || s.Expired(time.Now()) {
		t.Errorf("Unexpected session for opaque token: %+v", s)
	}
}
