package menuapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/jmylchreest/campusmenu/pkg/menu"
)

func testConfig(base string) Config {
	cfg := DefaultConfig(base)
	cfg.Delay = 0
	return cfg
}

func TestPost_RequestShape(t *testing.T) {
	var (
		gotMethod string
		gotQuery  map[string]string
		gotBody   postBody
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = map[string]string{
			"date":       r.URL.Query().Get("date"),
			"restaurant": r.URL.Query().Get("restaurant"),
			"time":       r.URL.Query().Get("time"),
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	items := []string{"김치찌개", "밥", "김치"}
	if err := c.Post(context.Background(), "20240325", menu.Dodam, menu.Lunch, items, 6000); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s", gotMethod)
	}
	want := map[string]string{"date": "20240325", "restaurant": "DODAM", "time": "LUNCH"}
	if !reflect.DeepEqual(gotQuery, want) {
		t.Errorf("query = %v, want %v", gotQuery, want)
	}
	if gotBody.Price != 6000 || !reflect.DeepEqual(gotBody.MenuNames, items) {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestPost_MorningWireName(t *testing.T) {
	var gotTime string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTime = r.URL.Query().Get("time")
	}))
	defer srv.Close()

	c, _ := New(testConfig(srv.URL))
	if err := c.Post(context.Background(), "20240325", menu.Haksik, menu.OneDollarMorning, []string{"토스트"}, 1000); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if gotTime != "MORNING" {
		t.Errorf("time = %q", gotTime)
	}
}

func TestPost_Retries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int32
		wantCode  int
	}{
		{"recovers after 5xx", []int{500, 502, 200}, false, 3, 0},
		{"exhausts attempts", []int{503}, true, 3, 503},
		{"4xx is not retried", []int{400}, true, 1, 400},
		{"429 is retried", []int{429, 200}, false, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				if n >= len(tt.statuses) {
					n = len(tt.statuses) - 1
				}
				w.WriteHeader(tt.statuses[n])
			}))
			defer srv.Close()

			c, _ := New(testConfig(srv.URL))
			err := c.Post(context.Background(), "20240325", menu.Faculty, menu.Lunch, []string{"정식"}, 7000)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Post() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
			if err != nil {
				var perr *menu.MenuPostError
				if !errors.As(err, &perr) {
					t.Fatalf("expected *menu.MenuPostError, got %T", err)
				}
				if perr.StatusCode != tt.wantCode || perr.Slot != menu.Lunch {
					t.Errorf("post error = %+v", perr)
				}
			}
		})
	}
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meals" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("date") == "20240101" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Meal{
			Date: "20240325", Restaurant: "DODAM", Time: "LUNCH", Price: 6000, MenuNames: []string{"제육볶음"},
		})
	}))
	defer srv.Close()

	c, _ := New(testConfig(srv.URL))

	meal, err := c.Lookup(context.Background(), "20240325", menu.Dodam, menu.Lunch)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if meal.Price != 6000 || len(meal.MenuNames) != 1 {
		t.Errorf("meal = %+v", meal)
	}

	_, err = c.Lookup(context.Background(), "20240101", menu.Dodam, menu.Lunch)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without base url")
	}
}
