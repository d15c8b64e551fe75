//go:build integration

package integration

import (
	"math"
	"net/http"
	"sync"
	"testing"
)

func checkInvariants(t *testing.T, res *pricingResult, requested []dish) {
	t.Helper()

	if res.Multiplier < 0.75 || res.Multiplier > 1.75 {
		t.Errorf("multiplier %v out of bounds", res.Multiplier)
	}
	if len(res.Dishes) != len(requested) {
		t.Fatalf("dishes: got %d, want %d", len(res.Dishes), len(requested))
	}
	for i, d := range res.Dishes {
		if d.ID != requested[i].ID {
			t.Errorf("dish %d: id %q, want %q", i, d.ID, requested[i].ID)
		}
		// The reported multiplier is rounded to 2dp, prices use the exact one.
		want := int64(math.Round(float64(d.OriginalPrice) * res.Multiplier))
		tolerance := d.OriginalPrice/200 + 1
		if delta := d.DynamicPrice - want; delta < -tolerance || delta > tolerance {
			t.Errorf("dish %s: dynamicPrice %d, want %d", d.ID, d.DynamicPrice, want)
		}
		diff := d.DynamicPrice - d.OriginalPrice
		if diff >= 0 && (d.Surcharge != diff || d.Savings != 0) {
			t.Errorf("dish %s: surcharge %d savings %d for diff %d", d.ID, d.Surcharge, d.Savings, diff)
		}
		if diff < 0 && (d.Savings != -diff || d.Surcharge != 0) {
			t.Errorf("dish %s: surcharge %d savings %d for diff %d", d.ID, d.Surcharge, d.Savings, diff)
		}
	}
	if res.Timestamp == "" {
		t.Error("timestamp is empty")
	}
	if res.ConditionsSummary == "" {
		t.Error("conditions_summary is empty")
	}
}

func TestCalculate_FallsBackWhenOracleUnreachable(t *testing.T) {
	dishes := []dish{
		{ID: "1", Name: "Margherita", Price: 349, Category: "pizza"},
		{ID: "2", Name: "Mango Lassi", Price: 89, Category: "drinks"},
		{ID: "3", Name: "Paneer Tikka", Price: 0},
	}

	resp := doPost(t, "/api/pricing/calculate", calculateRequest{Dishes: dishes})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[envelope](t, resp)
	if !body.Success || body.Data == nil {
		t.Fatalf("expected success with data, got %+v", body)
	}
	checkInvariants(t, body.Data, dishes)

	if c := body.Data.Weather.Condition; c != "clear" && c != "rain" {
		t.Errorf("simulated weather condition: got %q", c)
	}
}

func TestCalculate_DefaultPrice(t *testing.T) {
	resp := doPost(t, "/api/pricing/calculate", []byte(`{"dishes": [{"id": "9", "name": "Thali"}]}`))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[envelope](t, resp)
	if got := body.Data.Dishes[0].OriginalPrice; got != 299 {
		t.Errorf("originalPrice: got %d, want 299", got)
	}
}

func TestCalculate_EmptyDishes(t *testing.T) {
	resp := doPost(t, "/api/pricing/calculate", calculateRequest{Dishes: []dish{}})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[envelope](t, resp)
	if body.Success {
		t.Error("expected success=false")
	}
	if body.Error != "No dishes provided" {
		t.Errorf("error: got %q, want %q", body.Error, "No dishes provided")
	}
}

func TestCalculate_MalformedBody(t *testing.T) {
	resp := doPost(t, "/api/pricing/calculate", []byte(`{"dishes": [`))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCalculate_Concurrent(t *testing.T) {
	dishes := []dish{{ID: "1", Name: "Biryani", Price: 279}}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := doPost(t, "/api/pricing/calculate", calculateRequest{Dishes: dishes})
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
				return
			}
			body := decodeJSON[envelope](t, resp)
			checkInvariants(t, body.Data, dishes)
		}()
	}
	wg.Wait()
}
