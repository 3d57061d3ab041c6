package validate_test

import (
	"strings"
	"testing"

	"github.com/shashiranjanraj/faultline/pkg/validate"
)

type line struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"  validate:"required,between=1,100"`
}

type checkoutInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Items    []line `json:"items"    validate:"required,min=1,max=3,dive"`
	Currency string `json:"currency" validate:"nullable,in=USD,EUR,GBP"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(checkoutInput{
		Email: "jane@example.com",
		Items: []line{{ProductID: 1, Quantity: 2}},
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(checkoutInput{})
	if _, ok := errs["email"]; !ok {
		t.Error("expected email to be required")
	}
	if _, ok := errs["items"]; !ok {
		t.Error("expected items to be required")
	}
}

func TestDiveReportsNestedPaths(t *testing.T) {
	errs := validate.Struct(checkoutInput{
		Email: "jane@example.com",
		Items: []line{{ProductID: 1, Quantity: 1}, {ProductID: 0, Quantity: 500}},
	})
	if _, ok := errs["items[1].productId"]; !ok {
		t.Errorf("expected items[1].productId error, got %v", errs)
	}
	if _, ok := errs["items[1].quantity"]; !ok {
		t.Errorf("expected items[1].quantity error, got %v", errs)
	}
	if _, ok := errs["items[0].quantity"]; ok {
		t.Errorf("items[0] is valid, got %v", errs)
	}
}

func TestSliceLengthBounds(t *testing.T) {
	errs := validate.Struct(checkoutInput{
		Email: "jane@example.com",
		Items: make([]line, 4),
	})
	if _, ok := errs["items"]; !ok {
		t.Errorf("expected items max error, got %v", errs)
	}
}

func TestInRule(t *testing.T) {
	errs := validate.Struct(checkoutInput{
		Email:    "jane@example.com",
		Items:    []line{{ProductID: 1, Quantity: 1}},
		Currency: "JPY",
	})
	if _, ok := errs["currency"]; !ok {
		t.Error("expected currency to be rejected")
	}
}

func TestMaxCountsRunes(t *testing.T) {
	type in struct {
		Content string `json:"content" validate:"required,max=1000"`
	}
	if errs := validate.Struct(in{Content: strings.Repeat("é", 1000)}); validate.HasErrors(errs) {
		t.Errorf("1000 runes should pass, got %v", errs)
	}
	if errs := validate.Struct(in{Content: strings.Repeat("a", 1001)}); !validate.HasErrors(errs) {
		t.Error("1001 characters should fail")
	}
	if errs := validate.Struct(in{Content: "   "}); !validate.HasErrors(errs) {
		t.Error("whitespace-only content should be required")
	}
}

func TestPointerFields(t *testing.T) {
	type patch struct {
		Name  *string  `json:"name"  validate:"nullable,min=1,max=5"`
		Price *float64 `json:"price" validate:"nullable,gte=0"`
	}
	long, neg := "too long name", -1.0
	errs := validate.Struct(patch{Name: &long, Price: &neg})
	if _, ok := errs["name"]; !ok {
		t.Error("expected name max error")
	}
	if _, ok := errs["price"]; !ok {
		t.Error("expected price gte error")
	}
	if errs := validate.Struct(patch{}); validate.HasErrors(errs) {
		t.Errorf("nil pointers should be skipped, got %v", errs)
	}
}

func TestRequiredPointer(t *testing.T) {
	type in struct {
		Prefs *struct {
			Email bool `json:"email"`
		} `json:"prefs" validate:"required"`
	}
	if _, ok := validate.Struct(in{})["prefs"]; !ok {
		t.Error("expected nil required pointer to fail")
	}
}

func TestRegexWithCommas(t *testing.T) {
	type in struct {
		Event string `json:"event" validate:"required,regex=^[a-z][a-z0-9_.:-]{0,63}$"`
	}
	if errs := validate.Struct(in{Event: "page.view"}); validate.HasErrors(errs) {
		t.Errorf("expected page.view to pass, got %v", errs)
	}
	if errs := validate.Struct(in{Event: "Page View"}); !validate.HasErrors(errs) {
		t.Error("expected Page View to fail")
	}
}
