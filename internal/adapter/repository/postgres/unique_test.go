package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505"}

	if !isUniqueViolation(unique) {
		t.Error("expected SQLSTATE 23505 to classify as a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert alert_rule: %w", unique)) {
		t.Error("expected a wrapped 23505 to classify as a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign-key violations must not classify as unique violations")
	}
	if isUniqueViolation(errors.New("connection refused")) {
		t.Error("plain errors must not classify as unique violations")
	}
	if isUniqueViolation(nil) {
		t.Error("nil must not classify as a unique violation")
	}
}
