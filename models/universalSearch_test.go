package models

import (
	"strings"
	"testing"

	"github.com/flowplatform/flow_backend/config"
)

func TestSearchStrategy_BuildQuery_SingleField(t *testing.T) {
	s := SearchStrategy{
		Table:      "factories",
		SourceType: SearchSourceTypeFactory,
		Fields:     []string{"factories.name"},
		TitleExpr:  "factories.name",
	}

	var kinds []interface{}
	query := s.buildQuery(&kinds)

	for _, fragment := range []string{
		"SELECT factories.id AS id",
		"factories.name AS title",
		"NULL AS alias",
		"similarity(factories.name, ?) AS similarity",
		"2 AS result_type",
		"NULL AS extra_info",
		"FROM factories",
		"WHERE (factories.name ILIKE ?)",
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("query missing %q:\n%s", fragment, query)
		}
	}
	if len(kinds) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(kinds))
	}
	if kinds[0] != searchTermPlaceholder || kinds[1] != likeTermPlaceholder {
		t.Fatalf("expected similarity then ilike placeholders, got %v", kinds)
	}
}

func TestSearchStrategy_BuildQuery_MultiFieldUsesGreatest(t *testing.T) {
	s := SearchStrategy{
		Table:      "products",
		SourceType: SearchSourceTypeProduct,
		Fields:     []string{"products.name", "products.sku"},
		TitleExpr:  "products.name",
		AliasExpr:  "products.sku",
		ExtraExpr:  "factories.name",
		Joins:      "LEFT JOIN factories ON factories.id = products.factory_id",
	}

	var kinds []interface{}
	query := s.buildQuery(&kinds)

	for _, fragment := range []string{
		"GREATEST(similarity(products.name, ?), similarity(products.sku, ?))",
		"products.sku AS alias",
		"factories.name AS extra_info",
		"LEFT JOIN factories",
		"WHERE (products.name ILIKE ? OR products.sku ILIKE ?)",
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("query missing %q:\n%s", fragment, query)
		}
	}
	// two similarity args plus two ILIKE args
	if len(kinds) != 4 {
		t.Fatalf("expected 4 placeholders, got %d", len(kinds))
	}
}

func TestSearchSourceTypeCodes_RoundTrip(t *testing.T) {
	for _, s := range searchStrategies {
		code := s.SourceType.Code()
		if code == 0 {
			t.Errorf("strategy %s has no result code", s.Table)
			continue
		}
		if got := SearchSourceTypeFromCode(code); got != s.SourceType {
			t.Errorf("code %d maps to %s, expected %s", code, got, s.SourceType)
		}
	}
	if got := SearchSourceTypeFromCode(999); got != "" {
		t.Errorf("expected empty source type for unknown code, got %s", got)
	}
}

func TestResolveSearchLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit *int
		want  int
	}{
		{"nil falls back to default", nil, config.SearchLimit},
		{"zero falls back to default", intPtr(0), config.SearchLimit},
		{"negative falls back to default", intPtr(-3), config.SearchLimit},
		{"small limit honored", intPtr(5), 5},
		{"limit above default honored", intPtr(50), 50},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := resolveSearchLimit(test.limit); got != test.want {
				t.Errorf("expected %d, got %d", test.want, got)
			}
		})
	}
}

func intPtr(i int) *int { return &i }

func TestSearchStrategies_UniformColumnShape(t *testing.T) {
	// every strategy must produce the same columns or the UNION breaks
	for _, s := range searchStrategies {
		var kinds []interface{}
		query := s.buildQuery(&kinds)
		for _, col := range []string{" AS id", " AS title", " AS alias", " AS similarity", " AS result_type", " AS extra_info"} {
			if !strings.Contains(query, col) {
				t.Errorf("strategy %s missing column %q", s.Table, col)
			}
		}
		if len(s.Fields) == 0 {
			t.Errorf("strategy %s has no searchable fields", s.Table)
		}
	}
}
