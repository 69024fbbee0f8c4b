package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actflow/internal/pipeline"
)

func TestAggregate_CanonicalPagePrefersDocumentType(t *testing.T) {
	pages := []map[string]any{
		{"page_number": 1, "page_processing_status": "success", "customer": "ignored"},
		{"page_number": 2, "page_processing_status": "success", "raw_response": "x", "parsing_error": "Failed", "document_type": "bad"},
		{"page_number": 3, "page_processing_status": "success", "document_type": "Акт", "customer": "ООО В", "extra": "dropped"},
	}

	out := pipeline.Aggregate(pages)

	agg := out["aggregated_data"].(map[string]any)
	assert.Equal(t, "Акт", agg["document_type"])
	assert.Equal(t, "ООО В", agg["customer"])
	assert.NotContains(t, agg, "extra")
}

func TestAggregate_CanonicalPageNeedsOnlyDocumentTypeKey(t *testing.T) {
	tests := []struct {
		name    string
		docType any
	}{
		{"null", nil},
		{"number", 7.0},
		{"empty string", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := []map[string]any{
				{"page_number": 1, "page_processing_status": "success", "document_type": tt.docType, "customer": "ООО А"},
				{"page_number": 2, "page_processing_status": "success", "document_type": "Акт", "customer": "ООО Б"},
			}

			out := pipeline.Aggregate(pages)

			agg := out["aggregated_data"].(map[string]any)
			assert.Equal(t, "ООО А", agg["customer"])
			require.Contains(t, agg, "document_type")
			assert.Equal(t, tt.docType, agg["document_type"])
		})
	}
}

func TestAggregate_CanonicalFallsBackToFirstSuccess(t *testing.T) {
	pages := []map[string]any{
		{"page_number": 1, "page_processing_status": "failed", "error": "x"},
		{"page_number": 2, "page_processing_status": "success", "contract": "Д-5"},
		{"page_number": 3, "page_processing_status": "success", "contract": "Д-6"},
	}

	out := pipeline.Aggregate(pages)

	agg := out["aggregated_data"].(map[string]any)
	assert.Equal(t, "Д-5", agg["contract"])
}

func TestAggregate_MergesItemsWithSourcePage(t *testing.T) {
	pages := []map[string]any{
		{"page_number": 1, "page_processing_status": "success", "act": map[string]any{"items": []any{
			map[string]any{"quantity": 1.0, "total_cost": "1 000,00", "service_description": "Объект: Альфа"},
		}}},
		{"page_number": 2, "page_processing_status": "failed", "error": "x"},
		{"page_number": 3, "page_processing_status": "success", "act": map[string]any{"items": []any{
			map[string]any{"quantity": "3", "total_cost": 500, "service_description": "объект: Альфа, заказ №9"},
			map[string]any{"quantity": "n/a", "total_cost": nil},
		}}},
	}

	out := pipeline.Aggregate(pages)

	agg := out["aggregated_data"].(map[string]any)
	act := agg["act"].(map[string]any)
	items := act["items"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, 1, items[0].(map[string]any)["source_page"])
	assert.Equal(t, 3, items[2].(map[string]any)["source_page"])

	totals := act["totals"].(map[string]any)
	assert.InDelta(t, 4.0, totals["total_quantity"], 1e-9)
	assert.InDelta(t, 1500.0, totals["total_cost"], 1e-9)
	assert.Equal(t, 3, totals["items_count"])

	assert.Equal(t, []string{"Альфа"}, agg["sites"])
	assert.Equal(t, []string{"9"}, agg["order_numbers"])

	summary := out["processing_summary"].(map[string]any)
	assert.Equal(t, 1, summary["pages_with_errors"])
	assert.Equal(t, 2, summary["pages_successfully_processed"])
	assert.Equal(t, 3, summary["total_act_items_found"])
	assert.Equal(t, 1, summary["unique_sites_found"])
	assert.Equal(t, 1, summary["unique_order_numbers_found"])
	assert.Equal(t, out["total_pages"], out["pages_processed"].(int)+summary["pages_with_errors"].(int))

	_, mutated := pages[0]["act"].(map[string]any)["items"].([]any)[0].(map[string]any)["source_page"]
	assert.False(t, mutated)
}

func TestAggregate_NoSuccess(t *testing.T) {
	pages := []map[string]any{
		{"page_number": 1, "page_processing_status": "failed", "error": "a"},
		{"page_number": 2, "page_processing_status": "failed", "error": "b"},
	}

	out := pipeline.Aggregate(pages)

	assert.Equal(t, map[string]any{
		"error":           "No pages were successfully processed",
		"page_results":    pages,
		"pages_processed": 0,
		"total_pages":     2,
	}, out)
}

func TestAggregate_EmptyCollections(t *testing.T) {
	out := pipeline.Aggregate([]map[string]any{{"page_number": 1, "page_processing_status": "success"}})

	agg := out["aggregated_data"].(map[string]any)
	assert.Equal(t, []any{}, agg["act"].(map[string]any)["items"])
	assert.Equal(t, []string{}, agg["sites"])
	assert.Equal(t, []string{}, agg["order_numbers"])
}
