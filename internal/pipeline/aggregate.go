package pipeline

import (
	"actflow/internal/actdata"
	"actflow/internal/jsonmap"
	"actflow/internal/respparse"
)

// NoSuccessfulPagesError is reported when every page failed.
const NoSuccessfulPagesError = "No pages were successfully processed"

// metadataFields are copied from the canonical page into aggregated_data.
var metadataFields = []string{
	"document_type",
	"document_number",
	"date_of_issue",
	"customer",
	"contractor",
	"contract",
}

// Aggregate merges per-page results into one document result.
func Aggregate(pageResults []map[string]any) map[string]any {
	total := len(pageResults)

	var successful []map[string]any
	for _, pr := range pageResults {
		if pr["page_processing_status"] == PageStatusSuccess {
			successful = append(successful, pr)
		}
	}

	if len(successful) == 0 {
		return map[string]any{
			"error":           NoSuccessfulPagesError,
			"page_results":    pageResults,
			"pages_processed": 0,
			"total_pages":     total,
		}
	}

	canonical := canonicalPage(successful)
	aggregated := make(map[string]any, len(metadataFields)+3)
	for _, field := range metadataFields {
		if v, ok := canonical[field]; ok {
			aggregated[field] = v
		}
	}

	items := make([]any, 0)
	for _, pr := range successful {
		for _, raw := range jsonmap.GetSlice(pr, "act", "items") {
			item, ok := jsonmap.Map(raw)
			if !ok {
				continue
			}
			merged := jsonmap.Clone(item)
			merged["source_page"] = pr["page_number"]
			items = append(items, merged)
		}
	}

	entities := actdata.CollectEntities(items)
	quantity, cost := actdata.Totals(items)

	aggregated["act"] = map[string]any{
		"items": items,
		"totals": map[string]any{
			"total_quantity": quantity,
			"total_cost":     cost,
			"items_count":    len(items),
		},
	}
	aggregated["sites"] = entities.Sites.Values()
	aggregated["order_numbers"] = entities.OrderNumbers.Values()

	return map[string]any{
		"aggregated_data": aggregated,
		"processing_summary": map[string]any{
			"pages_with_errors":            total - len(successful),
			"pages_successfully_processed": len(successful),
			"total_act_items_found":        len(items),
			"unique_sites_found":           entities.Sites.Len(),
			"unique_order_numbers_found":   entities.OrderNumbers.Len(),
		},
		"page_results":    pageResults,
		"pages_processed": len(successful),
		"total_pages":     total,
	}
}

// canonicalPage is the first cleanly parsed page carrying a document_type key,
// whatever its value, falling back to the first successful page.
func canonicalPage(successful []map[string]any) map[string]any {
	for _, pr := range successful {
		if respparse.IsFailure(pr) {
			continue
		}
		if _, ok := pr["document_type"]; ok {
			return pr
		}
	}
	return successful[0]
}
