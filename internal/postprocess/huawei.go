package postprocess

import (
	"actflow/internal/actdata"
	"actflow/internal/domain"
	"actflow/internal/jsonmap"
)

const (
	huaweiSystemPrompt = "You are a document processing assistant specializing in Russian work completion acts " +
		"(АКТ ВЫПОЛНЕННЫХ РАБОТ). Extract key information from P-1 form telecommunications service documents " +
		"and return it in structured JSON format. Pay attention to Cyrillic text, company names, addresses, " +
		"contract numbers and service details."

	huaweiExtractionPrompt = "Extract the following information from this work completion act:\n" +
		"- document_type (form type, e.g. 'P-1')\n" +
		"- document_number (if available)\n" +
		"- date_of_issue (document creation or signing date)\n" +
		"- customer (name, full address, tax number)\n" +
		"- contractor (name, full address, tax number)\n" +
		"- contract (number and date)\n" +
		"- act.items: item number, service_description (Russian and English if available), completion date, " +
		"unit of measurement, quantity, unit_price, total_cost\n" +
		"- act.totals: total quantity and total cost\n" +
		"Site names and order numbers are read from service descriptions. " +
		"Return valid JSON with Cyrillic characters preserved."
)

// HuaweiRefiner adds numeric siblings to Huawei act items and recomputes totals.
type HuaweiRefiner struct{}

func (HuaweiRefiner) DefaultBundle() domain.PromptBundle {
	return domain.PromptBundle{
		SystemPrompt:        huaweiSystemPrompt,
		ExtractionPrompt:    huaweiExtractionPrompt,
		RequiredFields:      []string{"document_type", "customer", "contractor", "contract", "act"},
		ProcessingMode:      string(domain.ProcessingModeImageOCR),
		VerificationEnabled: true,
	}
}

// Refine returns results carrying an error unchanged. Aggregated results
// (page_results plus aggregated_data) get recomputed totals and
// processing_stats; single-page results get numeric item fields and
// act.totals.total_cost_numeric.
func (h HuaweiRefiner) Refine(result map[string]any) map[string]any {
	if _, failed := result["error"]; failed {
		return result
	}
	out := jsonmap.Clone(result)
	_, hasPages := out["page_results"]
	if agg := jsonmap.GetMap(out, "aggregated_data"); hasPages && agg != nil {
		h.refineAggregated(out, agg)
		return out
	}
	h.refineSinglePage(out)
	return out
}

func (h HuaweiRefiner) refineAggregated(out, agg map[string]any) {
	act := jsonmap.GetMap(agg, "act")
	items := make([]any, 0)
	if act != nil {
		if raw, ok := act["items"]; ok {
			items = refineItems(raw)
			quantity, cost := actdata.Totals(items)

			totals := jsonmap.GetMap(act, "totals")
			if totals == nil {
				totals = make(map[string]any, 2)
				act["totals"] = totals
			}
			totals["total_quantity"] = quantity
			totals["total_cost"] = cost
			act["items"] = items
		}
	}

	entities := actdata.CollectEntities(items)
	out["processing_stats"] = map[string]any{
		"pages_processed":      pagesProcessed(out),
		"total_act_items":      len(items),
		"unique_sites":         entities.Sites.Len(),
		"unique_order_numbers": entities.OrderNumbers.Len(),
	}
}

func (h HuaweiRefiner) refineSinglePage(out map[string]any) {
	act := jsonmap.GetMap(out, "act")
	if act == nil {
		return
	}
	if raw, ok := act["items"]; ok {
		act["items"] = refineItems(raw)
	}
	if totals := jsonmap.GetMap(act, "totals"); totals != nil {
		if v, ok := totals["total_cost"]; ok {
			totals["total_cost_numeric"] = actdata.ExtractNumeric(v)
		}
	}
}

// refineItems adds *_numeric siblings for each amount an item carries.
// Non-object entries are kept as they are.
func refineItems(raw any) []any {
	list, _ := jsonmap.Slice(raw)
	out := make([]any, 0, len(list))
	for _, entry := range list {
		item, ok := jsonmap.Map(entry)
		if !ok {
			out = append(out, entry)
			continue
		}
		if v, ok := item["unit_price"]; ok {
			item["unit_price_numeric"] = actdata.ExtractNumeric(v)
		}
		if v, ok := item["total_cost"]; ok {
			item["total_cost_numeric"] = actdata.ExtractNumeric(v)
		}
		if v, ok := item["quantity"]; ok {
			item["quantity_numeric"] = actdata.ExtractNumeric(v)
		}
		out = append(out, item)
	}
	return out
}

func pagesProcessed(result map[string]any) any {
	if v, ok := result["pages_processed"]; ok {
		return v
	}
	return 0
}
