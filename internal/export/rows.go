// Package export renders processing results as XLSX workbooks and CSV files.
package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"actflow/internal/actdata"
	"actflow/internal/jsonmap"
)

// Document is one file's latest result as seen by the exporters.
type Document struct {
	FileName string
	Status   string
	Result   map[string]any
}

// itemColumns is the header of the items sheet/CSV.
var itemColumns = []string{
	"File",
	"Page",
	"Item No",
	"Service Description",
	"Completion Date",
	"Unit",
	"Quantity",
	"Unit Price",
	"Total Cost",
	"Quantity (numeric)",
	"Total Cost (numeric)",
}

// summaryColumns is the header of the summary sheet.
var summaryColumns = []string{
	"File",
	"Status",
	"Document Type",
	"Document Number",
	"Date of Issue",
	"Customer",
	"Contractor",
	"Contract",
	"Pages Processed",
	"Total Pages",
	"Items",
	"Total Quantity",
	"Total Cost",
	"Sites",
	"Order Numbers",
	"Validation Errors",
	"Error",
}

// dataView returns aggregated_data for multi-page results, else the result.
func dataView(result map[string]any) map[string]any {
	if agg := jsonmap.GetMap(result, "aggregated_data"); agg != nil {
		return agg
	}
	return result
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// itemRows returns one row per act item. Numeric cells hold float64.
func itemRows(doc Document) [][]any {
	data := dataView(doc.Result)
	var rows [][]any
	for i, raw := range jsonmap.GetSlice(data, "act", "items") {
		item, ok := jsonmap.Map(raw)
		if !ok {
			continue
		}
		number := firstOf(item, "item_number", "number", "no")
		if number == nil {
			number = i + 1
		}
		rows = append(rows, []any{
			doc.FileName,
			cellText(firstOf(item, "source_page", "page_number")),
			cellText(number),
			cellText(item["service_description"]),
			cellText(firstOf(item, "completion_date", "date")),
			cellText(firstOf(item, "unit", "unit_of_measurement")),
			cellText(item["quantity"]),
			cellText(item["unit_price"]),
			cellText(item["total_cost"]),
			actdata.ExtractNumeric(item["quantity"]),
			actdata.ExtractNumeric(item["total_cost"]),
		})
	}
	return rows
}

// summaryRow returns the single summary row of doc. Totals prefer the
// stored act.totals and fall back to summing the items.
func summaryRow(doc Document) []any {
	data := dataView(doc.Result)
	items := jsonmap.GetSlice(data, "act", "items")

	quantity, cost := actdata.Totals(items)
	if totals := jsonmap.GetMap(data, "act", "totals"); totals != nil {
		if v, ok := actdata.ParseNumber(totals["total_quantity"]); ok {
			quantity = v
		}
		if v, ok := actdata.ParseNumber(totals["total_cost"]); ok {
			cost = v
		}
	}

	return []any{
		doc.FileName,
		doc.Status,
		cellText(data["document_type"]),
		cellText(data["document_number"]),
		cellText(data["date_of_issue"]),
		cellText(data["customer"]),
		cellText(data["contractor"]),
		cellText(data["contract"]),
		cellText(doc.Result["pages_processed"]),
		cellText(doc.Result["total_pages"]),
		len(items),
		quantity,
		cost,
		joinList(data["sites"]),
		joinList(data["order_numbers"]),
		joinList(doc.Result["validation_errors"]),
		cellText(doc.Result["error"]),
	}
}

// cellText renders a JSON value for a text cell. Objects are flattened to
// "key: value" pairs in key order.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			if s := cellText(t[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "; ")
	case []any, []string, []map[string]any:
		return joinList(t)
	default:
		return fmt.Sprint(t)
	}
}

func joinList(v any) string {
	list, ok := jsonmap.Slice(v)
	if !ok {
		return cellText(v)
	}
	parts := make([]string, 0, len(list))
	for _, e := range list {
		parts = append(parts, cellText(e))
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
