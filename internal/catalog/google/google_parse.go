package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tally/internal/core"
)

// Column headers, matched case-insensitively.
const (
	colID             = "id"
	colDate           = "date"
	colAmount         = "amount"
	colDescription    = "description"
	colLocation       = "location"
	colTags           = "tags"
	colSource         = "source"
	colMerchantID     = "merchant_id"
	colMerchantName   = "merchant_name"
	colCategory       = "category"
	colSubcategory    = "subcategory"
	colCategoryPath   = "category_path"
	colMerchantTags   = "merchant_tags"
	colSections       = "sections"
	colExcludedReason = "excluded_reason"
)

var errMissingHeader = errors.New("unexpected header")

// parseRecords converts a values matrix into records. Rows without a
// parsable date or amount are skipped and counted.
func parseRecords(values [][]any) ([]core.Record, int, error) {
	if len(values) == 0 {
		return nil, 0, nil
	}
	headers := toStrings(values[0])
	idx := func(name string) int { return indexOf(headers, name) }

	required := []string{colDate, colAmount}
	var missing []string
	for _, name := range required {
		if idx(name) == -1 {
			missing = append(missing, name)
		}
	}
	if idx(colMerchantID) == -1 && idx(colMerchantName) == -1 {
		missing = append(missing, colMerchantID+"|"+colMerchantName)
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("%w: missing %s; got headers=%v", errMissingHeader, strings.Join(missing, ","), headers)
	}

	cols := map[string]int{}
	for _, name := range []string{colID, colDate, colAmount, colDescription, colLocation, colTags, colSource,
		colMerchantID, colMerchantName, colCategory, colSubcategory, colCategoryPath, colMerchantTags,
		colSections, colExcludedReason} {
		cols[name] = idx(name)
	}

	var out []core.Record
	skipped := 0
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		get := func(name string) string { return strings.TrimSpace(safeGet(row, cols[name])) }

		if strings.Join(row, "") == "" {
			continue
		}
		amount, err := core.ParseAmount(get(colAmount))
		if err != nil {
			skipped++
			continue
		}
		r := core.Record{
			ID:             get(colID),
			Date:           get(colDate),
			Amount:         amount,
			Description:    get(colDescription),
			Location:       get(colLocation),
			Tags:           splitList(get(colTags)),
			Source:         get(colSource),
			MerchantID:     get(colMerchantID),
			MerchantName:   get(colMerchantName),
			Category:       get(colCategory),
			Subcategory:    get(colSubcategory),
			CategoryPath:   get(colCategoryPath),
			MerchantTags:   splitList(get(colMerchantTags)),
			Sections:       splitList(get(colSections)),
			ExcludedReason: get(colExcludedReason),
		}
		if r.ID == "" {
			r.ID = "row" + strconv.Itoa(i+1)
		}
		if _, err := r.Transaction(); err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped, nil
}

// splitList splits a cell holding a comma or semicolon separated list.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func sectionsOf(records []core.Record) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		for _, s := range r.Sections {
			k := core.SectionKey(s)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func metadataFor(spreadsheetID, sheetName string) core.Metadata {
	return core.Metadata{DataSources: []string{"sheets:" + spreadsheetID + "/" + sheetName}}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
