package flow

import "net/url"

// Query parameters that may carry the transaction reference on the
// verification landing URL, in priority order. Which name is populated
// depends on the gateway that redirected the customer: "reference" is the
// standard name, "trxref" is the short transaction-id alias, "order_id" the
// order-id alias.
var referenceParams = []string{"reference", "trxref", "order_id"}

// ExtractReference captures the transaction reference from the landing URL's
// query string. Returns "" when no usable identifier is present.
func ExtractReference(query url.Values) string {
	for _, name := range referenceParams {
		if v := query.Get(name); v != "" {
			return v
		}
	}
	return ""
}
