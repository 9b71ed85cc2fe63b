package analyst

// DefaultCollectionDescriptions returns the stock descriptions of the sales
// collections embedded in generation prompts. Callers may pass their own
// table through Config.Collections.
func DefaultCollectionDescriptions() map[string]string {
	return map[string]string{
		"sales_transactions": "Denormalized sales transactions with customer, product, order, and financial attributes in one document",
		"customers":          "Customer information including company name, contact details, and location",
		"products":           "Product catalog with names, prices, categories, and stock levels",
		"orders":             "Order information including dates, customer, employee, and shipping details",
		"order_details":      "Order line items with product, quantity, price, and discount information",
		"categories":         "Product categories with names and descriptions",
		"suppliers":          "Supplier information including company details and contacts",
		"employees":          "Employee data including names, titles, and hire dates",
		"shippers":           "Shipping company information",
	}
}
