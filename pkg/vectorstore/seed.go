package vectorstore

import "context"

// salesSchemaDoc describes the denormalized sales table. It seeds the index so
// that retrieval has schema context before any richer metadata is loaded.
const salesSchemaDoc = `Denormalized Sales Data:

Table: sales_transactions - Complete sales transaction data (NoSQL document store)
Key: transaction_id (String)

Available attributes for analysis:
- Customer data: customer_id, customer_name, customer_country, customer_city
- Product data: product_id, product_name, category_name, supplier_name, supplier_country
- Order data: order_id, order_date, shipped_date, employee_name
- Financial data: quantity, unit_price, discount, line_total, freight
- Shipping: shipper_name

This denormalized structure allows fast analytics on:
- Revenue by customer, product, category, country
- Sales performance by employee, supplier
- Order patterns by date, location
- All data in a single table, no joins needed

Use scan operations to get all transactions, then aggregate client-side.`

// SeedSalesSchema loads the sales table schema document into the store.
func SeedSalesSchema(ctx context.Context, store *Store) error {
	texts := []string{salesSchemaDoc}
	metadatas := []map[string]string{
		{"database": "dynamodb", "tables": "sales", "type": "schema"},
	}
	return store.AddTexts(ctx, texts, metadatas)
}
