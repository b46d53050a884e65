package config

// BuiltinConfig is the compiled-in seed catalog and classifier vocabulary.
// It guarantees the engine answers the seed scenarios in spec.md §8 even
// with no operator-supplied catalog.yaml/classifier.yaml present, and is
// always merged underneath whatever the operator provides.
type BuiltinConfig struct {
	Queries    map[string]QueryEntry
	Classifier ClassifierConfig
}

// GetBuiltinConfig returns the compiled-in catalog and classifier seed.
func GetBuiltinConfig() BuiltinConfig {
	return BuiltinConfig{
		Queries: map[string]QueryEntry{
			"kpi_sales_summary": {
				ID:          "kpi_sales_summary",
				Description: "Total sales, order count, and average order value for a date range",
				Template:    "SELECT SUM(amount) AS total_sales, COUNT(*) AS total_orders, AVG(amount) AS avg_order_value FROM sales WHERE sold_at BETWEEN $1 AND $2",
				Parameters: []ParameterSchema{
					{Name: "start_date", Type: "date", Required: true},
					{Name: "end_date", Type: "date", Required: true},
				},
				OutputKind:  "kpi",
				OutputRef:   "kpi.sales_summary",
				DomainHints: []string{"sales"},
			},
			"ts_sales_by_day": {
				ID:          "ts_sales_by_day",
				Description: "Daily sales total across a date range",
				Template:    "SELECT date_trunc('day', sold_at) AS day, SUM(amount) AS total FROM sales WHERE sold_at BETWEEN $1 AND $2 GROUP BY day ORDER BY day",
				Parameters: []ParameterSchema{
					{Name: "start_date", Type: "date", Required: true},
					{Name: "end_date", Type: "date", Required: true},
				},
				OutputKind:  "time_series",
				OutputRef:   "ts.sales_by_day",
				DomainHints: []string{"sales"},
			},
			"top_products_by_revenue": {
				ID:          "top_products_by_revenue",
				Description: "Top products ranked by revenue for a date range",
				Template:    "SELECT product_id, title, SUM(amount) AS revenue FROM sales WHERE sold_at BETWEEN $1 AND $2 GROUP BY product_id, title ORDER BY revenue DESC LIMIT 10",
				Parameters: []ParameterSchema{
					{Name: "start_date", Type: "date", Required: true},
					{Name: "end_date", Type: "date", Required: true},
				},
				OutputKind:  "top_items",
				OutputRef:   "top.products_by_revenue",
				DomainHints: []string{"sales"},
			},
			"sales_period_comparison": {
				ID:          "sales_period_comparison",
				Description: "Sales KPIs for a current period and an equal-length previous period",
				Template: "SELECT CASE WHEN sold_at BETWEEN $1 AND $2 THEN 'current' ELSE 'previous' END AS period, " +
					"SUM(amount) AS total_sales, COUNT(*) AS total_orders FROM sales " +
					"WHERE sold_at BETWEEN $1 AND $2 OR sold_at BETWEEN $3 AND $4 GROUP BY period",
				Parameters: []ParameterSchema{
					{Name: "start_date", Type: "date", Required: true},
					{Name: "end_date", Type: "date", Required: true},
					{Name: "prev_start_date", Type: "date", Required: true},
					{Name: "prev_end_date", Type: "date", Required: true},
				},
				OutputKind:  "comparison",
				OutputRef:   "cmp.sales_period",
				DomainHints: []string{"sales"},
			},
			"kpi_inventory_summary": {
				ID:          "kpi_inventory_summary",
				Description: "Current total units on hand and SKU count across all warehouses",
				Template:    "SELECT SUM(on_hand) AS total_units, COUNT(DISTINCT sku) AS sku_count FROM inventory",
				OutputKind:  "kpi",
				OutputRef:   "kpi.inventory_summary",
				DomainHints: []string{"inventory"},
			},
			"stock_reorder_analysis": {
				ID:          "stock_reorder_analysis",
				Description: "SKUs at or below their reorder threshold, ranked by days of cover remaining",
				Template:    "SELECT sku, title, on_hand, reorder_threshold FROM inventory WHERE on_hand <= reorder_threshold ORDER BY on_hand ASC LIMIT 10",
				OutputKind:  "top_items",
				OutputRef:   "top.stock_reorder",
				DomainHints: []string{"inventory"},
			},
			"customer_churn_kpi": {
				ID:          "customer_churn_kpi",
				Description: "Churn rate KPI for a date range",
				Template:    "SELECT COUNT(*) FILTER (WHERE churned) AS churned, COUNT(*) AS total FROM customers WHERE cohort_month BETWEEN $1 AND $2",
				Parameters: []ParameterSchema{
					{Name: "start_date", Type: "date", Required: true},
					{Name: "end_date", Type: "date", Required: true},
				},
				OutputKind:  "kpi",
				OutputRef:   "kpi.customer_churn",
				DomainHints: []string{"conversations"},
			},
		},
		// "inventario" (10 runes) sorts ahead of "venta" (5 runes) even
		// though "inventario" contains "venta" as a substring — the
		// order-sensitive matching invariant from spec.md §4.4 step 5.
		Classifier: ClassifierConfig{
			ConversationalPatterns: []string{"hola", "gracias", "hello", "hi", "thanks", "thank you", "como estas"},
			AmbiguityPronouns:      []string{"eso", "esto", "lo mismo", "it", "that", "those", "them", "this"},
			DataVocabulary:         []string{"cuantos", "total", "how many", "show", "what", "total"},
			DashboardVocabulary:    []string{"como van", "como esta", "dashboard", "chart", "grafico", "trend", "tendencia", "compara", "comparame"},
			DomainKeywords: []DomainKeyword{
				{Keyword: "inventario", Domain: "inventory"},
				{Keyword: "inventory", Domain: "inventory"},
				{Keyword: "stock", Domain: "inventory"},
				{Keyword: "ventas", Domain: "sales"},
				{Keyword: "venta", Domain: "sales"},
				{Keyword: "sales", Domain: "sales"},
				{Keyword: "revenue", Domain: "sales"},
				{Keyword: "churn", Domain: "conversations"},
				{Keyword: "cliente", Domain: "conversations"},
				{Keyword: "customer", Domain: "conversations"},
			},
		},
	}
}
