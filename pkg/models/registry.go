package models

// All returns every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&Product{},
		&Supplier{},
		&Lead{},
		&Opportunity{},
		&Activity{},
		&Sale{},
		&SaleItem{},
		&Purchase{},
		&PurchaseItem{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&DashboardWidget{},
		&UserDashboardPreference{},
		&UserWidgetSettings{},
	}
}

// Strings converts enum members to their raw values.
func Strings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Contains reports whether v is one of values.
func Contains[T ~string](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
