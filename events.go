package realtime

// Event types pushed by the coldfarms server. The client does not validate
// them; they exist so subscribers don't scatter string literals.
const (
	EventBookingRequestCreated = "booking_request_created"
	EventBookingRequestUpdated = "booking_request_updated"

	EventInventoryCreated = "farmer_inventory_created"
	EventInventoryUpdated = "farmer_inventory_updated"
	EventInventoryRemoved = "farmer_inventory_removed"

	EventProfileUpdated     = "farmer_profile_updated"
	EventEarningsUpdated    = "farmer_earnings_updated"
	EventStorageCostUpdated = "farmer_storage_cost_updated"

	EventCategoryCreated    = "category_created"
	EventCategoryUpdated    = "category_updated"
	EventProductTypeCreated = "product_type_created"
	EventProductTypeUpdated = "product_type_updated"
)
