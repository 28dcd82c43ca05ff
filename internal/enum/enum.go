package enum

// Order lifecycle states. Stored as-is on the order document; the PATCH
// endpoint writes whatever status the caller supplies, so these are the
// conventional values rather than a DB-enforced set.
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

// Staff roles carried in JWT claims.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)
