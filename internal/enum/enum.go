package enum

const (
	OrderStatusPlaced      = "PLACED"
	OrderStatusPreparation = "PREPARATION"
	OrderStatusCompleted   = "COMPLETED"
)

const (
	TicketStatusOpen     = "OPEN"
	TicketStatusAnswered = "ANSWERED"
	TicketStatusClosed   = "CLOSED"
)

const (
	UserStatusPending  = "PENDING"
	UserStatusApproved = "APPROVED"
	UserStatusRejected = "REJECTED"
)

const (
	OrderTypeOnline  = "ONLINE"
	OrderTypeOffline = "OFFLINE"
)

const (
	SourceKindCounter     = "COUNTER"
	SourceKindPlatform    = "PLATFORM"
	SourceKindSelfService = "SELF_SERVICE"
)

const (
	UserRoleAdmin = "ADMIN"
	UserRoleOwner = "OWNER"
	UserRoleStaff = "STAFF"
)

const (
	PaymentMethodCash = "CASH"
	PaymentMethodUPI  = "UPI"
	PaymentMethodCard = "CARD"
)

const (
	AlertKindRenewal = "SUBSCRIPTION_RENEWAL"
)
