package constants

// 事件类型常量
const (
	// 借阅申请事件
	EventRequestCreated  = "request.created"
	EventRequestApproved = "request.approved"

	// 库存事件
	EventBookCreated         = "book.created"
	EventBookDeleted         = "book.deleted"
	EventAvailabilityChanged = "book.availability_changed"
	EventCopiesAdjusted      = "book.copies_adjusted"

	// 账户事件
	EventUserRegistered = "user.registered"
)

// AllEvents lists every event type forwarded to external subscribers.
var AllEvents = []string{
	EventRequestCreated,
	EventRequestApproved,
	EventBookCreated,
	EventBookDeleted,
	EventAvailabilityChanged,
	EventCopiesAdjusted,
	EventUserRegistered,
}
