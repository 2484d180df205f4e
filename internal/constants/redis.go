package constants

// Redis Pub/Sub 频道
const (
	// RedisPubSubEvents 业务事件频道
	RedisPubSubEvents = "lms.events"
)

// Redis 键
const (
	// RedisKeyRevokedTokenPrefix 已注销 token 的键前缀，后接 token ID
	RedisKeyRevokedTokenPrefix = "lms:revoked:"
)
