package constant

// Platform Ids
const (
	PlatformIdUnknown = 0
	PlatformIdIOS     = 1
	PlatformIdAndroid = 2
	PlatformIdWindows = 3
	PlatformIdMacOS   = 4
	PlatformIdWeb     = 5
	PlatformIdCLI     = 6
	PlatformIdService = 7 // backend producers of notifications
)

// PlatformIdToName converts platform Id to name
func PlatformIdToName(platformId int) string {
	switch platformId {
	case PlatformIdIOS:
		return "iOS"
	case PlatformIdAndroid:
		return "Android"
	case PlatformIdWindows:
		return "Windows"
	case PlatformIdMacOS:
		return "macOS"
	case PlatformIdWeb:
		return "Web"
	case PlatformIdCLI:
		return "CLI"
	case PlatformIdService:
		return "Service"
	default:
		return "Unknown"
	}
}

// Redis key patterns (without prefix, use RedisKey() to get full key)
const (
	redisKeyFeed        = "feed:%s" // feed:{user_id}, pub/sub channel
	redisKeyFeedPattern = "feed:*"
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "inbox:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyFeed() string        { return redisKeyPrefix + redisKeyFeed }
func RedisKeyFeedPattern() string { return redisKeyPrefix + redisKeyFeedPattern }
