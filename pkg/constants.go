package shared

const (
	ProjectID = "velohub-club" // Can be overridden by env var in main if needed

	TopicRideSynced = "topic-ride-synced"

	CollectionMembers = "members"
	CollectionRides   = "rides"
)
