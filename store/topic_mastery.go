package store

// TopicMastery is the per-(user, topic) running mastery estimate.
// Created lazily on the first answer in a topic.
type TopicMastery struct {
	UserID int64
	Topic  string
	// Mastery is the exponential-moving-average estimate in [0, 1].
	Mastery float64
	// Samples counts answers folded into the estimate.
	Samples   int
	UpdatedTs int64
}

// FindTopicMastery is the find condition for topic mastery.
type FindTopicMastery struct {
	UserID *int64
	Topic  *string
}

// UpsertTopicMastery is the upsert request for topic mastery.
type UpsertTopicMastery struct {
	UserID    int64
	Topic     string
	Mastery   float64
	Samples   int
	UpdatedTs int64
}
