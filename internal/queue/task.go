package queue

type TaskType string

const (
	TaskTypeMapFeatures TaskType = "map_features"
	TaskTypeTrackerSync TaskType = "tracker_sync"
	TaskTypeDistill     TaskType = "distill"
)

type Task struct {
	TaskType TaskType
	Project  string
	GroupIDs []string
	Scope    string
	TraceID  *string
	Attempt  int
}
