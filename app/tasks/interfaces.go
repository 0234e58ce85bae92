package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The API server uses it to trigger out-of-band runs.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
