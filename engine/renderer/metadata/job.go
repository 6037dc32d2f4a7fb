package metadata

import "context"

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job. May block on disk or decode work.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
	/**
	 * @brief A notification job. Runs on the notification context, never on
	 * a loader worker.
	 */
	JOB_TYPE_NOTIFY JobType = 0x08
)

func (jt JobType) String() string {
	switch jt {
	case JOB_TYPE_GENERAL:
		return "general"
	case JOB_TYPE_RESOURCE_LOAD:
		return "resource-load"
	case JOB_TYPE_NOTIFY:
		return "notify"
	}
	return "unknown"
}

/** Definition for jobs. */
type JobStart func(ctx context.Context) error

/** Definition for completion of a job. */
type JobOnComplete func()

/** Definition for failure of a job. */
type JobOnFailure func(err error)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	/** @brief Used in logs only. */
	Name string
	/** @brief The type of job. */
	JobType JobType
	/** @brief Invoked when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when OnStart returned nil. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked when OnStart returned an error or panicked. Optional. */
	OnFailure JobOnFailure
}
